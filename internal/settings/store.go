// Package settings stores per-user personality preferences.
package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tharoslabs/superintendent/internal/personality"
)

// Settings is a user's personality preference record. Customization
// blobs are arbitrary JSON reserved for persona tuning.
type Settings struct {
	ID                          uuid.UUID        `json:"id"`
	UserID                      string           `json:"user_id"`
	CurrentPersonality          personality.Mode `json:"current_personality"`
	TharosCustomization         json.RawMessage  `json:"tharos_customization,omitempty"`
	SuperintendentCustomization json.RawMessage  `json:"superintendent_customization,omitempty"`
	UpdatedAt                   time.Time        `json:"updated_at"`
}

// Store manages settings persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a settings store using an existing database
// connection.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS personality_settings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			current_personality TEXT NOT NULL,
			tharos_customization TEXT,
			superintendent_customization TEXT,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// GetOrCreate returns the user's settings, creating a default record
// on first access.
func (s *Store) GetOrCreate(userID string) (*Settings, error) {
	settings, err := s.get(userID)
	if err == sql.ErrNoRows {
		return s.create(userID, personality.Default)
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return settings, nil
}

// SetPersonality switches the user's active mode, creating the record
// if needed. Customization blobs are untouched.
func (s *Store) SetPersonality(userID string, mode personality.Mode) (*Settings, error) {
	now := time.Now().UTC()

	result, err := s.db.Exec(`
		UPDATE personality_settings SET current_personality = ?, updated_at = ?
		WHERE user_id = ?
	`, string(mode), now.Format(time.RFC3339), userID)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return s.create(userID, mode)
	}
	return s.GetOrCreate(userID)
}

// SetCustomization replaces one persona's customization blob.
func (s *Store) SetCustomization(userID string, mode personality.Mode, blob json.RawMessage) (*Settings, error) {
	if _, err := s.GetOrCreate(userID); err != nil {
		return nil, err
	}

	column := "superintendent_customization"
	if mode == personality.Tharos {
		column = "tharos_customization"
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(fmt.Sprintf(`
		UPDATE personality_settings SET %s = ?, updated_at = ?
		WHERE user_id = ?
	`, column), string(blob), now.Format(time.RFC3339), userID)
	if err != nil {
		return nil, fmt.Errorf("update customization: %w", err)
	}
	return s.GetOrCreate(userID)
}

func (s *Store) create(userID string, mode personality.Mode) (*Settings, error) {
	now := time.Now().UTC()
	id, _ := uuid.NewV7()

	_, err := s.db.Exec(`
		INSERT INTO personality_settings (id, user_id, current_personality, updated_at)
		VALUES (?, ?, ?, ?)
	`, id.String(), userID, string(mode), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	return &Settings{
		ID:                 id,
		UserID:             userID,
		CurrentPersonality: mode,
		UpdatedAt:          now,
	}, nil
}

func (s *Store) get(userID string) (*Settings, error) {
	var st Settings
	var idStr, modeStr, updatedStr string
	var tharosBlob, superBlob sql.NullString

	err := s.db.QueryRow(`
		SELECT id, user_id, current_personality, tharos_customization, superintendent_customization, updated_at
		FROM personality_settings WHERE user_id = ?
	`, userID).Scan(&idStr, &st.UserID, &modeStr, &tharosBlob, &superBlob, &updatedStr)
	if err != nil {
		return nil, err
	}

	st.ID, _ = uuid.Parse(idStr)
	st.CurrentPersonality = personality.Mode(modeStr)
	if tharosBlob.Valid {
		st.TharosCustomization = json.RawMessage(tharosBlob.String)
	}
	if superBlob.Valid {
		st.SuperintendentCustomization = json.RawMessage(superBlob.String)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &st, nil
}
