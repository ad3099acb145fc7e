// Package memories provides key/value memory storage for users.
package memories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a memory key is unknown.
var ErrNotFound = errors.New("memory not found")

// DefaultListLimit caps how many memories a listing returns.
const DefaultListLimit = 100

// Memory is one stored key/value item. Value is arbitrary JSON.
type Memory struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Context   string          `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store manages memory persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a memory store using an existing database connection.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			context TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(user_id, key)
		);

		CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
	`)
	return err
}

// Upsert creates or updates a memory. On update the original ID and
// creation time are kept; only value, context, and updated_at move.
func (s *Store) Upsert(userID, key string, value json.RawMessage, context string) (*Memory, error) {
	now := time.Now().UTC()

	var existingID, createdStr string
	err := s.db.QueryRow(`
		SELECT id, created_at FROM memories WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&existingID, &createdStr)

	if err == sql.ErrNoRows {
		id, _ := uuid.NewV7()
		m := &Memory{
			ID:        id,
			UserID:    userID,
			Key:       key,
			Value:     value,
			Context:   context,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = s.db.Exec(`
			INSERT INTO memories (id, user_id, key, value, context, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id.String(), userID, key, string(value), context,
			now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert: %w", err)
		}
		return m, nil
	} else if err != nil {
		return nil, fmt.Errorf("check existing: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE memories SET value = ?, context = ?, updated_at = ?
		WHERE user_id = ? AND key = ?
	`, string(value), context, now.Format(time.RFC3339), userID, key)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	id, _ := uuid.Parse(existingID)
	created, _ := time.Parse(time.RFC3339, createdStr)
	return &Memory{
		ID:        id,
		UserID:    userID,
		Key:       key,
		Value:     value,
		Context:   context,
		CreatedAt: created,
		UpdatedAt: now,
	}, nil
}

// Get retrieves a memory by key.
func (s *Store) Get(userID, key string) (*Memory, error) {
	m, err := s.scanMemory(s.db.QueryRow(`
		SELECT id, user_id, key, value, context, created_at, updated_at
		FROM memories WHERE user_id = ? AND key = ?
	`, userID, key))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return m, nil
}

// List returns up to limit memories for a user, newest first.
// limit <= 0 selects DefaultListLimit.
func (s *Store) List(userID string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, key, value, context, created_at, updated_at
		FROM memories WHERE user_id = ? ORDER BY updated_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	memories := []*Memory{}
	for rows.Next() {
		m, err := s.scanMemoryRow(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// Delete removes a memory.
func (s *Store) Delete(userID, key string) error {
	result, err := s.db.Exec(`DELETE FROM memories WHERE user_id = ? AND key = ?`, userID, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanMemory(row *sql.Row) (*Memory, error) {
	var m Memory
	var idStr, valueStr, createdStr, updatedStr string
	var context sql.NullString

	err := row.Scan(&idStr, &m.UserID, &m.Key, &valueStr, &context, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}

	m.ID, _ = uuid.Parse(idStr)
	m.Value = json.RawMessage(valueStr)
	if context.Valid {
		m.Context = context.String
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &m, nil
}

func (s *Store) scanMemoryRow(rows *sql.Rows) (*Memory, error) {
	var m Memory
	var idStr, valueStr, createdStr, updatedStr string
	var context sql.NullString

	err := rows.Scan(&idStr, &m.UserID, &m.Key, &valueStr, &context, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}

	m.ID, _ = uuid.Parse(idStr)
	m.Value = json.RawMessage(valueStr)
	if context.Valid {
		m.Context = context.String
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &m, nil
}
