// Package conversations persists chat transcripts.
package conversations

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tharoslabs/superintendent/internal/personality"
)

// ErrNotFound is returned when a conversation ID is unknown.
var ErrNotFound = errors.New("conversation not found")

// DefaultListLimit caps how many conversations a listing returns.
const DefaultListLimit = 50

// Message is one stored turn of a conversation.
type Message struct {
	Role      string    `json:"role"` // 'user' or 'assistant'
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ModelUsed string    `json:"model_used,omitempty"` // Assistant turns only
}

// Conversation is a transcript with its metadata.
type Conversation struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Personality personality.Mode `json:"personality"`
	Messages    []Message        `json:"messages"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Store manages conversation persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a conversation store using an existing database
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
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			personality TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model_used TEXT,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
	`)
	return err
}

// AppendTurn stores a user message and the assistant's reply in one
// transaction, creating the conversation if it does not exist yet.
// Either both messages land or neither does.
func (s *Store) AppendTurn(id, userID string, mode personality.Mode, userText, assistantText, modelUsed string) error {
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`SELECT id FROM conversations WHERE id = ?`, id).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO conversations (id, user_id, personality, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, userID, string(mode), ts, ts)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
	case err != nil:
		return fmt.Errorf("check existing: %w", err)
	default:
		_, err = tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, ts, id)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
	}

	// Insertion order within the transaction is the replay order, so
	// reads sort by rowid rather than the shared timestamp.
	_, err = tx.Exec(`
		INSERT INTO messages (conversation_id, role, content, model_used, timestamp)
		VALUES (?, 'user', ?, NULL, ?)
	`, id, userText, ts)
	if err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO messages (conversation_id, role, content, model_used, timestamp)
		VALUES (?, 'assistant', ?, ?, ?)
	`, id, assistantText, modelUsed, ts)
	if err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	return tx.Commit()
}

// Find retrieves a conversation and its full transcript.
func (s *Store) Find(id string) (*Conversation, error) {
	c, err := s.scanConversation(s.db.QueryRow(`
		SELECT id, user_id, personality, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	c.Messages, err = s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListRecent returns conversations ordered by most recent activity.
// limit <= 0 selects DefaultListLimit.
func (s *Store) ListRecent(limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, personality, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c, err := s.scanConversationRow(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range convs {
		if c.Messages, err = s.loadMessages(c.ID); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (s *Store) loadMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT role, content, model_used, timestamp
		FROM messages WHERE conversation_id = ? ORDER BY rowid
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var modelUsed sql.NullString
		var tsStr string
		if err := rows.Scan(&m.Role, &m.Content, &modelUsed, &tsStr); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if modelUsed.Valid {
			m.ModelUsed = modelUsed.String
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, tsStr)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) scanConversation(row *sql.Row) (*Conversation, error) {
	var c Conversation
	var modeStr, createdStr, updatedStr string

	if err := row.Scan(&c.ID, &c.UserID, &modeStr, &createdStr, &updatedStr); err != nil {
		return nil, err
	}

	c.Personality = personality.Mode(modeStr)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &c, nil
}

func (s *Store) scanConversationRow(rows *sql.Rows) (*Conversation, error) {
	var c Conversation
	var modeStr, createdStr, updatedStr string

	if err := rows.Scan(&c.ID, &c.UserID, &modeStr, &createdStr, &updatedStr); err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	c.Personality = personality.Mode(modeStr)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return &c, nil
}
