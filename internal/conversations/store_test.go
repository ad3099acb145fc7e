package conversations

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tharoslabs/superintendent/internal/personality"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestAppendTurnCreatesConversation(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendTurn("conv-1", "default_user", personality.Tharos, "hello", "yo, what's up", "openai")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	c, err := s.Find("conv-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.UserID != "default_user" {
		t.Errorf("user id = %q", c.UserID)
	}
	if c.Personality != personality.Tharos {
		t.Errorf("personality = %q", c.Personality)
	}
	if len(c.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(c.Messages))
	}
	if c.Messages[0].Role != "user" || c.Messages[0].Content != "hello" {
		t.Errorf("first message = %+v", c.Messages[0])
	}
	if c.Messages[0].ModelUsed != "" {
		t.Errorf("user message should have no model, got %q", c.Messages[0].ModelUsed)
	}
	if c.Messages[1].Role != "assistant" || c.Messages[1].ModelUsed != "openai" {
		t.Errorf("second message = %+v", c.Messages[1])
	}
}

func TestAppendTurnPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	turns := []struct{ user, assistant string }{
		{"first question", "first answer"},
		{"second question", "second answer"},
		{"third question", "third answer"},
	}
	for _, turn := range turns {
		if err := s.AppendTurn("conv-1", "u", personality.Superintendent, turn.user, turn.assistant, "openai"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	c, err := s.Find("conv-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(c.Messages) != 6 {
		t.Fatalf("messages = %d, want 6", len(c.Messages))
	}

	// Turns alternate user/assistant in insertion order even when the
	// whole transcript shares one second-resolution timestamp.
	want := []string{
		"first question", "first answer",
		"second question", "second answer",
		"third question", "third answer",
	}
	for i, w := range want {
		if c.Messages[i].Content != w {
			t.Errorf("message[%d] = %q, want %q", i, c.Messages[i].Content, w)
		}
	}
}

func TestAppendTurnKeepsOriginalPersonality(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendTurn("conv-1", "u", personality.Tharos, "hi", "yo", "openai"); err != nil {
		t.Fatal(err)
	}
	// A later turn with a different mode does not rewrite the stored one.
	if err := s.AppendTurn("conv-1", "u", personality.Superintendent, "again", "sir", "openai"); err != nil {
		t.Fatal(err)
	}

	c, err := s.Find("conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Personality != personality.Tharos {
		t.Errorf("personality = %q, want tharos", c.Personality)
	}
}

func TestFindNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Find("no-such-conversation")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListRecent(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.AppendTurn(id, "u", personality.Superintendent, "hi "+id, "hello", "openai"); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := s.ListRecent(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("len = %d, want 2", len(convs))
	}
	for _, c := range convs {
		if len(c.Messages) != 2 {
			t.Errorf("conversation %s has %d messages, want 2", c.ID, len(c.Messages))
		}
	}

	// Empty store returns an empty list, not an error.
	empty := newTestStore(t)
	convs, err = empty.ListRecent(0)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("len = %d, want 0", len(convs))
	}
}
