package settings

import (
	"database/sql"
	"encoding/json"
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

func TestGetOrCreateDefaults(t *testing.T) {
	s := newTestStore(t)

	st, err := s.GetOrCreate("default_user")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if st.CurrentPersonality != personality.Superintendent {
		t.Errorf("default personality = %q", st.CurrentPersonality)
	}

	// Second call returns the same record.
	again, err := s.GetOrCreate("default_user")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != st.ID {
		t.Errorf("id changed between calls: %s != %s", again.ID, st.ID)
	}
}

func TestSetPersonality(t *testing.T) {
	s := newTestStore(t)

	st, err := s.SetPersonality("default_user", personality.Tharos)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if st.CurrentPersonality != personality.Tharos {
		t.Errorf("personality = %q", st.CurrentPersonality)
	}

	st, err = s.SetPersonality("default_user", personality.Superintendent)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentPersonality != personality.Superintendent {
		t.Errorf("personality = %q after switch back", st.CurrentPersonality)
	}
}

func TestSetCustomizationPreservedAcrossToggle(t *testing.T) {
	s := newTestStore(t)

	blob := json.RawMessage(`{"nickname":"bro"}`)
	if _, err := s.SetCustomization("default_user", personality.Tharos, blob); err != nil {
		t.Fatalf("set customization: %v", err)
	}

	st, err := s.SetPersonality("default_user", personality.Superintendent)
	if err != nil {
		t.Fatal(err)
	}
	if string(st.TharosCustomization) != `{"nickname":"bro"}` {
		t.Errorf("customization lost on toggle: %s", st.TharosCustomization)
	}
	if st.SuperintendentCustomization != nil {
		t.Errorf("unexpected superintendent blob: %s", st.SuperintendentCustomization)
	}
}
