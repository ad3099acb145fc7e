package chat

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tharoslabs/superintendent/internal/conversations"
	"github.com/tharoslabs/superintendent/internal/intent"
	"github.com/tharoslabs/superintendent/internal/llm"
	"github.com/tharoslabs/superintendent/internal/personality"
)

// stubClient records what it was asked and returns a canned reply.
type stubClient struct {
	reply   string
	err     error
	system  string
	history []llm.Message
	user    string
	calls   int
}

func (s *stubClient) Complete(ctx context.Context, system string, history []llm.Message, user string) (string, error) {
	s.calls++
	s.system = system
	s.history = history
	s.user = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubClient) Model() string { return "stub" }

func newTestOrchestrator(t *testing.T, clients map[intent.Label]llm.Client) (*Orchestrator, *conversations.Store) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := conversations.NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, intent.New(logger, 0), clients, store, 0), store
}

func allStub(c *stubClient) map[intent.Label]llm.Client {
	return map[intent.Label]llm.Client{
		intent.LabelOpenAI:   c,
		intent.LabelGemini:   c,
		intent.LabelDeepSeek: c,
	}
}

func TestProcessNewConversation(t *testing.T) {
	stub := &stubClient{reply: "hello there"}
	o, store := newTestOrchestrator(t, allStub(stub))

	resp, err := o.Process(context.Background(), Request{Message: "hi", Personality: "tharos"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.ConversationID == "" {
		t.Error("expected generated conversation id")
	}
	if resp.Response != "hello there" {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.ModelUsed != "openai" {
		t.Errorf("model used = %q", resp.ModelUsed)
	}
	if resp.Personality != personality.Tharos {
		t.Errorf("personality = %q", resp.Personality)
	}
	if !strings.Contains(stub.system, "Tharos") {
		t.Errorf("system prompt should reflect tharos mode: %q", stub.system)
	}

	conv, err := store.Find(resp.ConversationID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[1].ModelUsed != "openai" {
		t.Errorf("assistant model = %q", conv.Messages[1].ModelUsed)
	}
}

func TestProcessContinuesConversation(t *testing.T) {
	stub := &stubClient{reply: "reply"}
	o, _ := newTestOrchestrator(t, allStub(stub))

	first, err := o.Process(context.Background(), Request{Message: "first", Personality: "tharos"})
	if err != nil {
		t.Fatal(err)
	}

	// The stored personality wins over the one in the request.
	second, err := o.Process(context.Background(), Request{
		Message:        "second",
		ConversationID: first.ConversationID,
		Personality:    "superintendent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation id changed: %s != %s", second.ConversationID, first.ConversationID)
	}
	if second.Personality != personality.Tharos {
		t.Errorf("personality = %q, want stored tharos", second.Personality)
	}

	// The prior exchange is replayed to the provider.
	if len(stub.history) != 2 {
		t.Fatalf("history = %d messages, want 2", len(stub.history))
	}
	if stub.history[0].Content != "first" || stub.history[1].Content != "reply" {
		t.Errorf("history = %+v", stub.history)
	}
	if stub.user != "second" {
		t.Errorf("user message = %q", stub.user)
	}
}

func TestProcessUnknownConversationIDStartsFresh(t *testing.T) {
	stub := &stubClient{reply: "ok"}
	o, _ := newTestOrchestrator(t, allStub(stub))

	resp, err := o.Process(context.Background(), Request{Message: "hi", ConversationID: "never-seen"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if resp.ConversationID == "never-seen" {
		t.Error("unknown id should be replaced with a fresh one")
	}
}

func TestProcessEmptyMessage(t *testing.T) {
	o, _ := newTestOrchestrator(t, allStub(&stubClient{}))

	for _, msg := range []string{"", "   "} {
		if _, err := o.Process(context.Background(), Request{Message: msg}); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Process(%q) err = %v, want ErrEmptyMessage", msg, err)
		}
	}
}

func TestProcessRoutesByIntent(t *testing.T) {
	openai := &stubClient{reply: "from openai"}
	gemini := &stubClient{reply: "from gemini"}
	deepseek := &stubClient{reply: "from deepseek"}
	o, _ := newTestOrchestrator(t, map[intent.Label]llm.Client{
		intent.LabelOpenAI:   openai,
		intent.LabelGemini:   gemini,
		intent.LabelDeepSeek: deepseek,
	})

	resp, err := o.Process(context.Background(), Request{Message: "find nearby pizza"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ModelUsed != "gemini" || gemini.calls != 1 {
		t.Errorf("expected gemini dispatch, got %q (calls=%d)", resp.ModelUsed, gemini.calls)
	}

	resp, err = o.Process(context.Background(), Request{Message: "debug my code"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ModelUsed != "deepseek" || deepseek.calls != 1 {
		t.Errorf("expected deepseek dispatch, got %q (calls=%d)", resp.ModelUsed, deepseek.calls)
	}
}

func TestProcessProviderFailurePersistsNothing(t *testing.T) {
	stub := &stubClient{err: errors.New("upstream exploded")}
	o, store := newTestOrchestrator(t, allStub(stub))

	_, err := o.Process(context.Background(), Request{Message: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	convs, err := store.ListRecent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 0 {
		t.Errorf("failed turn persisted %d conversations, want 0", len(convs))
	}
}

func TestProcessDefaultsPersonality(t *testing.T) {
	stub := &stubClient{reply: "ok"}
	o, _ := newTestOrchestrator(t, allStub(stub))

	// Unknown personality strings fall back to superintendent.
	resp, err := o.Process(context.Background(), Request{Message: "hi", Personality: "pirate"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Personality != personality.Superintendent {
		t.Errorf("personality = %q", resp.Personality)
	}
}
