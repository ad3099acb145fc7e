// Package chat orchestrates a conversation turn: classify, dispatch to
// a provider, persist the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tharoslabs/superintendent/internal/conversations"
	"github.com/tharoslabs/superintendent/internal/intent"
	"github.com/tharoslabs/superintendent/internal/llm"
	"github.com/tharoslabs/superintendent/internal/personality"
)

// DefaultUserID scopes all records until multi-user support lands.
const DefaultUserID = "default_user"

// ErrEmptyMessage is returned when a request carries no message text.
var ErrEmptyMessage = errors.New("message must not be empty")

// Request is one inbound chat turn.
type Request struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Personality    string `json:"personality,omitempty"`
}

// Response is the completed turn.
type Response struct {
	ConversationID string           `json:"conversation_id"`
	Response       string           `json:"response"`
	ModelUsed      string           `json:"model_used"`
	Personality    personality.Mode `json:"personality"`
}

// Orchestrator wires the classifier, provider clients, and transcript
// store together.
type Orchestrator struct {
	logger     *slog.Logger
	classifier *intent.Classifier
	clients    map[intent.Label]llm.Client
	store      *conversations.Store
	timeout    time.Duration
}

// New creates an orchestrator. timeout bounds each provider call;
// zero selects 60 seconds.
func New(logger *slog.Logger, classifier *intent.Classifier, clients map[intent.Label]llm.Client, store *conversations.Store, timeout time.Duration) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{
		logger:     logger,
		classifier: classifier,
		clients:    clients,
		store:      store,
		timeout:    timeout,
	}
}

// Process handles one chat turn. A conversation ID that is empty or
// unknown starts a fresh conversation under a newly generated ID. The
// exchange is persisted only after the provider call succeeds, so a
// failed turn leaves no partial transcript.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	id := req.ConversationID
	mode := personality.Normalize(req.Personality)
	var history []llm.Message

	if id != "" {
		conv, err := o.store.Find(id)
		switch {
		case err == nil:
			mode = conv.Personality
			history = toLLMMessages(conv.Messages)
		case errors.Is(err, conversations.ErrNotFound):
			id = ""
		default:
			return nil, fmt.Errorf("load conversation: %w", err)
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	label, decision := o.classifier.Classify(req.Message)
	client, ok := o.clients[label]
	if !ok {
		return nil, fmt.Errorf("no client for label %q", label)
	}

	o.logger.Info("routing message",
		"conversation_id", id,
		"label", string(label),
		"personality", string(mode),
		"request_id", decision.RequestID,
	)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	reply, err := client.Complete(callCtx, personality.SystemPrompt(mode), history, req.Message)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", label, err)
	}

	if err := o.store.AppendTurn(id, DefaultUserID, mode, req.Message, reply, string(label)); err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	return &Response{
		ConversationID: id,
		Response:       reply,
		ModelUsed:      string(label),
		Personality:    mode,
	}, nil
}

func toLLMMessages(msgs []conversations.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
