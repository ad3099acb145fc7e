// Package api implements the HTTP API surface.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tharoslabs/superintendent/internal/actions"
	"github.com/tharoslabs/superintendent/internal/buildinfo"
	"github.com/tharoslabs/superintendent/internal/chat"
	"github.com/tharoslabs/superintendent/internal/conversations"
	"github.com/tharoslabs/superintendent/internal/intent"
	"github.com/tharoslabs/superintendent/internal/llm"
	"github.com/tharoslabs/superintendent/internal/memories"
	"github.com/tharoslabs/superintendent/internal/personality"
	"github.com/tharoslabs/superintendent/internal/settings"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address       string
	port          int
	orchestrator  *chat.Orchestrator
	classifier    *intent.Classifier
	conversations *conversations.Store
	memories      *memories.Store
	settings      *settings.Store
	db            *sql.DB
	providers     map[string]bool // provider name -> credentials configured
	logger        *slog.Logger
	server        *http.Server
}

// NewServer creates a new API server.
func NewServer(address string, port int, orch *chat.Orchestrator, classifier *intent.Classifier, logger *slog.Logger) *Server {
	return &Server{
		address:      address,
		port:         port,
		orchestrator: orch,
		classifier:   classifier,
		providers:    map[string]bool{},
		logger:       logger,
	}
}

// SetStores configures the persistence-backed endpoints.
func (s *Server) SetStores(convs *conversations.Store, mems *memories.Store, sets *settings.Store) {
	s.conversations = convs
	s.memories = mems
	s.settings = sets
}

// SetDB configures the database handle used by the health check.
func (s *Server) SetDB(db *sql.DB) {
	s.db = db
}

// SetProviderStatus records whether a provider has credentials, for
// the health endpoint.
func (s *Server) SetProviderStatus(name string, configured bool) {
	s.providers[name] = configured
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)

	// Conversations
	mux.HandleFunc("GET /api/conversations", s.handleConversationList)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversationGet)

	// Personality
	mux.HandleFunc("POST /api/personality/toggle", s.handlePersonalityToggle)
	mux.HandleFunc("GET /api/personality", s.handlePersonalityGet)

	// Memories
	mux.HandleFunc("POST /api/memory", s.handleMemoryCreate)
	mux.HandleFunc("GET /api/memory/{key}", s.handleMemoryGet)
	mux.HandleFunc("DELETE /api/memory/{key}", s.handleMemoryDelete)
	mux.HandleFunc("GET /api/memories", s.handleMemoryList)

	// Device actions
	mux.HandleFunc("POST /api/actions/parse", s.handleActionParse)

	// Intent introspection
	mux.HandleFunc("GET /api/intent/stats", s.handleIntentStats)
	mux.HandleFunc("GET /api/intent/audit", s.handleIntentAudit)
	mux.HandleFunc("GET /api/intent/explain/{requestId}", s.handleIntentExplain)

	// Health
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/", s.handleRoot)

	return s.withLogging(withCORS(mux))
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for slow provider turns
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withCORS allows browser frontends on other origins to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"success": false,
		"error":   message,
	}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"message": "SuperIntendent API",
		"version": buildinfo.Version,
		"status":  "operational",
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	database := "connected"
	status := "healthy"
	if s.db == nil || s.db.PingContext(r.Context()) != nil {
		database = "unavailable"
		status = "unhealthy"
	}

	writeJSON(w, map[string]any{
		"status":        status,
		"database":      database,
		"llm_providers": s.providers,
	}, s.logger)
}

// Chat handlers

// ChatResponse is the completed chat turn as returned to clients.
type ChatResponse struct {
	Success        bool   `json:"success"`
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	ModelUsed      string `json:"model_used"`
	Personality    string `json:"personality"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.orchestrator.Process(r.Context(), req)
	if err != nil {
		s.chatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{
		Success:        true,
		Response:       resp.Response,
		ConversationID: resp.ConversationID,
		ModelUsed:      resp.ModelUsed,
		Personality:    string(resp.Personality),
	}, s.logger)
}

// chatError maps orchestrator failures onto status codes: validation
// problems are the client's fault, provider and storage problems ours.
func (s *Server) chatError(w http.ResponseWriter, err error) {
	if errors.Is(err, chat.ErrEmptyMessage) {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		s.logger.Error("provider error", "provider", pe.Provider, "status", pe.StatusCode, "type", string(pe.Type))
	} else {
		s.logger.Error("chat failed", "error", err)
	}
	s.errorResponse(w, http.StatusInternalServerError, err.Error())
}

// Conversation handlers

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	convs, err := s.conversations.ListRecent(parseIntParam(r, "limit", 0))
	if err != nil {
		s.logger.Error("conversation list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, convs, s.logger)
}

func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversations.Find(r.PathValue("id"))
	if errors.Is(err, conversations.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("conversation get failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, conv, s.logger)
}

// Personality handlers

type personalityToggleRequest struct {
	Personality string `json:"personality"`
}

func (s *Server) handlePersonalityToggle(w http.ResponseWriter, r *http.Request) {
	var req personalityToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := personality.Parse(req.Personality)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid personality. Must be 'tharos' or 'superintendent'")
		return
	}

	st, err := s.settings.SetPersonality(chat.DefaultUserID, mode)
	if err != nil {
		s.logger.Error("personality toggle failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to update personality")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"success":     true,
		"personality": string(st.CurrentPersonality),
		"message":     fmt.Sprintf("Switched to %s mode", titleCase(string(st.CurrentPersonality))),
	}, s.logger)
}

func (s *Server) handlePersonalityGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.GetOrCreate(chat.DefaultUserID)
	if err != nil {
		s.logger.Error("personality get failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load personality settings")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, st, s.logger)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// Memory handlers

type memoryCreateRequest struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
	Context string          `json:"context,omitempty"`
}

func (s *Server) handleMemoryCreate(w http.ResponseWriter, r *http.Request) {
	var req memoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		s.errorResponse(w, http.StatusBadRequest, "key is required")
		return
	}

	m, err := s.memories.Upsert(chat.DefaultUserID, req.Key, req.Value, req.Context)
	if err != nil {
		s.logger.Error("memory create failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to store memory")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"success": true,
		"memory":  m,
	}, s.logger)
}

func (s *Server) handleMemoryGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.memories.Get(chat.DefaultUserID, r.PathValue("key"))
	if errors.Is(err, memories.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Memory not found")
		return
	}
	if err != nil {
		s.logger.Error("memory get failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to load memory")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, m, s.logger)
}

func (s *Server) handleMemoryDelete(w http.ResponseWriter, r *http.Request) {
	err := s.memories.Delete(chat.DefaultUserID, r.PathValue("key"))
	if errors.Is(err, memories.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Memory not found")
		return
	}
	if err != nil {
		s.logger.Error("memory delete failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemoryList(w http.ResponseWriter, r *http.Request) {
	all, err := s.memories.List(chat.DefaultUserID, parseIntParam(r, "limit", 0))
	if err != nil {
		s.logger.Error("memory list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list memories")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, all, s.logger)
}

// Device action handlers

type actionParseRequest struct {
	Message     string `json:"message"`
	Personality string `json:"personality,omitempty"`
}

func (s *Server) handleActionParse(w http.ResponseWriter, r *http.Request) {
	var req actionParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	action := actions.Parse(req.Message)
	mode := personality.Normalize(req.Personality)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"action":       action,
		"confirmation": actions.Confirmation(action, mode),
	}, s.logger)
}

// Intent introspection handlers

func (s *Server) handleIntentStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.classifier.GetStats(), s.logger)
}

func (s *Server) handleIntentAudit(w http.ResponseWriter, r *http.Request) {
	decisions := s.classifier.Audit(parseIntParam(r, "limit", 20))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"count":     len(decisions),
		"decisions": decisions,
	}, s.logger)
}

func (s *Server) handleIntentExplain(w http.ResponseWriter, r *http.Request) {
	decision := s.classifier.Explain(r.PathValue("requestId"))
	if decision == nil {
		s.errorResponse(w, http.StatusNotFound, "decision not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, decision, s.logger)
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
