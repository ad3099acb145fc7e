package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tharoslabs/superintendent/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP layer already allows any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsError is the error frame sent when a turn fails. The socket stays
// open so the client can retry.
type wsError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleChatWS serves a chat session over a websocket. Each inbound
// frame is one chat.Request; each outbound frame is the completed turn
// or an error.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("websocket session opened", "remote", conn.RemoteAddr().String())

	for {
		var req chat.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		resp, err := s.orchestrator.Process(r.Context(), req)
		if err != nil {
			msg := "internal error"
			if errors.Is(err, chat.ErrEmptyMessage) {
				msg = err.Error()
			} else {
				s.logger.Error("websocket chat failed", "error", err)
			}
			if err := conn.WriteJSON(wsError{Error: msg}); err != nil {
				return
			}
			continue
		}

		out := ChatResponse{
			Success:        true,
			Response:       resp.Response,
			ConversationID: resp.ConversationID,
			ModelUsed:      resp.ModelUsed,
			Personality:    string(resp.Personality),
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}
