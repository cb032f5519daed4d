package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"myfirstagent/internal/agent"
	"myfirstagent/internal/history"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and message are required"})
		return
	}

	ctx, cancel := context.WithCancel(agent.ContextWithChannel(r.Context(), "gateway"))
	defer cancel()
	if !s.track(req.SessionID, cancel) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session already has a run in progress"})
		return
	}
	defer s.untrack(req.SessionID)

	sse := NewSSEWriter(w)
	var sentError bool

	err := s.runner.Run(ctx, req.SessionID, req.Message, func(ev agent.Event) {
		var err error
		switch ev.Type {
		case agent.EventToken:
			err = sse.Send("token", map[string]any{"content": ev.Data})
		case agent.EventToolCall:
			err = sse.Send("tool_call", ev.Data)
		case agent.EventToolResult:
			err = sse.Send("tool_result", ev.Data)
		case agent.EventError:
			sentError = true
			err = sse.Send("error", map[string]any{"error": ev.Data})
		case agent.EventDone:
			err = sse.Send("done", map[string]any{})
		}
		if err != nil {
			slog.Debug("sse send failed", "session_id", req.SessionID, "error", err)
		}
	})

	if err != nil && !sentError {
		if sendErr := sse.Send("error", map[string]string{"error": err.Error()}); sendErr != nil {
			slog.Debug("sse send failed", "session_id", req.SessionID, "error", sendErr)
		}
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		slog.Error("listing sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing sessions failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turns, err := s.store.Turns(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		slog.Error("loading session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "loading session failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "turns": turns})
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.cancel(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run in progress"})
		return
	}
	slog.Info("run cancelled", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
