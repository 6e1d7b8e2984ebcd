package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carewell/scheduling-agent/pkg/logging"
)

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	resp, err := h.orchestrator.Chat(r.Context(), req)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// History handles GET /chat/{sessionID}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.orchestrator.SessionHistory(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// DeleteHistory handles DELETE /chat/{sessionID}.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.orchestrator.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to delete session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
