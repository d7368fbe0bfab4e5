package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ravenhq/raven-platform/pkg/logging"
)

// Handler exposes the chat turn endpoint consumed by the widget.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler wires the chat endpoint.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts POST /chat.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat", h.sendMessage)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.BusinessID) == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.HandleMessage(r.Context(), req)
	switch {
	case errors.Is(err, ErrBusinessNotFound):
		http.Error(w, "business not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrConversationNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrConversationMismatch):
		http.Error(w, "conversation doesn't belong to this business", http.StatusForbidden)
		return
	case err != nil:
		h.logger.Error("chat turn failed", "business_id", req.BusinessID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
