package conversations

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ravenhq/raven-platform/pkg/logging"
)

// TranscriptSender emails a conversation transcript to a visitor.
type TranscriptSender interface {
	SendTranscript(ctx context.Context, toEmail, businessName string, messages []Message, language string) error
}

// BusinessLookup resolves the business a conversation belongs to, for the
// transcript email header.
type BusinessLookup interface {
	NameAndLanguage(ctx context.Context, businessID string) (name, language string, err error)
}

// Handler serves conversation retrieval, rating, takeover and transcripts.
type Handler struct {
	repo       *Repository
	transcript TranscriptSender
	businesses BusinessLookup
	logger     *logging.Logger
}

// NewHandler wires the conversation endpoints.
func NewHandler(repo *Repository, transcript TranscriptSender, businesses BusinessLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, transcript: transcript, businesses: businesses, logger: logger}
}

// Routes mounts the widget-facing conversation endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/chat/conversation/{conversationID}", h.getConversation)
	r.Post("/chat/conversation/{conversationID}/rate", h.rate)
	r.Post("/chat/conversation/{conversationID}/transcript", h.emailTranscript)
}

// DashboardRoutes mounts the agent-facing takeover toggle.
func (h *Handler) DashboardRoutes(r chi.Router) {
	r.Put("/conversations/{conversationID}/takeover", h.setTakeover)
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	ctx := r.Context()

	conv, err := h.repo.Get(ctx, conversationID)
	if err != nil {
		h.logger.Error("load conversation failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	messages, err := h.repo.ListMessages(ctx, conversationID, 0)
	if err != nil {
		h.logger.Error("load messages failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []Message{}
	}

	writeJSON(w, http.StatusOK, WithMessages{Conversation: *conv, Messages: messages})
}

type rateRequest struct {
	Rating  string `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) rate(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	ctx := r.Context()

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Rating != "positive" && req.Rating != "negative" {
		http.Error(w, "rating must be 'positive' or 'negative'", http.StatusBadRequest)
		return
	}

	conv, err := h.repo.Get(ctx, conversationID)
	if err != nil {
		h.logger.Error("load conversation failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	if err := h.repo.Rate(ctx, conversationID, req.Rating, req.Comment); err != nil {
		h.logger.Error("rate conversation failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "rating": req.Rating})
}

type transcriptRequest struct {
	Email string `json:"email"`
}

func (h *Handler) emailTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	ctx := r.Context()

	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if !strings.Contains(req.Email, "@") {
		http.Error(w, "a valid email is required", http.StatusBadRequest)
		return
	}

	conv, err := h.repo.Get(ctx, conversationID)
	if err != nil {
		h.logger.Error("load conversation failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	name, language, err := h.businesses.NameAndLanguage(ctx, conv.BusinessID)
	if err != nil {
		h.logger.Error("load business failed", "business_id", conv.BusinessID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	messages, err := h.repo.ListMessages(ctx, conversationID, 200)
	if err != nil {
		h.logger.Error("load messages failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	if err := h.transcript.SendTranscript(ctx, req.Email, name, messages, language); err != nil {
		h.logger.Error("send transcript failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "failed to send email", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type takeoverRequest struct {
	Takeover bool `json:"takeover"`
}

func (h *Handler) setTakeover(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req takeoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetTakeover(r.Context(), conversationID, req.Takeover); err != nil {
		h.logger.Error("set takeover failed", "conversation_id", conversationID, "error", err)
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "takeover": req.Takeover})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
