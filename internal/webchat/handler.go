package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/ravenhq/raven-platform/internal/chat"
	"github.com/ravenhq/raven-platform/internal/conversations"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// ChatService handles one widget turn.
type ChatService interface {
	HandleMessage(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error)
}

// ConversationStore persists agent replies so they survive in transcripts and
// the dashboard history. Implemented by the conversations repository.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*conversations.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string, media []conversations.Media) (*conversations.Message, error)
}

// Handler manages live widget connections. Each conversation has at most one
// active WebSocket; the dashboard pushes agent replies through it during
// human takeover.
type Handler struct {
	chat     ChatService
	convs    ConversationStore
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type           string            `json:"type"` // "message", "typing", "session", "pong", "error"
	Text           string            `json:"text,omitempty"`
	Role           string            `json:"role,omitempty"` // "assistant" or "agent"
	ConversationID string            `json:"conversation_id,omitempty"`
	VisitorID      string            `json:"visitor_id,omitempty"`
	Slots          []chat.SlotButton `json:"slots,omitempty"`
	ShouldClose    bool              `json:"should_close,omitempty"`
	Timestamp      string            `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(chatSvc ChatService, convs ConversationStore, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		chat:     chatSvc,
		convs:    convs,
		logger:   logger,
		widgetJS: widgetJS,
		sessions: make(map[string]*wsConn),
	}
}

// generateVisitorID creates a random visitor identifier.
func generateVisitorID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	businessID := r.URL.Query().Get("business")
	if businessID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing business parameter"})
		return
	}

	visitorID := r.URL.Query().Get("visitor")
	if visitorID == "" {
		visitorID = generateVisitorID()
	}
	conversationID := r.URL.Query().Get("conversation")

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:           "session",
		VisitorID:      visitorID,
		ConversationID: conversationID,
	})

	h.logger.Info("webchat: connection opened", "business_id", businessID, "visitor_id", visitorID)

	var registered string
	defer func() {
		if registered != "" {
			h.unregister(registered)
		}
	}()

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "business_id", businessID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

		resp, err := h.chat.HandleMessage(r.Context(), chat.ChatRequest{
			BusinessID:     businessID,
			ConversationID: conversationID,
			VisitorID:      visitorID,
			Message:        msg.Text,
		})
		if err != nil {
			h.logger.Error("webchat: message failed", "business_id", businessID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type: "error",
				Text: errorText(err),
			})
			continue
		}

		// First reply pins the conversation; register for dashboard pushes.
		if conversationID != resp.ConversationID {
			if registered != "" {
				h.unregister(registered)
			}
			conversationID = resp.ConversationID
			registered = conversationID
			h.register(conversationID, &wsConn{conn: conn, done: make(chan struct{})})
		} else if registered == "" {
			registered = conversationID
			h.register(conversationID, &wsConn{conn: conn, done: make(chan struct{})})
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:           "message",
			Text:           resp.Message,
			Role:           "assistant",
			ConversationID: resp.ConversationID,
			Slots:          resp.AvailableSlots,
			ShouldClose:    resp.ShouldClose,
			Timestamp:      resp.CreatedAt.Format(time.RFC3339),
		})
	}
}

func (h *Handler) register(conversationID string, wsc *wsConn) {
	h.mu.Lock()
	h.sessions[conversationID] = wsc
	h.mu.Unlock()
}

func (h *Handler) unregister(conversationID string) {
	h.mu.Lock()
	if wsc, ok := h.sessions[conversationID]; ok {
		delete(h.sessions, conversationID)
		close(wsc.done)
	}
	h.mu.Unlock()
}

// SendToConversation pushes a message to the conversation's live socket, if
// one is open. Returns false when the visitor is not connected.
func (h *Handler) SendToConversation(conversationID string, msg OutboundMessage) bool {
	h.mu.RLock()
	wsc, ok := h.sessions[conversationID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return websocket.JSON.Send(wsc.conn, msg) == nil
}

// HandleAgentMessage lets a dashboard agent push a reply into a live widget
// session during human takeover.
func (h *Handler) HandleAgentMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "conversation_id and text are required", http.StatusBadRequest)
		return
	}

	conv, err := h.convs.Get(r.Context(), req.ConversationID)
	if err != nil {
		h.logger.Error("webchat: load conversation failed",
			"conversation_id", req.ConversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if !conv.IsHumanTakeover {
		http.Error(w, "conversation is not in human takeover", http.StatusBadRequest)
		return
	}

	// Persist as an assistant row first so the reply shows up in transcripts
	// and history replay even when the visitor's socket is gone.
	if _, err := h.convs.AppendMessage(r.Context(), req.ConversationID, conversations.RoleAssistant, req.Text, nil); err != nil {
		h.logger.Error("webchat: persist agent message failed",
			"conversation_id", req.ConversationID, "error", err)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	delivered := h.SendToConversation(req.ConversationID, OutboundMessage{
		Type: "message",
		Text: req.Text,
		Role: "agent",
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"delivered": delivered})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, chat.ErrBusinessNotFound):
		return "business not found"
	case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, chat.ErrConversationMismatch):
		return "conversation not found"
	default:
		return "Sorry, something went wrong. Please try again."
	}
}
