package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/business"
	"github.com/ravenhq/raven-platform/internal/conversations"
	"github.com/ravenhq/raven-platform/internal/notify"
	"github.com/ravenhq/raven-platform/pkg/logging"
)

// Sentinel errors the HTTP layer maps to status codes.
var (
	ErrBusinessNotFound     = errors.New("chat: business not found")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrConversationMismatch = errors.New("chat: conversation belongs to another business")
)

// BusinessStore is the business lookup surface the orchestrator needs.
type BusinessStore interface {
	GetBusiness(ctx context.Context, id string) (*business.Business, error)
	GetConfig(ctx context.Context, businessID string) (*business.Config, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	Create(ctx context.Context, businessID, visitorID, channel string) (*conversations.Conversation, error)
	Get(ctx context.Context, id string) (*conversations.Conversation, error)
	UpdateVisitorInfo(ctx context.Context, id, name, email, phone string) error
	Touch(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, conversationID, role, content string, media []conversations.Media) (*conversations.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]conversations.Message, error)
}

// AvailabilityStore loads a business's availability settings.
type AvailabilityStore interface {
	Get(ctx context.Context, businessID string) (*availability.Settings, error)
}

// AppointmentStore books appointments and reports what is already booked.
type AppointmentStore interface {
	Create(ctx context.Context, params appointments.CreateParams) (*appointments.Appointment, error)
	ListBookedIntervals(ctx context.Context, businessID, fromDate, toDate string) ([]availability.BookedInterval, error)
}

// Notifier dispatches booking confirmations. Fire-and-forget: failures are
// logged, never surfaced to the visitor.
type Notifier interface {
	SendAppointmentConfirmation(ctx context.Context, n notify.AppointmentNotification) error
}

// MetricsRecorder counts chat activity. Nil-safe in the service.
type MetricsRecorder interface {
	ObserveChatTurn(language string)
	ObserveBookingCreated()
	ObserveLLMFailure()
}

// ChatRequest is one widget turn.
type ChatRequest struct {
	BusinessID     string                `json:"business_id"`
	ConversationID string                `json:"conversation_id,omitempty"`
	VisitorID      string                `json:"visitor_id"`
	Message        string                `json:"message"`
	VisitorName    string                `json:"visitor_name,omitempty"`
	VisitorEmail   string                `json:"visitor_email,omitempty"`
	VisitorPhone   string                `json:"visitor_phone,omitempty"`
	Media          []conversations.Media `json:"media,omitempty"`
}

// SlotButton is one clickable slot offer rendered by the widget.
type SlotButton struct {
	ID      int    `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Display string `json:"display"`
}

// ChatResponse is the reply for one widget turn.
type ChatResponse struct {
	ConversationID  string       `json:"conversation_id"`
	Message         string       `json:"message"`
	CreatedAt       time.Time    `json:"created_at"`
	AvailableSlots  []SlotButton `json:"available_slots,omitempty"`
	ShouldClose     bool         `json:"should_close"`
	IsHumanTakeover bool         `json:"is_human_takeover"`
}

// ServiceConfig wires the orchestrator's collaborators.
type ServiceConfig struct {
	Businesses    BusinessStore
	Conversations ConversationStore
	Availability  AvailabilityStore
	Appointments  AppointmentStore
	LLM           LLMClient
	Notifier      Notifier
	Metrics       MetricsRecorder
	Logger        *logging.Logger

	// SlotWindowDays is how far ahead slots are offered (default 5).
	SlotWindowDays int
	// MaxChatSlots caps the slot buttons per turn (default 10).
	MaxChatSlots int
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Service runs the conversational booking pipeline.
type Service struct {
	businesses    BusinessStore
	conversations ConversationStore
	availability  AvailabilityStore
	appointments  AppointmentStore
	llm           LLMClient
	notifier      Notifier
	metrics       MetricsRecorder
	logger        *logging.Logger

	slotWindowDays int
	maxChatSlots   int
	now            func() time.Time
}

// NewService builds the chat orchestrator.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.SlotWindowDays <= 0 {
		cfg.SlotWindowDays = 5
	}
	if cfg.MaxChatSlots <= 0 {
		cfg.MaxChatSlots = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		businesses:     cfg.Businesses,
		conversations:  cfg.Conversations,
		availability:   cfg.Availability,
		appointments:   cfg.Appointments,
		llm:            cfg.LLM,
		notifier:       cfg.Notifier,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		slotWindowDays: cfg.SlotWindowDays,
		maxChatSlots:   cfg.MaxChatSlots,
		now:            cfg.Now,
	}
}

// Closing detection. Phrases match as substrings; the exact words only count
// when the whole (short) message is that word, to avoid closing on "no, but
// can I ask something else".
var (
	closingPhrases = []string{
		"non merci", "rien d'autre", "c'est tout", "au revoir", "merci c'est tout",
		"no thanks", "no thank you", "nothing else", "that's all", "goodbye",
	}
	closingExact = []string{"non", "rien", "bye", "no", "nothing"}
)

// Goodbye detection for should_close. Accented French phrases are matched by
// substring: \b in RE2 is ASCII-only and never fires next to "à".
var (
	goodbyePattern   = regexp.MustCompile(`\b(?:bye|goodbye|au revoir|a bientot|ciao|see you|ok bye|ok thanks)\b`)
	thanksOnly       = regexp.MustCompile(`^(?:merci|thank you|thanks|merci beaucoup|thanks a lot)[\s!.]*$`)
	accentedGoodbyes = []string{"à bientôt"}
)

const apologyFallback = "Désolé, je rencontre un problème technique. Veuillez réessayer ou contacter l'entreprise directement."

// HandleMessage runs one chat turn: persist the visitor's message, produce a
// reply (canned, human-takeover ack, or LLM), and drive the booking flow.
func (s *Service) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	biz, err := s.businesses.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("chat: load business: %w", err)
	}
	if biz == nil {
		return nil, ErrBusinessNotFound
	}
	cfg, err := s.businesses.GetConfig(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("chat: load business config: %w", err)
	}

	conv, err := s.resolveConversation(ctx, req, biz, cfg)
	if err != nil {
		return nil, err
	}

	if _, err := s.conversations.AppendMessage(ctx, conv.ID, conversations.RoleUser, req.Message, req.Media); err != nil {
		return nil, fmt.Errorf("chat: save user message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveChatTurn(biz.Language)
	}

	// Human takeover: no AI reply, an agent answers from the dashboard.
	if conv.IsHumanTakeover {
		if err := s.conversations.Touch(ctx, conv.ID); err != nil {
			s.logger.Error("touch conversation failed", "conversation_id", conv.ID, "error", err)
		}
		ack := "Message reçu. Un conseiller vous répondra sous peu."
		if biz.Language == "en" {
			ack = "Message received. An agent will respond shortly."
		}
		return &ChatResponse{
			ConversationID:  conv.ID,
			Message:         ack,
			CreatedAt:       s.now().UTC(),
			IsHumanTakeover: true,
		}, nil
	}

	settings, err := s.availability.Get(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("chat: load availability: %w", err)
	}
	hasAppointments := settings != nil

	history, err := s.conversations.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}

	var slots []availability.Slot
	if hasAppointments {
		slots = s.openSlots(ctx, req.BusinessID, settings)
	}

	reply := s.buildReply(ctx, req.Message, biz, cfg, history, hasAppointments, len(slots) > 0)

	created := false
	var info AppointmentInfo
	intent, flowMessages := s.bookingFlow(req.Message, history, hasAppointments)
	if intent {
		info = ExtractAppointmentInfo(userContents(flowMessages), slots, s.now())
		if info.Complete() {
			created = s.createAppointment(ctx, req.BusinessID, conv.ID, biz, settings, info)
			if created {
				reply += confirmationSuffix(biz.Language, info.Date, info.Time)
			}
		} else {
			s.logger.Info("booking info incomplete",
				"conversation_id", conv.ID,
				"missing", missingFields(info))
		}
	}

	if _, err := s.conversations.AppendMessage(ctx, conv.ID, conversations.RoleAssistant, reply, nil); err != nil {
		return nil, fmt.Errorf("chat: save assistant message: %w", err)
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		s.logger.Error("touch conversation failed", "conversation_id", conv.ID, "error", err)
	}

	resp := &ChatResponse{
		ConversationID: conv.ID,
		Message:        reply,
		CreatedAt:      s.now().UTC(),
		ShouldClose:    shouldClose(req.Message, created),
	}

	// Offer slot buttons only while a selection is still pending.
	slotSelected := intent && slotMatches(info, slots)
	if intent && len(slots) > 0 && !slotSelected && !created {
		resp.AvailableSlots = slotButtons(slots, biz.Language)
	}
	return resp, nil
}

// resolveConversation loads an existing conversation or starts a new one. A
// new conversation gets the lead-capture visitor info and the welcome message
// the widget already displayed, so the model sees it as prior context and
// does not repeat the greeting.
func (s *Service) resolveConversation(ctx context.Context, req ChatRequest, biz *business.Business, cfg *business.Config) (*conversations.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.conversations.Get(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("chat: load conversation: %w", err)
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		if conv.BusinessID != req.BusinessID {
			return nil, ErrConversationMismatch
		}
		return conv, nil
	}

	conv, err := s.conversations.Create(ctx, req.BusinessID, req.VisitorID, conversations.ChannelWidget)
	if err != nil {
		return nil, fmt.Errorf("chat: create conversation: %w", err)
	}

	if req.VisitorName != "" || req.VisitorEmail != "" || req.VisitorPhone != "" {
		if err := s.conversations.UpdateVisitorInfo(ctx, conv.ID, req.VisitorName, req.VisitorEmail, req.VisitorPhone); err != nil {
			s.logger.Error("save visitor info failed", "conversation_id", conv.ID, "error", err)
		}
	}

	welcome := cfg.WelcomeFor(biz.Language)
	if _, err := s.conversations.AppendMessage(ctx, conv.ID, conversations.RoleAssistant, welcome, nil); err != nil {
		s.logger.Error("persist welcome message failed", "conversation_id", conv.ID, "error", err)
	}
	return conv, nil
}

// openSlots computes the bookable slots for the next window. Pending and
// confirmed appointments block slots; a lookup failure degrades to offering
// nothing rather than failing the turn.
func (s *Service) openSlots(ctx context.Context, businessID string, settings *availability.Settings) []availability.Slot {
	now := s.now().In(availability.ResolveLocation(settings.Timezone))
	fromDate := now.Format("2006-01-02")
	toDate := now.AddDate(0, 0, s.slotWindowDays).Format("2006-01-02")

	booked, err := s.appointments.ListBookedIntervals(ctx, businessID, fromDate, toDate)
	if err != nil {
		s.logger.Error("load booked intervals failed", "business_id", businessID, "error", err)
		return nil
	}
	return availability.ComputeSlots(settings, now, s.slotWindowDays, booked, s.maxChatSlots)
}

// buildReply produces the assistant's text: a canned farewell when the
// visitor is done, otherwise an LLM completion with the apology fallback on
// failure and a helpful default on an empty completion.
func (s *Service) buildReply(ctx context.Context, message string, biz *business.Business, cfg *business.Config, history []conversations.Message, hasAppointments, slotsAvailable bool) string {
	if isClosing(message) {
		if biz.Language == "fr" {
			return "Merci d'avoir contacté " + biz.Name + " ! N'hésitez pas à revenir si vous avez besoin d'aide. À bientôt ! 👋"
		}
		return "Thank you for contacting " + biz.Name + "! Feel free to come back if you need help. See you soon! 👋"
	}

	resp, err := s.llm.Complete(ctx, s.buildLLMRequest(biz, cfg, history, hasAppointments, slotsAvailable))
	if err != nil {
		s.logger.Error("llm completion failed", "business_id", biz.ID, "error", err)
		if s.metrics != nil {
			s.metrics.ObserveLLMFailure()
		}
		return apologyFallback
	}
	if strings.TrimSpace(resp.Text) == "" {
		if biz.Language == "fr" {
			return fmt.Sprintf("Bonjour! Comment puis-je vous aider avec les services de %s?", biz.Name)
		}
		return fmt.Sprintf("Hello! How can I help you with %s's services?", biz.Name)
	}
	return resp.Text
}

// llmHistoryLimit bounds the context window; old turns add latency without
// improving answers.
const llmHistoryLimit = 20

func (s *Service) buildLLMRequest(biz *business.Business, cfg *business.Config, history []conversations.Message, hasAppointments, slotsAvailable bool) LLMRequest {
	params := PromptParams{
		BusinessName:    biz.Name,
		Description:     biz.Description,
		Language:        biz.Language,
		WelcomeMessage:  cfg.WelcomeFor(biz.Language),
		HasAppointments: hasAppointments,
		SlotsAvailable:  slotsAvailable,
	}
	if cfg != nil {
		params.FAQs = cfg.FAQs
		params.Products = cfg.Products
		params.CustomInstructions = cfg.CustomInstructions
	}

	recent := history
	if len(recent) > llmHistoryLimit {
		recent = recent[len(recent)-llmHistoryLimit:]
	}
	messages := make([]ChatMessage, 0, len(recent))
	for _, m := range recent {
		role := ChatRoleUser
		if m.Role == conversations.RoleAssistant {
			role = ChatRoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: m.Content})
	}

	return LLMRequest{
		System:    []string{BuildSystemPrompt(params)},
		Messages:  messages,
		MaxTokens: 500,
	}
}

// bookingFlow decides whether a booking flow is active and which messages
// belong to it. A fresh intent in the current message starts a new flow with
// nothing to extract yet; otherwise the flow starts after the most recent
// intent-bearing user message in the last four turns, so greetings sent
// before the request ("Hi Raven") are never mined for names.
func (s *Service) bookingFlow(currentMessage string, history []conversations.Message, hasAppointments bool) (bool, []conversations.Message) {
	if !hasAppointments {
		return false, nil
	}

	if DetectAppointmentIntent(currentMessage) {
		return true, nil
	}

	intent := false
	start := len(history) - 4
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		if DetectAppointmentIntent(m.Content) {
			intent = true
			break
		}
	}
	if !intent {
		return false, nil
	}

	flowStart := 0
	for i := len(history) - 1; i >= 0 && i > len(history)-5; i-- {
		m := history[i]
		if m.Role == conversations.RoleUser && DetectAppointmentIntent(m.Content) {
			flowStart = i + 1
			break
		}
	}
	if flowStart >= len(history) {
		return true, nil
	}
	return true, history[flowStart:]
}

// createAppointment books the appointment and fires the confirmation
// notification. Both failure modes are logged only: the visitor still gets a
// chat reply, just without the confirmation line.
func (s *Service) createAppointment(ctx context.Context, businessID, conversationID string, biz *business.Business, settings *availability.Settings, info AppointmentInfo) bool {
	duration := 60
	if settings != nil && settings.DefaultDurationMinutes > 0 {
		duration = settings.DefaultDurationMinutes
	}

	appt, err := s.appointments.Create(ctx, appointments.CreateParams{
		BusinessID:      businessID,
		ConversationID:  conversationID,
		CustomerName:    info.Name,
		CustomerEmail:   info.Email,
		CustomerPhone:   info.Phone,
		Date:            info.Date,
		Time:            info.Time,
		DurationMinutes: duration,
		ServiceType:     info.Service,
		Notes:           info.Notes,
	})
	if err != nil {
		s.logger.Error("appointment creation failed", "conversation_id", conversationID, "error", err)
		return false
	}
	if appt == nil {
		// Constraint violation, e.g. the slot was taken between turns.
		s.logger.Error("appointment creation rejected", "conversation_id", conversationID)
		return false
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"business_id", businessID,
		"date", info.Date,
		"time", info.Time)
	if s.metrics != nil {
		s.metrics.ObserveBookingCreated()
	}

	if s.notifier != nil {
		err := s.notifier.SendAppointmentConfirmation(ctx, notify.AppointmentNotification{
			AppointmentID:   appt.ID,
			BusinessID:      businessID,
			BusinessName:    biz.Name,
			CustomerName:    info.Name,
			CustomerEmail:   info.Email,
			CustomerPhone:   info.Phone,
			Date:            info.Date,
			Time:            info.Time,
			DurationMinutes: duration,
			ServiceType:     info.Service,
			Notes:           info.Notes,
			Language:        biz.Language,
		})
		if err != nil {
			s.logger.Error("confirmation notification failed", "appointment_id", appt.ID, "error", err)
		}
	}
	return true
}

func confirmationSuffix(language, date, clock string) string {
	if language == "fr" {
		return fmt.Sprintf("\n\n✅ Rendez-vous confirmé pour le %s à %s. Nous vous enverrons un rappel.\n\nY a-t-il autre chose avec laquelle je peux vous aider ?", date, clock)
	}
	return fmt.Sprintf("\n\n✅ Appointment confirmed for %s at %s. We'll send you a reminder.\n\nIs there anything else I can help you with?", date, clock)
}

func isClosing(message string) bool {
	trimmed := strings.TrimRight(strings.ToLower(strings.TrimSpace(message)), ".,!?")
	for _, phrase := range closingPhrases {
		if strings.Contains(trimmed, phrase) {
			return true
		}
	}
	if len(strings.Fields(trimmed)) <= 2 {
		for _, word := range closingExact {
			if trimmed == word {
				return true
			}
		}
	}
	return false
}

func shouldClose(message string, appointmentCreated bool) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	isShort := len(lower) < 30
	if !isShort && !appointmentCreated {
		return false
	}

	if goodbyePattern.MatchString(lower) || thanksOnly.MatchString(lower) {
		return true
	}
	for _, phrase := range accentedGoodbyes {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func slotMatches(info AppointmentInfo, slots []availability.Slot) bool {
	if info.Date == "" || info.Time == "" {
		return false
	}
	for _, slot := range slots {
		if slot.Date == info.Date && slot.Time == info.Time {
			return true
		}
	}
	return false
}

func slotButtons(slots []availability.Slot, language string) []SlotButton {
	connector := " at "
	if language == "fr" {
		connector = " à "
	}
	buttons := make([]SlotButton, len(slots))
	for i, slot := range slots {
		buttons[i] = SlotButton{
			ID:      i + 1,
			Date:    slot.Date,
			Time:    slot.Time,
			Display: slot.DisplayDate + connector + slot.Time,
		}
	}
	return buttons
}

func userContents(messages []conversations.Message) []string {
	var out []string
	for _, m := range messages {
		if m.Role == conversations.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

func missingFields(info AppointmentInfo) string {
	var missing []string
	if info.Name == "" {
		missing = append(missing, "name")
	}
	if info.Email == "" {
		missing = append(missing, "email")
	}
	if info.Date == "" {
		missing = append(missing, "date")
	}
	if info.Time == "" {
		missing = append(missing, "time")
	}
	return strings.Join(missing, ",")
}
