package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenhq/raven-platform/internal/appointments"
	"github.com/ravenhq/raven-platform/internal/availability"
	"github.com/ravenhq/raven-platform/internal/business"
	"github.com/ravenhq/raven-platform/internal/conversations"
	"github.com/ravenhq/raven-platform/internal/notify"
)

type fakeBusinessStore struct {
	biz *business.Business
	cfg *business.Config
}

func (f *fakeBusinessStore) GetBusiness(_ context.Context, id string) (*business.Business, error) {
	if f.biz == nil || f.biz.ID != id {
		return nil, nil
	}
	return f.biz, nil
}

func (f *fakeBusinessStore) GetConfig(_ context.Context, _ string) (*business.Config, error) {
	return f.cfg, nil
}

type fakeConversationStore struct {
	conv     *conversations.Conversation
	messages []conversations.Message
	touched  int
}

func (f *fakeConversationStore) Create(_ context.Context, businessID, visitorID, channel string) (*conversations.Conversation, error) {
	f.conv = &conversations.Conversation{
		ID:         "conv-1",
		BusinessID: businessID,
		VisitorID:  visitorID,
		Channel:    channel,
	}
	return f.conv, nil
}

func (f *fakeConversationStore) Get(_ context.Context, id string) (*conversations.Conversation, error) {
	if f.conv == nil || f.conv.ID != id {
		return nil, nil
	}
	return f.conv, nil
}

func (f *fakeConversationStore) UpdateVisitorInfo(_ context.Context, _, name, email, phone string) error {
	f.conv.VisitorName = name
	f.conv.VisitorEmail = email
	f.conv.VisitorPhone = phone
	return nil
}

func (f *fakeConversationStore) Touch(_ context.Context, _ string) error {
	f.touched++
	return nil
}

func (f *fakeConversationStore) AppendMessage(_ context.Context, conversationID, role, content string, media []conversations.Media) (*conversations.Message, error) {
	msg := conversations.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Media:          media,
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeConversationStore) ListMessages(_ context.Context, _ string, _ int) ([]conversations.Message, error) {
	out := make([]conversations.Message, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeConversationStore) lastMessage() conversations.Message {
	return f.messages[len(f.messages)-1]
}

type fakeAvailabilityStore struct {
	settings *availability.Settings
}

func (f *fakeAvailabilityStore) Get(_ context.Context, _ string) (*availability.Settings, error) {
	return f.settings, nil
}

type fakeAppointmentStore struct {
	created   []appointments.CreateParams
	reject    bool
	createErr error
}

func (f *fakeAppointmentStore) Create(_ context.Context, params appointments.CreateParams) (*appointments.Appointment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.reject {
		return nil, nil
	}
	f.created = append(f.created, params)
	return &appointments.Appointment{
		ID:              "appt-1",
		BusinessID:      params.BusinessID,
		Date:            params.Date,
		Time:            params.Time,
		DurationMinutes: params.DurationMinutes,
		Status:          appointments.StatusPending,
	}, nil
}

func (f *fakeAppointmentStore) ListBookedIntervals(_ context.Context, _, _, _ string) ([]availability.BookedInterval, error) {
	return nil, nil
}

type fakeLLM struct {
	text  string
	err   error
	calls int
}

func (f *fakeLLM) Complete(_ context.Context, _ LLMRequest) (LLMResponse, error) {
	f.calls++
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text}, nil
}

type fakeNotifier struct {
	sent []notify.AppointmentNotification
}

func (f *fakeNotifier) SendAppointmentConfirmation(_ context.Context, n notify.AppointmentNotification) error {
	f.sent = append(f.sent, n)
	return nil
}

type fixture struct {
	svc           *Service
	businesses    *fakeBusinessStore
	conversations *fakeConversationStore
	appointments  *fakeAppointmentStore
	llm           *fakeLLM
	notifier      *fakeNotifier
}

// Monday 2024-02-05 08:00 UTC; the weekly schedule below opens Monday morning.
var orchestratorNow = time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)

func newFixture(settings *availability.Settings) *fixture {
	f := &fixture{
		businesses: &fakeBusinessStore{
			biz: &business.Business{ID: "biz-1", Name: "Salon Belle", Description: "A hair salon", Language: "en"},
			cfg: &business.Config{BusinessID: "biz-1", WelcomeMessageEN: "Welcome to Salon Belle!"},
		},
		conversations: &fakeConversationStore{},
		appointments:  &fakeAppointmentStore{},
		llm:           &fakeLLM{text: "Sure, happy to help."},
		notifier:      &fakeNotifier{},
	}
	f.svc = NewService(ServiceConfig{
		Businesses:    f.businesses,
		Conversations: f.conversations,
		Availability:  &fakeAvailabilityStore{settings: settings},
		Appointments:  f.appointments,
		LLM:           f.llm,
		Notifier:      f.notifier,
		Now:           func() time.Time { return orchestratorNow },
	})
	return f
}

func bookableSettings() *availability.Settings {
	return &availability.Settings{
		BusinessID: "biz-1",
		WeeklySchedule: availability.WeeklySchedule{
			"monday": {Enabled: true, Slots: []availability.TimeRange{{Start: "09:00", End: "12:00"}}},
		},
		DefaultDurationMinutes: 60,
		BufferMinutes:          15,
		Timezone:               "UTC",
	}
}

// What the prompt instructs the model to say when offering slots; the keyword
// keeps booking intent alive across later turns.
const slotsReply = "We have available slots. Please choose a time by clicking one of the buttons below."

func TestHandleMessageNewConversation(t *testing.T) {
	f := newFixture(nil)

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "What are your prices?",
	})
	require.NoError(t, err)

	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "Sure, happy to help.", resp.Message)
	assert.False(t, resp.ShouldClose)
	assert.Empty(t, resp.AvailableSlots)

	// Welcome, user message, assistant reply — in that order.
	require.Len(t, f.conversations.messages, 3)
	assert.Equal(t, conversations.RoleAssistant, f.conversations.messages[0].Role)
	assert.Equal(t, "Welcome to Salon Belle!", f.conversations.messages[0].Content)
	assert.Equal(t, conversations.RoleUser, f.conversations.messages[1].Role)
	assert.Equal(t, conversations.RoleAssistant, f.conversations.messages[2].Role)
}

func TestHandleMessageUnknownBusiness(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "nope",
		VisitorID:  "visitor-1",
		Message:    "hello",
	})
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestHandleMessageConversationMismatch(t *testing.T) {
	f := newFixture(nil)
	f.conversations.conv = &conversations.Conversation{ID: "conv-9", BusinessID: "other-biz"}

	_, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID:     "biz-1",
		ConversationID: "conv-9",
		VisitorID:      "visitor-1",
		Message:        "hello",
	})
	assert.ErrorIs(t, err, ErrConversationMismatch)
}

func TestHandleMessageHumanTakeover(t *testing.T) {
	f := newFixture(nil)
	f.conversations.conv = &conversations.Conversation{ID: "conv-1", BusinessID: "biz-1", IsHumanTakeover: true}

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID:     "biz-1",
		ConversationID: "conv-1",
		VisitorID:      "visitor-1",
		Message:        "anyone there?",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsHumanTakeover)
	assert.Equal(t, "Message received. An agent will respond shortly.", resp.Message)
	assert.Zero(t, f.llm.calls, "no AI reply during takeover")
}

func TestHandleMessageIntentOffersSlots(t *testing.T) {
	f := newFixture(bookableSettings())

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "I'd like to book an appointment",
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AvailableSlots)
	first := resp.AvailableSlots[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "2024-02-05", first.Date)
	assert.Equal(t, "09:00", first.Time)
	assert.Equal(t, "Monday 05 February at 09:00", first.Display)
	assert.Empty(t, f.appointments.created)
}

func TestHandleMessageCompletesBooking(t *testing.T) {
	f := newFixture(bookableSettings())
	f.llm.text = slotsReply

	ctx := context.Background()
	send := func(msg string) *ChatResponse {
		resp, err := f.svc.HandleMessage(ctx, ChatRequest{
			BusinessID:     "biz-1",
			ConversationID: conversationID(f),
			VisitorID:      "visitor-1",
			Message:        msg,
		})
		require.NoError(t, err)
		return resp
	}

	send("Can I book an appointment?")
	send("Monday 05 February at 10:15")
	resp := send("Alice Ngono, alice@example.com")

	require.Len(t, f.appointments.created, 1)
	created := f.appointments.created[0]
	assert.Equal(t, "Alice Ngono", created.CustomerName)
	assert.Equal(t, "alice@example.com", created.CustomerEmail)
	assert.Equal(t, "2024-02-05", created.Date)
	assert.Equal(t, "10:15", created.Time)
	assert.Equal(t, 60, created.DurationMinutes)
	assert.Equal(t, "conv-1", created.ConversationID)

	assert.Contains(t, resp.Message, "✅ Appointment confirmed for 2024-02-05 at 10:15")
	assert.Empty(t, resp.AvailableSlots, "no buttons after booking")

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "appt-1", f.notifier.sent[0].AppointmentID)
	assert.Equal(t, "Salon Belle", f.notifier.sent[0].BusinessName)
}

func TestHandleMessageSlotSelectedHidesButtons(t *testing.T) {
	f := newFixture(bookableSettings())
	ctx := context.Background()

	_, err := f.svc.HandleMessage(ctx, ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "book please",
	})
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, ChatRequest{
		BusinessID:     "biz-1",
		ConversationID: "conv-1",
		VisitorID:      "visitor-1",
		Message:        "Monday 05 February at 09:00",
	})
	require.NoError(t, err)

	// Slot chosen but name/email still missing: no appointment, no buttons.
	assert.Empty(t, f.appointments.created)
	assert.Empty(t, resp.AvailableSlots)
}

func TestHandleMessageCreationRejected(t *testing.T) {
	f := newFixture(bookableSettings())
	f.appointments.reject = true
	f.llm.text = slotsReply
	ctx := context.Background()

	send := func(msg string) *ChatResponse {
		resp, err := f.svc.HandleMessage(ctx, ChatRequest{
			BusinessID:     "biz-1",
			ConversationID: conversationID(f),
			VisitorID:      "visitor-1",
			Message:        msg,
		})
		require.NoError(t, err)
		return resp
	}

	send("book an appointment")
	send("Monday 05 February at 09:00")
	resp := send("Alice Ngono, alice@example.com")

	assert.NotContains(t, resp.Message, "✅")
	assert.Empty(t, f.notifier.sent, "no notification on failed creation")
}

func TestHandleMessageLLMFailureFallsBack(t *testing.T) {
	f := newFixture(nil)
	f.llm.err = errors.New("rate limited")

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, apologyFallback, resp.Message)
}

func TestHandleMessageEmptyLLMReplyFallsBack(t *testing.T) {
	f := newFixture(nil)
	f.llm.text = "   "

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you with Salon Belle's services?", resp.Message)
}

func TestHandleMessageClosingSkipsLLM(t *testing.T) {
	f := newFixture(nil)

	resp, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		BusinessID: "biz-1",
		VisitorID:  "visitor-1",
		Message:    "no thanks",
	})
	require.NoError(t, err)

	assert.Zero(t, f.llm.calls)
	assert.True(t, strings.HasPrefix(resp.Message, "Thank you for contacting Salon Belle!"), resp.Message)
}

func TestIsClosing(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"non merci", true},
		{"that's all, thanks", true},
		{"No!", true},
		{"bye", true},
		{"rien", true},
		{"no but I have another question", false},
		{"nothing works on your website", false},
		{"can you book me in?", false},
	}
	for _, tt := range tests {
		if got := isClosing(tt.message); got != tt.want {
			t.Errorf("isClosing(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestShouldClose(t *testing.T) {
	tests := []struct {
		message string
		created bool
		want    bool
	}{
		{"bye", false, true},
		{"merci!", false, true},
		{"à bientôt", false, true},
		{"goodbye and thanks for everything you did today", false, false},
		{"goodbye and thanks for everything you did today", true, true},
		{"see you", false, true},
		{"what time do you open?", false, false},
		{"thanks a lot!", false, true},
	}
	for _, tt := range tests {
		if got := shouldClose(tt.message, tt.created); got != tt.want {
			t.Errorf("shouldClose(%q, %v) = %v, want %v", tt.message, tt.created, got, tt.want)
		}
	}
}

// conversationID returns the running conversation's id, or "" before the
// first turn so HandleMessage creates one.
func conversationID(f *fixture) string {
	if f.conversations.conv == nil {
		return ""
	}
	return f.conversations.conv.ID
}
