package conversations

import "time"

// Channel the conversation arrived on.
const ChannelWidget = "widget"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Media is an attachment on a message (images from the widget uploader).
type Media struct {
	Type string `json:"type"` // "image"
	URL  string `json:"url"`
}

// Message is one turn of a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Media          []Media   `json:"media,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation groups the messages of one widget session.
type Conversation struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	VisitorID       string     `json:"visitor_id"`
	Channel         string     `json:"channel"`
	VisitorName     string     `json:"visitor_name,omitempty"`
	VisitorEmail    string     `json:"visitor_email,omitempty"`
	VisitorPhone    string     `json:"visitor_phone,omitempty"`
	IsHumanTakeover bool       `json:"is_human_takeover"`
	Rating          string     `json:"rating,omitempty"` // "positive" or "negative"
	RatingComment   string     `json:"rating_comment,omitempty"`
	RatedAt         *time.Time `json:"rated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// WithMessages is a conversation plus its full message history, as served to
// the dashboard.
type WithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}
