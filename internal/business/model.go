package business

import "time"

// Business is a tenant on the platform.
type Business struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Description string    `json:"description"`
	Language    string    `json:"language"` // "fr" or "en"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FAQ is one question/answer pair fed to the assistant.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Product is a product or service the assistant can describe.
type Product struct {
	Name        string `json:"name"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description"`
}

// WidgetSettings controls how the embedded widget renders.
type WidgetSettings struct {
	PrimaryColor           string `json:"primary_color"`
	Position               string `json:"position"`
	WelcomeMessageLanguage string `json:"welcome_message_language"`
}

// DefaultWidgetSettings are used when a business has not customized the widget.
var DefaultWidgetSettings = WidgetSettings{
	PrimaryColor:           "#0ea5e9",
	Position:               "bottom-right",
	WelcomeMessageLanguage: "auto",
}

// LeadCaptureConfig describes the pre-chat form shown to new visitors.
type LeadCaptureConfig struct {
	Enabled       bool `json:"enabled"`
	RequireName   bool `json:"require_name"`
	RequireEmail  bool `json:"require_email"`
	RequirePhone  bool `json:"require_phone"`
	SkipAllowed   bool `json:"skip_allowed"`
}

// Config is the per-business chatbot configuration.
type Config struct {
	ID                 string             `json:"id"`
	BusinessID         string             `json:"business_id"`
	WelcomeMessage     string             `json:"welcome_message"`
	WelcomeMessageEN   string             `json:"welcome_message_en"`
	AwayMessage        string             `json:"away_message"`
	AwayMessageEN      string             `json:"away_message_en"`
	ManualAway         bool               `json:"manual_away"`
	FAQs               []FAQ              `json:"faqs"`
	Products           []Product          `json:"products"`
	CustomInstructions string             `json:"custom_instructions"`
	WidgetSettings     *WidgetSettings    `json:"widget_settings"`
	LeadCapture        *LeadCaptureConfig `json:"lead_capture_config"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Default messages, French first: the platform's home market is francophone.
const (
	DefaultWelcomeFR = "Bonjour! Comment puis-je vous aider?"
	DefaultWelcomeEN = "Hello! How can I help you?"
	DefaultAwayFR    = "Nous sommes actuellement indisponibles. Laissez-nous un message et nous vous recontacterons."
	DefaultAwayEN    = "We are currently unavailable. Leave us a message and we will get back to you."
)

// WelcomeFor returns the welcome message for the given language, falling back
// to the defaults when the config is missing or empty.
func (c *Config) WelcomeFor(language string) string {
	if language == "en" {
		if c != nil && c.WelcomeMessageEN != "" {
			return c.WelcomeMessageEN
		}
		return DefaultWelcomeEN
	}
	if c != nil && c.WelcomeMessage != "" {
		return c.WelcomeMessage
	}
	return DefaultWelcomeFR
}
