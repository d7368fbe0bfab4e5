package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier is the pgx query surface the repository needs. Both pgxpool.Pool
// and pgxmock satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists businesses and their chatbot configuration.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by a pgx pool (or mock).
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("business: db required")
	}
	return &Repository{db: db}
}

// GetBusiness loads a business by id. Returns (nil, nil) when absent.
func (r *Repository) GetBusiness(ctx context.Context, id string) (*Business, error) {
	const query = `
		SELECT id, name, email, description, language, created_at, updated_at
		FROM businesses WHERE id = $1`

	var b Business
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Email, &b.Description, &b.Language, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("business: load business: %w", err)
	}
	return &b, nil
}

// NameAndLanguage is a light lookup for notification and transcript senders.
func (r *Repository) NameAndLanguage(ctx context.Context, businessID string) (string, string, error) {
	const query = `SELECT name, language FROM businesses WHERE id = $1`

	var name, language string
	err := r.db.QueryRow(ctx, query, businessID).Scan(&name, &language)
	if err != nil {
		return "", "", fmt.Errorf("business: load name: %w", err)
	}
	return name, language, nil
}

// CreateBusiness registers a new tenant. Language defaults to French.
func (r *Repository) CreateBusiness(ctx context.Context, name, email, description, language string) (*Business, error) {
	if language == "" {
		language = "fr"
	}
	const query = `
		INSERT INTO businesses (id, name, email, description, language)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, description, language, created_at, updated_at`

	var b Business
	err := r.db.QueryRow(ctx, query, uuid.NewString(), name, email, description, language).Scan(
		&b.ID, &b.Name, &b.Email, &b.Description, &b.Language, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("business: create business: %w", err)
	}
	return &b, nil
}

// GetConfig loads a business's chatbot configuration. Returns (nil, nil) when
// the business has not configured its bot yet; callers fall back to defaults.
func (r *Repository) GetConfig(ctx context.Context, businessID string) (*Config, error) {
	const query = `
		SELECT id, business_id, welcome_message, welcome_message_en,
		       away_message, away_message_en, manual_away,
		       faqs, products, custom_instructions,
		       widget_settings, lead_capture_config,
		       created_at, updated_at
		FROM business_configs WHERE business_id = $1`

	var (
		c             Config
		faqsJSON      []byte
		productsJSON  []byte
		widgetJSON    []byte
		leadJSON      []byte
	)
	err := r.db.QueryRow(ctx, query, businessID).Scan(
		&c.ID, &c.BusinessID, &c.WelcomeMessage, &c.WelcomeMessageEN,
		&c.AwayMessage, &c.AwayMessageEN, &c.ManualAway,
		&faqsJSON, &productsJSON, &c.CustomInstructions,
		&widgetJSON, &leadJSON,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("business: load config: %w", err)
	}

	if len(faqsJSON) > 0 {
		if err := json.Unmarshal(faqsJSON, &c.FAQs); err != nil {
			return nil, fmt.Errorf("business: decode faqs: %w", err)
		}
	}
	if len(productsJSON) > 0 {
		if err := json.Unmarshal(productsJSON, &c.Products); err != nil {
			return nil, fmt.Errorf("business: decode products: %w", err)
		}
	}
	if len(widgetJSON) > 0 {
		if err := json.Unmarshal(widgetJSON, &c.WidgetSettings); err != nil {
			return nil, fmt.Errorf("business: decode widget settings: %w", err)
		}
	}
	if len(leadJSON) > 0 {
		if err := json.Unmarshal(leadJSON, &c.LeadCapture); err != nil {
			return nil, fmt.Errorf("business: decode lead capture config: %w", err)
		}
	}
	return &c, nil
}

// UpsertConfig creates or replaces a business's chatbot configuration.
func (r *Repository) UpsertConfig(ctx context.Context, businessID string, c *Config) (*Config, error) {
	faqsJSON, err := json.Marshal(c.FAQs)
	if err != nil {
		return nil, fmt.Errorf("business: encode faqs: %w", err)
	}
	productsJSON, err := json.Marshal(c.Products)
	if err != nil {
		return nil, fmt.Errorf("business: encode products: %w", err)
	}
	widgetJSON, err := json.Marshal(c.WidgetSettings)
	if err != nil {
		return nil, fmt.Errorf("business: encode widget settings: %w", err)
	}
	leadJSON, err := json.Marshal(c.LeadCapture)
	if err != nil {
		return nil, fmt.Errorf("business: encode lead capture config: %w", err)
	}

	const query = `
		INSERT INTO business_configs (id, business_id, welcome_message, welcome_message_en,
			away_message, away_message_en, manual_away, faqs, products,
			custom_instructions, widget_settings, lead_capture_config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (business_id) DO UPDATE SET
			welcome_message = EXCLUDED.welcome_message,
			welcome_message_en = EXCLUDED.welcome_message_en,
			away_message = EXCLUDED.away_message,
			away_message_en = EXCLUDED.away_message_en,
			manual_away = EXCLUDED.manual_away,
			faqs = EXCLUDED.faqs,
			products = EXCLUDED.products,
			custom_instructions = EXCLUDED.custom_instructions,
			widget_settings = EXCLUDED.widget_settings,
			lead_capture_config = EXCLUDED.lead_capture_config,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	out := *c
	out.BusinessID = businessID
	err = r.db.QueryRow(ctx, query,
		uuid.NewString(), businessID, c.WelcomeMessage, c.WelcomeMessageEN,
		c.AwayMessage, c.AwayMessageEN, c.ManualAway, faqsJSON, productsJSON,
		c.CustomInstructions, widgetJSON, leadJSON,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("business: upsert config: %w", err)
	}
	return &out, nil
}

// SetManualAway toggles the manual away flag without touching the rest of the
// config.
func (r *Repository) SetManualAway(ctx context.Context, businessID string, away bool) error {
	const query = `
		UPDATE business_configs SET manual_away = $2, updated_at = now()
		WHERE business_id = $1
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query, businessID, away).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("business: no config for business %s", businessID)
	}
	if err != nil {
		return fmt.Errorf("business: set manual away: %w", err)
	}
	return nil
}
