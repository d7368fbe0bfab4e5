package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the pgx surface the repository needs. Both pgxpool.Pool and
// pgxmock satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists conversations and their messages.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by a pgx pool (or mock).
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("conversations: db required")
	}
	return &Repository{db: db}
}

// Create starts a new conversation.
func (r *Repository) Create(ctx context.Context, businessID, visitorID, channel string) (*Conversation, error) {
	if channel == "" {
		channel = ChannelWidget
	}
	const query = `
		INSERT INTO conversations (id, business_id, visitor_id, channel)
		VALUES ($1, $2, $3, $4)
		RETURNING id, business_id, visitor_id, channel, is_human_takeover, created_at, updated_at`

	var c Conversation
	err := r.db.QueryRow(ctx, query, uuid.NewString(), businessID, visitorID, channel).Scan(
		&c.ID, &c.BusinessID, &c.VisitorID, &c.Channel, &c.IsHumanTakeover, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("conversations: create: %w", err)
	}
	return &c, nil
}

// Get loads a conversation. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Conversation, error) {
	const query = `
		SELECT id, business_id, visitor_id, channel,
		       COALESCE(visitor_name, ''), COALESCE(visitor_email, ''), COALESCE(visitor_phone, ''),
		       is_human_takeover, COALESCE(rating, ''), COALESCE(rating_comment, ''), rated_at,
		       created_at, updated_at
		FROM conversations WHERE id = $1`

	var c Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.BusinessID, &c.VisitorID, &c.Channel,
		&c.VisitorName, &c.VisitorEmail, &c.VisitorPhone,
		&c.IsHumanTakeover, &c.Rating, &c.RatingComment, &c.RatedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversations: load: %w", err)
	}
	return &c, nil
}

// UpdateVisitorInfo records the lead-capture form fields on the conversation.
// Empty fields are left untouched.
func (r *Repository) UpdateVisitorInfo(ctx context.Context, id, name, email, phone string) error {
	const query = `
		UPDATE conversations SET
			visitor_name = COALESCE(NULLIF($2, ''), visitor_name),
			visitor_email = COALESCE(NULLIF($3, ''), visitor_email),
			visitor_phone = COALESCE(NULLIF($4, ''), visitor_phone),
			updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, name, email, phone)
	if err != nil {
		return fmt.Errorf("conversations: update visitor info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversations: conversation %s not found", id)
	}
	return nil
}

// Touch bumps updated_at so the dashboard sorts active conversations first.
func (r *Repository) Touch(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `UPDATE conversations SET updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("conversations: touch: %w", err)
	}
	return nil
}

// SetTakeover flips human takeover on or off.
func (r *Repository) SetTakeover(ctx context.Context, id string, takeover bool) error {
	const query = `UPDATE conversations SET is_human_takeover = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, takeover)
	if err != nil {
		return fmt.Errorf("conversations: set takeover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversations: conversation %s not found", id)
	}
	return nil
}

// Rate records the visitor's thumbs up/down.
func (r *Repository) Rate(ctx context.Context, id, rating, comment string) error {
	const query = `
		UPDATE conversations SET rating = $2, rating_comment = $3, rated_at = now(), updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, rating, comment)
	if err != nil {
		return fmt.Errorf("conversations: rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversations: conversation %s not found", id)
	}
	return nil
}

// AppendMessage stores one turn. Media is serialized to jsonb; nil media is
// stored as SQL NULL.
func (r *Repository) AppendMessage(ctx context.Context, conversationID, role, content string, media []Media) (*Message, error) {
	var mediaJSON []byte
	if len(media) > 0 {
		var err error
		mediaJSON, err = json.Marshal(media)
		if err != nil {
			return nil, fmt.Errorf("conversations: encode media: %w", err)
		}
	}

	const query = `
		INSERT INTO messages (id, conversation_id, role, content, media)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	msg := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Media:          media,
	}
	err := r.db.QueryRow(ctx, query, uuid.NewString(), conversationID, role, content, mediaJSON).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversations: append message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages oldest-first. limit <= 0
// means no limit.
func (r *Repository) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, media, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversations: list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m         Message
			mediaJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &mediaJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversations: scan message: %w", err)
		}
		if len(mediaJSON) > 0 {
			if err := json.Unmarshal(mediaJSON, &m.Media); err != nil {
				return nil, fmt.Errorf("conversations: decode media: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversations: iterate messages: %w", err)
	}
	return messages, nil
}
