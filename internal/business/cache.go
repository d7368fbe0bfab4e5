package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WidgetInfo is the public payload the embedded widget bootstraps from.
type WidgetInfo struct {
	BusinessID       string             `json:"business_id"`
	Name             string             `json:"name"`
	WelcomeMessage   string             `json:"welcome_message"`
	WelcomeMessageEN string             `json:"welcome_message_en"`
	Language         string             `json:"language"`
	WidgetSettings   WidgetSettings     `json:"widget_settings"`
	IsOnline         bool               `json:"is_online"`
	AwayMessage      string             `json:"away_message"`
	AwayMessageEN    string             `json:"away_message_en"`
	LeadCapture      *LeadCaptureConfig `json:"lead_capture_config,omitempty"`
}

// WidgetCache keeps the widget payload in Redis for a short TTL. The payload
// embeds is_online, which flips at schedule boundaries, so the TTL must stay
// short.
type WidgetCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewWidgetCache builds the cache. ttl <= 0 disables expiry-based reuse and
// falls back to one minute.
func NewWidgetCache(redisClient *redis.Client, ttl time.Duration) *WidgetCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &WidgetCache{redis: redisClient, ttl: ttl}
}

func (c *WidgetCache) key(businessID string) string {
	return "widget:info:" + businessID
}

// Get returns the cached payload, or (nil, nil) on a miss.
func (c *WidgetCache) Get(ctx context.Context, businessID string) (*WidgetInfo, error) {
	data, err := c.redis.Get(ctx, c.key(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("business: widget cache get: %w", err)
	}
	var info WidgetInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("business: widget cache decode: %w", err)
	}
	return &info, nil
}

// Set stores the payload under the configured TTL.
func (c *WidgetCache) Set(ctx context.Context, info *WidgetInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("business: widget cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(info.BusinessID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("business: widget cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload, used after config updates.
func (c *WidgetCache) Invalidate(ctx context.Context, businessID string) error {
	if err := c.redis.Del(ctx, c.key(businessID)).Err(); err != nil {
		return fmt.Errorf("business: widget cache invalidate: %w", err)
	}
	return nil
}
