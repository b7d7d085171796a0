package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

// Record is one append-only audit row for a tool invocation. Written on
// both success and failure paths; never updated, removed only by the
// retention cleanup job.
type Record struct {
	ID          string         `json:"id"`
	ChatbotID   string         `json:"chatbot_id,omitempty"`
	ToolName    string         `json:"tool_name"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	UserMessage string         `json:"user_message,omitempty"`
	Response    string         `json:"response,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

const (
	// Truncation caps for the message/response snippets stored per record.
	maxSnippetLen = 500

	recordListPrefix = "usage:records:"
	dailyKeyPrefix   = "usage:daily:"
)

// Truncate shortens free text to the audit snippet cap.
func Truncate(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	return s[:maxSnippetLen]
}

// Store persists usage records and the per-chatbot per-tool daily counters
// used for tool rate limiting.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	// CountToday returns how many times the tool ran for the chatbot since
	// local midnight. Used for daily quotas (e.g. web search).
	CountToday(ctx context.Context, chatbotID, toolName string) (int, error)
	// DeleteOlderThan removes records past the retention window and
	// returns how many were dropped.
	DeleteOlderThan(ctx context.Context, chatbotID string, cutoff time.Time) (int, error)
}

// RedisStore keeps records in a per-chatbot list and daily counters in
// midnight-expiring keys.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.UserMessage = Truncate(rec.UserMessage)
	rec.Response = Truncate(rec.Response)

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("usage: encode record: %w", err)
	}

	listKey := recordListPrefix + rec.ChatbotID
	dayKey := s.dailyKey(rec.ChatbotID, rec.ToolName, rec.CreatedAt)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, listKey, payload)
	incr := pipe.Incr(ctx, dayKey)
	_ = incr
	pipe.ExpireAt(ctx, dayKey, endOfDay(rec.CreatedAt))
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) CountToday(ctx context.Context, chatbotID, toolName string) (int, error) {
	n, err := s.client.Get(ctx, s.dailyKey(chatbotID, toolName, s.now())).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}

func (s *RedisStore) DeleteOlderThan(ctx context.Context, chatbotID string, cutoff time.Time) (int, error) {
	listKey := recordListPrefix + chatbotID
	removed := 0
	for {
		raw, err := s.client.LIndex(ctx, listKey, 0).Result()
		if err == redis.Nil {
			return removed, nil
		}
		if err != nil {
			return removed, errx.WrapRedis(err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err == nil && !rec.CreatedAt.Before(cutoff) {
			return removed, nil
		}
		if err := s.client.LPop(ctx, listKey).Err(); err != nil {
			return removed, errx.WrapRedis(err)
		}
		removed++
	}
}

func (s *RedisStore) dailyKey(chatbotID, toolName string, at time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", dailyKeyPrefix, chatbotID, toolName, at.Format("2006-01-02"))
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
