package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

// Repository persists the transcript of one conversation. The HTTP layer
// appends each user message and the final assistant reply after a turn
// completes.
type Repository interface {
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error
	LoadHistory(ctx context.Context, conversationID string) (*History, error)
	ClearHistory(ctx context.Context, conversationID string) error
	MessageCount(ctx context.Context, conversationID string) (int, error)
}

// History is a loaded transcript with its identifier.
type History struct {
	ConversationID string
	Messages       []*schema.Message
}

const conversationKeyPrefix = "conversation:"

// RedisRepository keeps each transcript as a Redis list with a sliding TTL:
// every write refreshes the expiry so active conversations survive and idle
// ones age out.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func key(conversationID string) string {
	return conversationKeyPrefix + conversationID
}

func (r *RedisRepository) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("conversation: encode message: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key(conversationID), payload)
	pipe.Expire(ctx, key(conversationID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) LoadHistory(ctx context.Context, conversationID string) (*History, error) {
	raw, err := r.client.LRange(ctx, key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	messages := make([]*schema.Message, 0, len(raw))
	for _, item := range raw {
		var msg schema.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// Skip corrupt entries rather than failing the whole turn.
			continue
		}
		messages = append(messages, &msg)
	}

	return &History{ConversationID: conversationID, Messages: messages}, nil
}

func (r *RedisRepository) ClearHistory(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, key(conversationID)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) MessageCount(ctx context.Context, conversationID string) (int, error) {
	n, err := r.client.LLen(ctx, key(conversationID)).Result()
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}
