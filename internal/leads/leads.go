package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

// Lead is one captured contact, created by the save-lead tool during a
// conversation with a tenant's chatbot.
type Lead struct {
	ID             string    `json:"id"`
	ChatbotID      string    `json:"chatbot_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists captured leads per chatbot.
type Store interface {
	Save(ctx context.Context, lead *Lead) error
	List(ctx context.Context, chatbotID string) ([]*Lead, error)
}

const leadListPrefix = "leads:"

// RedisStore keeps leads in a per-chatbot list.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, lead *Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: encode lead: %w", err)
	}
	if err := s.client.RPush(ctx, leadListPrefix+lead.ChatbotID, payload).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, chatbotID string) ([]*Lead, error) {
	raw, err := s.client.LRange(ctx, leadListPrefix+chatbotID, 0, -1).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	out := make([]*Lead, 0, len(raw))
	for _, item := range raw {
		var lead Lead
		if err := json.Unmarshal([]byte(item), &lead); err != nil {
			continue
		}
		out = append(out, &lead)
	}
	return out, nil
}
