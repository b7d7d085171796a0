package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

// Store reads and writes chatbot definitions.
type Store interface {
	Get(ctx context.Context, id string) (*Definition, error)
	Save(ctx context.Context, def *Definition) error
	Delete(ctx context.Context, id string) error
}

const definitionKeyPrefix = "chatbot:definition:"

// RedisStore keeps each definition as a JSON value. Definitions are small
// and read on every turn, so they live in the same Redis the rest of the
// core already depends on.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Definition, error) {
	raw, err := s.client.Get(ctx, definitionKeyPrefix+id).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	var def Definition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("chatbot: decode definition %s: %w", id, err)
	}
	return &def, nil
}

func (s *RedisStore) Save(ctx context.Context, def *Definition) error {
	if def.ID == "" {
		return fmt.Errorf("chatbot: definition id is required")
	}
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("chatbot: encode definition %s: %w", def.ID, err)
	}
	if err := s.client.Set(ctx, definitionKeyPrefix+def.ID, payload, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// ListIDs enumerates every stored chatbot id. Used by maintenance jobs;
// request paths never scan.
func (s *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, definitionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), definitionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errx.WrapRedis(err)
	}
	return ids, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, definitionKeyPrefix+id).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
