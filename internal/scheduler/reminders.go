package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

const reminderQueueKey = "reminders:due"

// reminder is one queued reminder entry. The raw member string is kept so
// the dispatcher can remove exactly the entry it consumed.
type reminder struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`

	raw string `json:"-"`
}

// RedisScheduler is a minimal Scheduler used when the Mongo-backed job
// runner is not wired: reminders land in a sorted set scored by their due
// time and the maintenance sweep dispatches them.
type RedisScheduler struct {
	client *redis.Client
}

func NewRedisScheduler(client *redis.Client) *RedisScheduler {
	return &RedisScheduler{client: client}
}

func (s *RedisScheduler) Schedule(ctx context.Context, taskType string, payload map[string]any, runAt time.Time) (string, error) {
	if taskType != TaskReminder {
		return "", fmt.Errorf("scheduler: unsupported task type %q", taskType)
	}

	rem := reminder{
		ID:      uuid.NewString(),
		Email:   stringField(payload, "email"),
		Subject: stringField(payload, "subject"),
		Body:    stringField(payload, "body"),
	}
	member, err := json.Marshal(rem)
	if err != nil {
		return "", fmt.Errorf("scheduler: encode reminder: %w", err)
	}

	err = s.client.ZAdd(ctx, reminderQueueKey, redis.Z{
		Score:  float64(runAt.Unix()),
		Member: string(member),
	}).Err()
	if err != nil {
		return "", errx.WrapRedis(err)
	}
	return rem.ID, nil
}

func (m *Maintenance) dueReminders(ctx context.Context) ([]reminder, error) {
	members, err := m.client.ZRangeByScore(ctx, reminderQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	out := make([]reminder, 0, len(members))
	for _, member := range members {
		var rem reminder
		if err := json.Unmarshal([]byte(member), &rem); err != nil {
			continue
		}
		rem.raw = member
		out = append(out, rem)
	}
	return out, nil
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
