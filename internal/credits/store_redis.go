package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/blissito/formmy-agent-core/internal/core/errx"
)

const accountKeyPrefix = "credits:account:"

// RedisStore persists accounts as JSON values guarded by a version counter.
// Save runs WATCH + MULTI so two concurrent spends against one account
// cannot both commit from the same stale read.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func accountKey(userID string) string {
	return accountKeyPrefix + userID
}

func versionKey(userID string) string {
	return accountKeyPrefix + userID + ":v"
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Account, uint64, error) {
	raw, err := s.client.Get(ctx, accountKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrAccountNotFound
	}
	if err != nil {
		return nil, 0, errx.WrapRedis(err)
	}

	var acc Account
	if err := json.Unmarshal([]byte(raw), &acc); err != nil {
		return nil, 0, fmt.Errorf("credits: decode account %s: %w", userID, err)
	}

	version, err := s.client.Get(ctx, versionKey(userID)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, errx.WrapRedis(err)
	}
	return &acc, version, nil
}

func (s *RedisStore) Save(ctx context.Context, acc *Account, version uint64) error {
	payload, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("credits: encode account %s: %w", acc.UserID, err)
	}

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(acc.UserID)).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey(acc.UserID), payload, 0)
			pipe.Set(ctx, versionKey(acc.UserID), version+1, 0)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txn, versionKey(acc.UserID))
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between WATCH and EXEC.
		return ErrVersionConflict
	}
	if errors.Is(err, ErrVersionConflict) {
		return ErrVersionConflict
	}
	if err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
