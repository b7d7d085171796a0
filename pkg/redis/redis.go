// Package redis builds the shared client behind every Redis-backed store
// in the service: conversation transcripts, chatbot definitions, credit
// accounts, the usage audit trail, the search cache and the reminder queue.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is loaded from the environment under the REDIS_ prefix. URL
// carries auth and database selection; timeouts are in seconds. The pool
// is sized for request-path traffic plus the background maintenance jobs.
type Config struct {
	URL          string `split_words:"true" required:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
	PoolSize     int    `split_words:"true" default:"16"`
}

// New connects and pings, so a bad URL or unreachable server fails at
// startup instead of on the first chat turn.
func (r *Config) New() (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = time.Duration(r.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(r.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(r.DialTimeout) * time.Second
	if r.PoolSize > 0 {
		opts.PoolSize = r.PoolSize
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// MustNew is New for the composition root, where a missing Redis means the
// service cannot run at all.
func (r *Config) MustNew() *redis.Client {
	client, err := r.New()
	if err != nil {
		panic(err)
	}

	return client
}
