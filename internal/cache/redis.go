package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 3
	dialTimeout     = 2 * time.Second
)

// Connect parses redisURL, creates a client, and verifies connectivity with a
// ping. The ping is retried a few times so the server can start alongside Redis.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = "tripsim"
	}
	opts.DialTimeout = dialTimeout

	client := redis.NewClient(opts)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(eb, connectAttempts-1), ctx)

	ping := func() error { return client.Ping(ctx).Err() }
	if err := backoff.Retry(ping, b); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}
