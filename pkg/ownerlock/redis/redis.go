// Package redis implements ownerlock.Locker across processes with a
// SET NX PX lease per owner.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/ownerlock"
)

const (
	defaultKeyPrefix    = "recall:ownerlock:"
	defaultTTL          = 30 * time.Second
	defaultRetryDelay   = 25 * time.Millisecond
	defaultMaxRetryWait = 500 * time.Millisecond
)

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds configuration for the redis Locker.
type Config struct {
	// KeyPrefix namespaces lock keys. Defaults to "recall:ownerlock:".
	KeyPrefix string

	// TTL bounds how long a crashed holder can block an owner.
	TTL time.Duration

	// RetryDelay is the first wait between attempts; it doubles up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Locker is a redis-backed ownerlock.Locker.
type Locker struct {
	client goredis.Cmdable
	cfg    Config
	logger *slog.Logger
}

// NewClient connects to addr and verifies it with PING.
func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// New creates a Locker on an existing client.
func New(client goredis.Cmdable, cfg Config, log *slog.Logger) *Locker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryWait
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{client: client, cfg: cfg, logger: log}
}

// Lock polls SET NX until it wins or ctx is done.
func (l *Locker) Lock(ctx context.Context, owner string) (ownerlock.Unlock, error) {
	key := l.cfg.KeyPrefix + owner
	token := uuid.NewString()
	delay := l.cfg.RetryDelay

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring owner lock %q: %w", owner, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for owner lock %q: %w", owner, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.cfg.MaxRetryDelay {
			delay = l.cfg.MaxRetryDelay
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		// The caller's context may already be canceled; the release must
		// still reach redis.
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("releasing owner lock", "owner_id", owner, "error", err)
		}
	}, nil
}

var _ ownerlock.Locker = (*Locker)(nil)
