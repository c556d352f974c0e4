package pagelock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// LockStore is the subset of the Redis client the locker needs.
type LockStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// Redis holds page locks as keys with a TTL so a crashed holder cannot block
// a page forever. Each holder writes a unique token and only deletes the key
// while it still holds that token.
type Redis struct {
	store     LockStore
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
	logger    *slog.Logger
}

func NewRedis(store LockStore, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		store:     store,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: 20 * time.Millisecond,
		logger:    slog.Default().With("component", "pagelock"),
	}
}

// Lock polls until the page lock is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, page int) (func(), error) {
	key := fmt.Sprintf("%spage:%d", r.prefix, page)
	token := uuid.NewString()
	for {
		ok, err := r.store.SetNX(ctx, key, token, r.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for page %d: %w", page, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: page %d: %w", apperrors.ErrLockNotAcquired, page, ctx.Err())
		case <-time.After(r.retryWait):
		}
	}
	return func() {
		released, err := r.store.DelIfEquals(context.WithoutCancel(ctx), key, token)
		if err != nil {
			r.logger.Warn("releasing page lock failed", "page", page, "error", err)
			return
		}
		if !released {
			r.logger.Warn("page lock expired before release", "page", page, "ttl", r.ttl)
		}
	}, nil
}
