package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-ticketshop/internal/logger"

	"github.com/go-redis/redis/v8"
)

const defaultCaptureLockTTL = 30 * time.Second

// CaptureGuard keeps concurrent reconciliations from capturing the same
// gateway order twice.
type CaptureGuard struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewCaptureGuard(client *redis.Client, ttl time.Duration, log *logger.Logger) *CaptureGuard {
	if ttl <= 0 {
		ttl = defaultCaptureLockTTL
	}
	return &CaptureGuard{Client: client, TTL: ttl, Logger: log}
}

func captureKey(remoteOrderID string) string {
	return "capture_lock:" + remoteOrderID
}

// Acquire takes the capture lock for a gateway order. False means another
// caller holds it.
func (g *CaptureGuard) Acquire(ctx context.Context, remoteOrderID, owner string) (bool, error) {
	ok, err := g.Client.SetNX(ctx, captureKey(remoteOrderID), owner, g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire capture lock: %w", err)
	}
	if !ok {
		g.Logger.Debug("REDIS", fmt.Sprintf("Capture lock for %s already held", remoteOrderID))
	}
	return ok, nil
}

// Release drops the lock only if owner still holds it.
func (g *CaptureGuard) Release(ctx context.Context, remoteOrderID, owner string) error {
	key := captureKey(remoteOrderID)
	val, err := g.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if val != owner {
		return nil
	}
	return g.Client.Del(ctx, key).Err()
}
