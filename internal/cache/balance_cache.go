// Package cache holds explicit, time-bounded caches owned by the calling
// context. Nothing in here is authoritative: the persisted record always
// wins and every ledger mutation invalidates eagerly.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
)

// BalanceCache is a TTL-bounded read cache for account balances. A nil
// receiver or nil client disables it, so callers never branch on
// configuration.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewBalanceCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *BalanceCache {
	if client == nil {
		return nil
	}
	return &BalanceCache{client: client, ttl: ttl, logger: logger}
}

func balanceKey(accountID string) string {
	return "balance:" + accountID
}

// Get returns a cached balance, or ok=false on miss, disabled cache, or any
// redis error (errors degrade to a miss).
func (c *BalanceCache) Get(ctx context.Context, accountID string) (*domain.Balance, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, balanceKey(accountID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("cache: balance read failed")
		}
		return nil, false
	}
	var b domain.Balance
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, false
	}
	return &b, true
}

// Set stores a balance snapshot for the configured TTL.
func (c *BalanceCache) Set(ctx context.Context, b *domain.Balance) {
	if c == nil || b == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, balanceKey(b.AccountID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache: balance write failed")
	}
}

// Invalidate drops the cached balance after a ledger mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, accountID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, balanceKey(accountID)).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache: balance invalidate failed")
	}
}
