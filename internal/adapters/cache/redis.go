package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisRateCache caches resolved exchange rates with a short TTL so a burst
// of conversions does not hammer the rate source. Stale rates are bounded by
// the TTL; the locked rate on the transaction is what capture actually uses.
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRateCache(client *redis.Client, ttl time.Duration) *RedisRateCache {
	return &RedisRateCache{client: client, ttl: ttl}
}

var _ portssvc.RateCache = (*RedisRateCache)(nil)

func rateKey(fromCurrency, toCurrency string) string {
	return "fxrate:" + fromCurrency + ":" + toCurrency
}

func (c *RedisRateCache) GetRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, rateKey(fromCurrency, toCurrency)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("rate cache read: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		// A corrupt value is treated as a miss; the provider refreshes it.
		return decimal.Zero, false, nil
	}
	return rate, true, nil
}

func (c *RedisRateCache) SetRate(ctx context.Context, fromCurrency, toCurrency string, rate decimal.Decimal) error {
	if err := c.client.Set(ctx, rateKey(fromCurrency, toCurrency), rate.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("rate cache write: %w", err)
	}
	return nil
}
