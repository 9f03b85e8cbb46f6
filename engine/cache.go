package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// REPORT CACHE - Generation-keyed Redis cache
// =============================================================================
//
// Keys look like:
//
//	settlement:g<generation>:report:<policy>:<offset>:<cycle start>:<data version>
//
// The data version already changes on every store write. The generation is
// for everything else (a new cycle opening, a reset): Bump increments it and
// every older key becomes unreachable until its TTL expires.
//
// Redis is never required. A nil *Cache builds every report, and a Redis
// failure is logged and degrades to building.

const generationKey = "settlement:cache:generation"

// Cache stores built settlement reports in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logging.Logger
}

// NewCache wires a client. ttl <= 0 keeps entries until a bump makes them
// unreachable.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) logger() *logging.Logger {
	if c.log == nil {
		return logging.Nop()
	}
	return c.log
}

// Generation returns the current cache generation, starting at 1.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so concurrent first readers agree on 1
		if err := c.client.SetNX(ctx, generationKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, generationKey).Int64()
	}
	return gen, err
}

// ReportKey prefixes the report identity with the current generation.
func (c *Cache) ReportKey(ctx context.Context, parts ...string) (string, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("settlement:g%d:report:%s", gen, strings.Join(parts, ":")), nil
}

// Report returns the cached report for parts, or builds and stores it. Only
// build errors are returned.
func (c *Cache) Report(ctx context.Context, parts []string, build func(context.Context) (settlement.Report, error)) (settlement.Report, error) {
	if !c.enabled() {
		return build(ctx)
	}

	key, err := c.ReportKey(ctx, parts...)
	if err != nil {
		c.logger().Warn().Err(err).Msg("report cache unavailable, building directly")
		return build(ctx)
	}

	store := true
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached settlement.Report
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger().Warn().Err(err).Str("key", key).Msg("discarding unreadable cached report")
	case errors.Is(err, redis.Nil):
	default:
		c.logger().Warn().Err(err).Str("key", key).Msg("report cache read failed")
		store = false
	}

	r, err := build(ctx)
	if err != nil {
		return settlement.Report{}, err
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return r, nil
	}
	if store {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger().Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}

	// hand back the same shape a cache hit would
	var out settlement.Report
	if err := json.Unmarshal(raw, &out); err != nil {
		return r, nil
	}
	return out, nil
}

// Bump moves to a new generation, dropping every cached report.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}
