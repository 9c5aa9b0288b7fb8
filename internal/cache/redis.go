// Package cache holds the Redis-backed helpers: the seat-map cache, the
// booking rate limiter and schedule change notifications.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smarttransit/bus-booking-backend/internal/config"
)

const ns = "busbooking:v1"

// KeySeatMap is the cache key of a schedule's seat map
func KeySeatMap(scheduleID int64) string {
	return fmt.Sprintf("%s:schedule:%d:seatmap", ns, scheduleID)
}

// KeySeatMapAt is the cache key of a schedule's seat map at one version
func KeySeatMapAt(scheduleID, version int64) string {
	return fmt.Sprintf("%s:v%d", KeySeatMap(scheduleID), version)
}

// KeySeatMapVersion counts invalidations of a schedule's seat map
func KeySeatMapVersion(scheduleID int64) string {
	return fmt.Sprintf("%s:schedule:%d:ver", ns, scheduleID)
}

// KeyRateLimit is the prefix of a rate limit window
func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

// ChannelScheduleChanged is the pub/sub channel of ledger changes
func ChannelScheduleChanged() string {
	return ns + ":schedules:changed"
}

// NewClient connects to Redis and pings it
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}
