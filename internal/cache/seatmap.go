package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"golang.org/x/sync/singleflight"
)

// versionTTL outlives any seat map entry, so an expired counter restarting
// at zero can never meet a cached map from its earlier life.
const versionTTL = 24 * time.Hour

// kvStore is the slice of Redis the seat-map cache needs. Get returns
// redis.Nil on a miss.
type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisStore struct {
	rdb redis.Cmdable
}

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	return s.rdb.Get(ctx, key).Result()
}

func (s redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s redisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// SeatMapCache caches schedule seat maps. Redis failures are logged and the
// loader is used directly, so a cache outage never fails a read.
//
// Entries are keyed by a per-schedule version that Invalidate bumps. A load
// that started before an invalidation stores its snapshot under the old
// version, where no later read looks.
type SeatMapCache struct {
	store  kvStore
	ttl    time.Duration
	sf     singleflight.Group
	logger logrus.FieldLogger
}

// NewSeatMapCache creates a seat-map cache
func NewSeatMapCache(rdb redis.Cmdable, ttl time.Duration, logger logrus.FieldLogger) *SeatMapCache {
	return newSeatMapCache(redisStore{rdb: rdb}, ttl, logger)
}

func newSeatMapCache(store kvStore, ttl time.Duration, logger logrus.FieldLogger) *SeatMapCache {
	return &SeatMapCache{store: store, ttl: ttl, logger: logger}
}

// GetSchedule returns the cached seat map or loads and stores it. Concurrent
// misses for the same schedule and version share one load.
func (c *SeatMapCache) GetSchedule(
	ctx context.Context,
	scheduleID int64,
	load func(ctx context.Context) (*models.ScheduleWithSeats, error),
) (*models.ScheduleWithSeats, error) {
	version, err := c.version(ctx, scheduleID)
	if err != nil {
		c.logger.WithError(err).WithField("schedule_id", scheduleID).Warn("Seat map version read failed")
		return load(ctx)
	}
	key := KeySeatMapAt(scheduleID, version)

	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := c.get(ctx, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	v, ok := vAny.(*models.ScheduleWithSeats)
	if !ok {
		return nil, errors.New("seat map cache: unexpected value type")
	}
	return v, nil
}

// Invalidate retires every cached seat map of a schedule
func (c *SeatMapCache) Invalidate(ctx context.Context, scheduleID int64) error {
	_, err := c.store.Incr(ctx, KeySeatMapVersion(scheduleID), versionTTL)
	return err
}

func (c *SeatMapCache) version(ctx context.Context, scheduleID int64) (int64, error) {
	s, err := c.store.Get(ctx, KeySeatMapVersion(scheduleID))
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *SeatMapCache) get(ctx context.Context, key string) (*models.ScheduleWithSeats, bool) {
	s, err := c.store.Get(ctx, key)
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Seat map cache read failed")
		return nil, false
	}

	var out models.ScheduleWithSeats
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Dropping undecodable seat map")
		return nil, false
	}
	return &out, true
}

func (c *SeatMapCache) set(ctx context.Context, key string, v *models.ScheduleWithSeats) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Seat map cache write failed")
	}
}
