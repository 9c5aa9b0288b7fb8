package cache

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadClient points at a port nothing listens on
func deadClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "busbooking:v1:schedule:7:seatmap", KeySeatMap(7))
	assert.Equal(t, "busbooking:v1:schedule:7:seatmap:v3", KeySeatMapAt(7, 3))
	assert.Equal(t, "busbooking:v1:schedule:7:ver", KeySeatMapVersion(7))
	assert.Equal(t, "busbooking:v1:rl:booking", KeyRateLimit("booking"))
	assert.Equal(t, "busbooking:v1:schedules:changed", ChannelScheduleChanged())
}

func TestSeatMapCache_FallsBackToLoaderWhenRedisIsDown(t *testing.T) {
	c := NewSeatMapCache(deadClient(t), time.Minute, quietLogger())

	var loads int32
	want := &models.ScheduleWithSeats{}
	want.ID = 7

	got, err := c.GetSchedule(context.Background(), 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		atomic.AddInt32(&loads, 1)
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestSeatMapCache_LoaderErrorPropagates(t *testing.T) {
	c := NewSeatMapCache(deadClient(t), time.Minute, quietLogger())
	boom := errors.New("not found")

	_, err := c.GetSchedule(context.Background(), 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

// memKV is an in-memory kvStore
type memKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = string(value)
	return nil
}

func (m *memKV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func seatMapWith(id int64, booked ...int) *models.ScheduleWithSeats {
	v := &models.ScheduleWithSeats{}
	v.ID = id
	v.BookedSeats = models.NewSeatSet(booked...)
	return v
}

func TestSeatMapCache_ServesRepeatReadsFromCache(t *testing.T) {
	c := newSeatMapCache(newMemKV(), time.Minute, quietLogger())

	var loads int32
	load := func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		atomic.AddInt32(&loads, 1)
		return seatMapWith(7, 2), nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetSchedule(context.Background(), 7, load)
		require.NoError(t, err)
		assert.Equal(t, models.NewSeatSet(2), got.BookedSeats)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestSeatMapCache_InvalidateForcesReload(t *testing.T) {
	c := newSeatMapCache(newMemKV(), time.Minute, quietLogger())
	ctx := context.Background()

	_, err := c.GetSchedule(ctx, 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		return seatMapWith(7), nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 7))

	got, err := c.GetSchedule(ctx, 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		return seatMapWith(7, 4), nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.NewSeatSet(4), got.BookedSeats)
}

// A load that read the seat ledger before a booking committed must not
// outlive the invalidation that followed the commit.
func TestSeatMapCache_LoadRacingInvalidateIsNotServedAfterwards(t *testing.T) {
	c := newSeatMapCache(newMemKV(), time.Minute, quietLogger())
	ctx := context.Background()

	stale, err := c.GetSchedule(ctx, 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		snapshot := seatMapWith(7)
		// booking commits and invalidates while this load is in flight
		require.NoError(t, c.Invalidate(ctx, 7))
		return snapshot, nil
	})
	require.NoError(t, err)
	assert.Empty(t, stale.BookedSeats)

	var loads int32
	fresh, err := c.GetSchedule(ctx, 7, func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		atomic.AddInt32(&loads, 1)
		return seatMapWith(7, 4), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, models.NewSeatSet(4), fresh.BookedSeats)
}

func TestSeatMapCache_StoreErrors(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("connection refused")
	c := newSeatMapCache(kv, time.Minute, quietLogger())

	var loads int32
	load := func(ctx context.Context) (*models.ScheduleWithSeats, error) {
		atomic.AddInt32(&loads, 1)
		return seatMapWith(7), nil
	}
	_, err := c.GetSchedule(context.Background(), 7, load)
	require.NoError(t, err)
	_, err = c.GetSchedule(context.Background(), 7, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))

	assert.Error(t, c.Invalidate(context.Background(), 7))
}

func TestRateLimiter_ErrorsWhenRedisIsDown(t *testing.T) {
	l := NewSlidingWindowLimiter(deadClient(t), KeyRateLimit("booking"), 5, time.Minute)

	allowed, _, _, err := l.Allow(context.Background(), "user:5")
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestToInt(t *testing.T) {
	assert.Equal(t, int64(3), toInt(int64(3)))
	assert.Equal(t, int64(3), toInt(3))
	assert.Equal(t, int64(0), toInt("x"))
}

type recorder struct {
	mu          sync.Mutex
	invalidated []int64
	published   []int64
	err         error
}

func (r *recorder) Invalidate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, id)
	return r.err
}

func (r *recorder) PublishScheduleChanged(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, id)
	return r.err
}

func TestNotifier(t *testing.T) {
	t.Run("invalidates then publishes", func(t *testing.T) {
		r := &recorder{}
		NewNotifier(r, r, quietLogger()).ScheduleChanged(context.Background(), 7)
		assert.Equal(t, []int64{7}, r.invalidated)
		assert.Equal(t, []int64{7}, r.published)
	})

	t.Run("errors are swallowed", func(t *testing.T) {
		r := &recorder{err: errors.New("redis down")}
		assert.NotPanics(t, func() {
			NewNotifier(r, r, quietLogger()).ScheduleChanged(context.Background(), 8)
		})
		assert.Equal(t, []int64{8}, r.published)
	})

	t.Run("nil dependencies", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewNotifier(nil, nil, quietLogger()).ScheduleChanged(context.Background(), 9)
		})
	})
}
