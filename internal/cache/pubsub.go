package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ScheduleEvent is published after a schedule's seat ledger changed
type ScheduleEvent struct {
	Type       string `json:"type"`
	ScheduleID int64  `json:"schedule_id"`
	TsUnix     int64  `json:"ts_unix"`
}

// SchedulePubSub fans schedule changes out to every API instance
type SchedulePubSub struct {
	rdb     *redis.Client
	channel string
}

// NewSchedulePubSub creates a pub/sub bound to the schedule change channel
func NewSchedulePubSub(rdb *redis.Client) *SchedulePubSub {
	return &SchedulePubSub{rdb: rdb, channel: ChannelScheduleChanged()}
}

// PublishScheduleChanged announces a change
func (p *SchedulePubSub) PublishScheduleChanged(ctx context.Context, scheduleID int64) error {
	b, err := json.Marshal(ScheduleEvent{
		Type:       "schedule_changed",
		ScheduleID: scheduleID,
		TsUnix:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every event until ctx is done
func (p *SchedulePubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev ScheduleEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev ScheduleEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.ScheduleID != 0 {
				handler(ctx, ev)
			}
		}
	}
}

// Invalidator drops cached seat maps
type Invalidator interface {
	Invalidate(ctx context.Context, scheduleID int64) error
}

// Publisher announces schedule changes
type Publisher interface {
	PublishScheduleChanged(ctx context.Context, scheduleID int64) error
}

// Notifier runs after every committed ledger change: it drops the cached seat
// map and publishes the change. Failures are logged, never returned.
type Notifier struct {
	cache     Invalidator
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewNotifier creates a Notifier. Either dependency may be nil.
func NewNotifier(cache Invalidator, publisher Publisher, logger logrus.FieldLogger) *Notifier {
	return &Notifier{cache: cache, publisher: publisher, logger: logger}
}

// ScheduleChanged implements services.ScheduleNotifier
func (n *Notifier) ScheduleChanged(ctx context.Context, scheduleID int64) {
	log := n.logger.WithField("schedule_id", scheduleID)
	if n.cache != nil {
		if err := n.cache.Invalidate(ctx, scheduleID); err != nil {
			log.WithError(err).Warn("Failed to invalidate seat map")
		}
	}
	if n.publisher != nil {
		if err := n.publisher.PublishScheduleChanged(ctx, scheduleID); err != nil {
			log.WithError(err).Warn("Failed to publish schedule change")
		}
	}
}
