package repository

import (
	"context"
	"fmt"
	"time"

	"arbwatch/internal/domain/models"
	"arbwatch/pkg/cache"
)

// RedisStateSink mirrors the latest observation and session stats into Redis
// so other processes can read them. Keys expire so a dead monitor leaves no stale state.
type RedisStateSink struct {
	cache cache.Service
	ttl   time.Duration
}

func NewRedisStateSink(c cache.Service, ttl time.Duration) *RedisStateSink {
	return &RedisStateSink{cache: c, ttl: ttl}
}

func (s *RedisStateSink) Name() string { return "redis" }

func (s *RedisStateSink) Handle(ctx context.Context, ev models.MonitorEvent) error {
	pair := fmt.Sprintf("%s:%s", ev.Observation.VenueA, ev.Observation.VenueB)
	switch ev.Kind {
	case models.EventObservation:
		return s.cache.Set(ctx, "spread:"+pair, ev.Observation, s.ttl)
	case models.EventSignal:
		return s.cache.MSet(ctx, map[string]interface{}{
			"signal:" + pair: ev.Signal,
			"stats:" + pair:  ev.Stats,
		}, s.ttl)
	}
	return nil
}

func (s *RedisStateSink) Close() error { return s.cache.Close() }
