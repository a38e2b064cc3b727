package store

import (
	"context"
	"fmt"
	"time"

	"legal-clinic/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// SeriesLocker serializes code allocation for one series across API
// replicas. The returned func releases the lock.
type SeriesLocker interface {
	LockSeries(ctx context.Context, seriesKey string) (func(context.Context) error, error)
}

// NoLock relies on transaction isolation alone.
type NoLock struct{}

func (NoLock) LockSeries(ctx context.Context, seriesKey string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// RedisSeriesLock owns a Redis key per series, set to a per-holder token,
// while a unit of work allocates from that series. Only the holder whose
// token is stored can release it.
type RedisSeriesLock struct {
	rdb      redis.Scripter
	prefix   string
	ttl      time.Duration
	interval time.Duration
}

func NewRedisSeriesLock(rdb redis.Scripter, prefix string, ttl time.Duration) *RedisSeriesLock {
	if prefix == "" {
		prefix = "clinic:series:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisSeriesLock{rdb: rdb, prefix: prefix, ttl: ttl, interval: 20 * time.Millisecond}
}

func (l *RedisSeriesLock) LockSeries(ctx context.Context, seriesKey string) (func(context.Context) error, error) {
	release, err := utils.Lock(ctx, l.rdb, l.prefix+seriesKey, l.ttl, l.interval)
	if err != nil {
		return nil, fmt.Errorf("lock series %s: %w", seriesKey, err)
	}
	return release, nil
}
