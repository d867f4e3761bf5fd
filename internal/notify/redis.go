package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/room-tracker/internal/metrics"
)

// DefaultRedisChannel is the channel snapshots are mirrored to.
const DefaultRedisChannel = "rooms:updated"

const defaultPublishTimeout = 2 * time.Second

// RedisPublisher is the subset of the go-redis client used by the mirror.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("notify: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: ping redis: %w", err)
	}
	return client, nil
}

// RedisMirror re-publishes hub snapshots to a Redis channel for external
// listeners. It never feeds anything back into the process.
type RedisMirror[T any] struct {
	client  RedisPublisher
	channel string
	encode  func(T) ([]byte, error)
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisMirror constructs a mirror publishing encoded values to channel.
func NewRedisMirror[T any](client RedisPublisher, channel string, encode func(T) ([]byte, error), logger *slog.Logger) *RedisMirror[T] {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisMirror[T]{
		client:  client,
		channel: channel,
		encode:  encode,
		timeout: defaultPublishTimeout,
		logger:  logger.With("component", "notify.RedisMirror", "channel", channel),
	}
}

// Run forwards every value from sub until ctx is done or the subscription ends.
func (m *RedisMirror[T]) Run(ctx context.Context, sub *Subscription[T]) error {
	defer sub.Close()

	m.logger.InfoContext(ctx, "redis mirror started")
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "redis mirror stopped")
			return nil
		case value, ok := <-sub.C():
			if !ok {
				m.logger.InfoContext(ctx, "redis mirror subscription closed")
				return nil
			}
			if err := m.Mirror(ctx, value); err != nil {
				m.logger.WarnContext(ctx, "failed to mirror snapshot", "error", err)
			}
		}
	}
}

// Mirror publishes a single value.
func (m *RedisMirror[T]) Mirror(ctx context.Context, value T) error {
	payload, err := m.encode(value)
	if err != nil {
		metrics.RedisPublishErrors.Inc()
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err = m.client.Publish(ctx, m.channel, payload).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RedisPublishErrors.Inc()
		return fmt.Errorf("publish to %s: %w", m.channel, err)
	}
	return nil
}
