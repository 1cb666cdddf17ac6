package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ofi-stream-go/market"
)

const (
	DefaultRedisStream       = "ofi:signals"
	DefaultRedisStreamMaxLen = 10000
	redisWriteTimeout        = 2 * time.Second
)

type redisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisConfig 空 PubSubPrefix 表示只写 stream。
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Stream       string
	MaxLen       int64
	PubSubPrefix string
}

// Redis appends each event to a capped stream (XADD MAXLEN ~) and optionally
// fans it out over pub/sub on <prefix><channel>.
type Redis struct {
	rdb    redisClient
	stream string
	maxLen int64
	prefix string
}

// DialRedis pings before returning.
func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedis(rdb, cfg), nil
}

func NewRedis(rdb redisClient, cfg RedisConfig) *Redis {
	if cfg.Stream == "" {
		cfg.Stream = DefaultRedisStream
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultRedisStreamMaxLen
	}
	return &Redis{rdb: rdb, stream: cfg.Stream, maxLen: cfg.MaxLen, prefix: cfg.PubSubPrefix}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Consume(ev market.SignalEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()

	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"channel": ev.Channel,
			"payload": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: stream append %s: %w", r.stream, err)
	}
	if r.prefix == "" {
		return nil
	}
	topic := r.prefix + ev.Channel
	if err := r.rdb.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
