package config

import (
	"fmt"

	"ofi-stream-go/gateway"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and consistent.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if cfg.Feed.URI == "" {
		return ErrInvalid("feed.uri is required")
	}
	if cfg.Feed.Backoff <= 0 {
		return ErrInvalid("feed.backoff must be > 0")
	}
	if cfg.Feed.PingInterval < 0 || cfg.Feed.ReadTimeout < 0 {
		return ErrInvalid("feed.pingInterval/readTimeout must be >= 0")
	}
	if len(cfg.Subscriptions) == 0 {
		return ErrInvalid("at least one subscription is required")
	}
	seen := make(map[string]bool, len(cfg.Subscriptions))
	for i, sub := range cfg.Subscriptions {
		ch, err := gateway.ChannelName(sub.Symbol, sub.Depth)
		if err != nil {
			return ErrInvalid(fmt.Sprintf("subscriptions[%d]: %v", i, err))
		}
		if seen[ch] {
			return ErrInvalid(fmt.Sprintf("subscriptions[%d]: duplicate channel %s", i, ch))
		}
		seen[ch] = true
	}
	if cfg.Smoothing.Window <= 0 {
		return ErrInvalid("smoothing.window must be > 0")
	}
	if cfg.Alerts.Throttle < 0 {
		return ErrInvalid("alerts.throttle must be >= 0")
	}

	s := cfg.Sinks
	if s.Buffer.Size < 0 {
		return ErrInvalid("sinks.buffer.size must be >= 0")
	}
	if s.NATS.Enabled && s.NATS.URL == "" {
		return ErrInvalid("sinks.nats.url is required when enabled")
	}
	if s.Kafka.Enabled && (len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "") {
		return ErrInvalid("sinks.kafka.brokers/topic are required when enabled")
	}
	if s.Redis.Enabled && s.Redis.Addr == "" {
		return ErrInvalid("sinks.redis.addr is required when enabled")
	}
	if s.Influx.Enabled && (s.Influx.URL == "" || s.Influx.Org == "" || s.Influx.Bucket == "") {
		return ErrInvalid("sinks.influx.url/org/bucket are required when enabled")
	}
	return nil
}
