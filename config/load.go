package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ofi-stream-go/gateway"
	"ofi-stream-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env           string               `yaml:"env" toml:"env"`
	Feed          FeedConfig           `yaml:"feed" toml:"feed"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions" toml:"subscriptions"`
	Smoothing     SmoothingConfig      `yaml:"smoothing" toml:"smoothing"`
	Log           logger.Config        `yaml:"log" toml:"log"`
	Metrics       MetricsConfig        `yaml:"metrics" toml:"metrics"`
	Sinks         SinksConfig          `yaml:"sinks" toml:"sinks"`
	Alerts        AlertsConfig         `yaml:"alerts" toml:"alerts"`
}

type FeedConfig struct {
	URI          string        `yaml:"uri" toml:"uri"`
	PingInterval time.Duration `yaml:"pingInterval" toml:"pingInterval"`
	ReadTimeout  time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	Backoff      time.Duration `yaml:"backoff" toml:"backoff"`
}

// SubscriptionConfig 一个 symbol + depth 对应一个频道 orderbook.{depth}.{symbol}。
type SubscriptionConfig struct {
	Symbol string `yaml:"symbol" toml:"symbol"`
	Depth  int    `yaml:"depth" toml:"depth"`
}

type SmoothingConfig struct {
	Window int `yaml:"window" toml:"window"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // 为空则不启动 /metrics
}

// AlertsConfig 订阅断线/被拒/恢复告警；同一频道同一告警在 throttle 内只发一次。
type AlertsConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Console  bool          `yaml:"console" toml:"console"` // 额外输出到 stderr
	Throttle time.Duration `yaml:"throttle" toml:"throttle"`
}

type SinksConfig struct {
	Console   ConsoleSink   `yaml:"console" toml:"console"`
	CSV       CSVSink       `yaml:"csv" toml:"csv"`
	Buffer    BufferSink    `yaml:"buffer" toml:"buffer"`
	Dashboard DashboardSink `yaml:"dashboard" toml:"dashboard"`
	NATS      NATSSink      `yaml:"nats" toml:"nats"`
	Kafka     KafkaSink     `yaml:"kafka" toml:"kafka"`
	Redis     RedisSink     `yaml:"redis" toml:"redis"`
	Influx    InfluxSink    `yaml:"influx" toml:"influx"`
}

type ConsoleSink struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

type CSVSink struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type BufferSink struct {
	Size int `yaml:"size" toml:"size"`
}

type DashboardSink struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

type NATSSink struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
}

type KafkaSink struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Brokers []string `yaml:"brokers" toml:"brokers"`
	Topic   string   `yaml:"topic" toml:"topic"`
}

type RedisSink struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	Addr         string `yaml:"addr" toml:"addr"`
	Password     string `yaml:"password" toml:"password"`
	DB           int    `yaml:"db" toml:"db"`
	Stream       string `yaml:"stream" toml:"stream"`
	MaxLen       int64  `yaml:"maxLen" toml:"maxLen"`
	PubSubPrefix string `yaml:"pubsubPrefix" toml:"pubsubPrefix"`
}

type InfluxSink struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Token   string `yaml:"token" toml:"token"`
	Org     string `yaml:"org" toml:"org"`
	Bucket  string `yaml:"bucket" toml:"bucket"`
}

// Default 无配置文件时使用：单个 BTCUSDT depth 50 订阅，输出到终端。
func Default() AppConfig {
	cfg := AppConfig{
		Env:           "dev",
		Subscriptions: []SubscriptionConfig{{Symbol: "BTCUSDT", Depth: 50}},
		Log:           logger.DefaultConfig(),
	}
	cfg.Sinks.Console.Enabled = true
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Feed.URI == "" {
		cfg.Feed.URI = gateway.BybitLinearWSEndpoint
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = gateway.DefaultPingInterval
	}
	if cfg.Feed.ReadTimeout == 0 {
		cfg.Feed.ReadTimeout = gateway.DefaultReadTimeout
	}
	if cfg.Feed.Backoff == 0 {
		cfg.Feed.Backoff = 3 * time.Second
	}
	if cfg.Smoothing.Window == 0 {
		cfg.Smoothing.Window = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Sinks.CSV.Path == "" {
		cfg.Sinks.CSV.Path = "data.csv"
	}
	if cfg.Sinks.Buffer.Size == 0 {
		cfg.Sinks.Buffer.Size = 200
	}
	if cfg.Sinks.Dashboard.Addr == "" {
		cfg.Sinks.Dashboard.Addr = ":8501"
	}
	if cfg.Alerts.Throttle == 0 {
		cfg.Alerts.Throttle = 5 * time.Minute
	}
}

// Load reads a YAML or TOML (by extension) config from path and validates it.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config (or Default when path is empty), then
// applies .env and OFI_* environment overrides.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	if err := loadDotEnv(path); err != nil {
		return AppConfig{}, err
	}
	var (
		cfg AppConfig
		err error
	)
	if path == "" {
		cfg = Default()
	} else if cfg, err = Load(path); err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// loadDotEnv 依次尝试配置文件同目录与当前目录下的 .env；已存在的环境变量不会被覆盖。
func loadDotEnv(path string) error {
	candidates := []string{".env"}
	if path != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(path), ".env")}, candidates...)
	}
	seen := map[string]bool{}
	for _, p := range candidates {
		abs, _ := filepath.Abs(p)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("OFI_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("OFI_FEED_URI"); v != "" {
		cfg.Feed.URI = v
	}
	if v := os.Getenv("OFI_SUBSCRIPTIONS"); v != "" {
		subs, err := ParseSubscriptions(v)
		if err != nil {
			return fmt.Errorf("OFI_SUBSCRIPTIONS: %w", err)
		}
		cfg.Subscriptions = subs
	}
	if v := os.Getenv("OFI_SMOOTHING_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OFI_SMOOTHING_WINDOW: %w", err)
		}
		cfg.Smoothing.Window = n
	}
	if v := os.Getenv("OFI_FEED_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OFI_FEED_BACKOFF: %w", err)
		}
		cfg.Feed.Backoff = d
	}
	if v := os.Getenv("OFI_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OFI_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("OFI_NATS_URL"); v != "" {
		cfg.Sinks.NATS.URL = v
	}
	if v := os.Getenv("OFI_KAFKA_BROKERS"); v != "" {
		cfg.Sinks.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("OFI_REDIS_PASSWORD"); v != "" {
		cfg.Sinks.Redis.Password = v
	}
	if v := os.Getenv("OFI_INFLUX_TOKEN"); v != "" {
		cfg.Sinks.Influx.Token = v
	}
	return nil
}

// ParseSubscriptions parses "BTCUSDT:50,ETHUSDT:1".
func ParseSubscriptions(s string) ([]SubscriptionConfig, error) {
	var out []SubscriptionConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, depthStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%q: want SYMBOL:DEPTH", part)
		}
		depth, err := strconv.Atoi(depthStr)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		out = append(out, SubscriptionConfig{Symbol: sym, Depth: depth})
	}
	if len(out) == 0 {
		return nil, errors.New("no subscriptions")
	}
	return out, nil
}
