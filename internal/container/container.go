package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"ofi-stream-go/config"
	"ofi-stream-go/feed"
	"ofi-stream-go/gateway"
	"ofi-stream-go/infrastructure/alert"
	"ofi-stream-go/infrastructure/logger"
	"ofi-stream-go/internal/dashboard"
	"ofi-stream-go/market"
	"ofi-stream-go/metrics"
	"ofi-stream-go/sink"
)

// Options 运行时选项，来自命令行
type Options struct {
	// ConfigPath 非空时启用配置热更新
	ConfigPath string
	// Raw 只打印原始消息，不挂载任何 sink
	Raw bool
	// Dialer 为空时使用 gorilla WSDialer
	Dialer gateway.Dialer
	Stdout io.Writer
	// Stderr 控制台告警输出
	Stderr io.Writer
}

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	cfg    config.AppConfig
	opts   Options
	logger *logger.Logger

	bus         *market.SignalBus
	ring        *sink.Ring
	hub         *dashboard.Hub
	sinks       []sink.Sink
	supervisors []*feed.Supervisor
	alerts      *alert.Manager

	lifecycle *LifecycleManager
}

// New 创建新的Container实例
func New(cfg config.AppConfig, log *logger.Logger, opts Options) *Container {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Container{
		cfg:       cfg,
		opts:      opts,
		logger:    log,
		lifecycle: NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build(ctx context.Context) error {
	c.bus = market.NewSignalBus(c.logger.Logger)

	if !c.opts.Raw {
		if err := c.buildSinks(ctx); err != nil {
			c.closeSinks()
			return fmt.Errorf("build sinks failed: %w", err)
		}
	}
	if err := c.buildFeed(); err != nil {
		c.closeSinks()
		return fmt.Errorf("build feed failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Info("container built",
		zap.Int("subscriptions", len(c.supervisors)),
		zap.Int("sinks", len(c.sinks)),
		zap.Bool("raw", c.opts.Raw),
	)
	return nil
}

func (c *Container) buildSinks(ctx context.Context) error {
	sc := c.cfg.Sinks

	// 图表/网页缓冲区始终存在
	c.ring = sink.NewRing(sc.Buffer.Size)
	c.sinks = append(c.sinks, c.ring)

	if sc.Console.Enabled {
		console := sink.NewConsole(c.opts.Stdout)
		console.WithChannel = len(c.cfg.Subscriptions) > 1
		c.sinks = append(c.sinks, console)
	}
	if sc.CSV.Enabled {
		csv, err := sink.NewCSV(sc.CSV.Path)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, csv)
	}
	if sc.Dashboard.Enabled {
		c.hub = dashboard.NewHub(c.logger.Logger)
		c.sinks = append(c.sinks, c.hub)
	}
	if sc.NATS.Enabled {
		n, err := sink.DialNATS(sc.NATS.URL, sc.NATS.Subject)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, n)
	}
	if sc.Kafka.Enabled {
		c.sinks = append(c.sinks, sink.NewKafka(sc.Kafka.Brokers, sc.Kafka.Topic))
	}
	if sc.Redis.Enabled {
		r, err := sink.DialRedis(ctx, sink.RedisConfig{
			Addr:         sc.Redis.Addr,
			Password:     sc.Redis.Password,
			DB:           sc.Redis.DB,
			Stream:       sc.Redis.Stream,
			MaxLen:       sc.Redis.MaxLen,
			PubSubPrefix: sc.Redis.PubSubPrefix,
		})
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, r)
	}
	if sc.Influx.Enabled {
		c.sinks = append(c.sinks, sink.NewInflux(sink.InfluxConfig{
			URL:    sc.Influx.URL,
			Token:  sc.Influx.Token,
			Org:    sc.Influx.Org,
			Bucket: sc.Influx.Bucket,
		}, c.logger.Logger))
	}

	sink.Attach(c.bus, c.sinks...)
	// debug 级别下逐条记录；级别可热更新，所以始终注册
	c.bus.OnSignal("log", func(ev market.SignalEvent) error {
		c.logger.LogSignal(ev)
		return nil
	})
	return nil
}

func (c *Container) buildFeed() error {
	dialer := c.opts.Dialer
	if dialer == nil {
		dialer = &gateway.WSDialer{
			PingInterval: c.cfg.Feed.PingInterval,
			ReadTimeout:  c.cfg.Feed.ReadTimeout,
			OnPingError: func(err error) {
				c.logger.Warn("ping failed", zap.Error(err))
			},
		}
	}
	if c.cfg.Alerts.Enabled {
		channels := []alert.Channel{alert.NewLogChannel("log", c.logger.Logger)}
		if c.cfg.Alerts.Console {
			channels = append(channels, alert.NewConsoleChannel("console", c.opts.Stderr))
		}
		c.alerts = alert.NewManager(channels, c.cfg.Alerts.Throttle)
	}
	for _, sc := range c.cfg.Subscriptions {
		sub, err := feed.NewSubscription(c.cfg.Feed.URI, sc.Symbol, sc.Depth)
		if err != nil {
			return err
		}
		sup := feed.NewSupervisor(sub, dialer, c.bus, c.cfg.Smoothing.Window, c.cfg.Feed.Backoff, c.logger.Logger)
		if c.alerts != nil {
			sup.OnStateChange = c.alerts.FeedHook(sub.Channel)
		}
		if c.opts.Raw {
			out := c.opts.Stdout
			sup.OnRaw = func(raw []byte) {
				fmt.Fprintln(out, string(raw))
			}
		}
		c.supervisors = append(c.supervisors, sup)
	}
	return nil
}

func (c *Container) registerLifecycleComponents() {
	c.lifecycle.Register(&sinkComponent{sinks: c.sinks})
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(&httpServerComponent{
			name:   "metrics_server",
			server: metrics.NewServer(c.cfg.Metrics.Addr),
			logger: c.logger.Logger,
		})
	}
	if c.hub != nil {
		srv := dashboard.New(c.ring, c.hub, c.logger.Logger)
		c.lifecycle.Register(&httpServerComponent{
			name:   "dashboard",
			server: srv.HTTPServer(c.cfg.Sinks.Dashboard.Addr),
			logger: c.logger.Logger,
		})
	}
	if c.opts.ConfigPath != "" {
		c.lifecycle.Register(&watcherComponent{
			watcher: config.Watcher{
				Path: c.opts.ConfigPath,
				OnError: func(err error) {
					c.logger.Warn("config reload rejected", zap.Error(err))
				},
			},
			apply: c.ApplyConfig,
		})
	}
	// feed 最后启动、最先停止
	c.lifecycle.Register(&feedComponent{supervisors: c.supervisors, logger: c.logger.Logger})
}

// ApplyConfig 应用可热更新的字段；其余字段需重启生效
func (c *Container) ApplyConfig(cfg config.AppConfig) {
	if cfg.Log.Level == c.logger.Level() {
		return
	}
	if err := c.logger.SetLevel(cfg.Log.Level); err != nil {
		c.logger.Warn("invalid log level in reloaded config", zap.Error(err))
		return
	}
	c.logger.Info("log level updated", zap.String("level", cfg.Log.Level))
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")
	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")
	if err := c.lifecycle.StopAll(); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
		return err
	}
	c.logger.Info("container stopped")
	return nil
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

func (c *Container) Bus() *market.SignalBus { return c.bus }

func (c *Container) Ring() *sink.Ring { return c.ring }

func (c *Container) Supervisors() []*feed.Supervisor { return c.supervisors }

func (c *Container) Alerts() *alert.Manager { return c.alerts }

func (c *Container) closeSinks() {
	for _, s := range c.sinks {
		_ = s.Close()
	}
	c.sinks = nil
}
