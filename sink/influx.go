package sink

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"ofi-stream-go/market"
)

const influxMeasurement = "ofi"

type InfluxConfig struct {
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     uint
	FlushInterval time.Duration
}

type pointWriter interface {
	WritePoint(p *write.Point)
}

// Influx writes one point per event through the non-blocking write API.
type Influx struct {
	client influxdb2.Client
	write  pointWriter
}

func NewInflux(cfg InfluxConfig, logger *zap.Logger) *Influx {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opt := influxdb2.DefaultOptions().
		SetBatchSize(cfg.BatchSize).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	c := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opt)
	w := c.WriteAPI(cfg.Org, cfg.Bucket)

	// 异步写入错误必须消费，否则会阻塞
	go func() {
		for err := range w.Errors() {
			logger.Warn("influx write failed", zap.Error(err))
		}
	}()
	return &Influx{client: c, write: w}
}

func newInfluxWithWriter(w pointWriter) *Influx {
	return &Influx{write: w}
}

func (s *Influx) Name() string { return "influx" }

func (s *Influx) Consume(ev market.SignalEvent) error {
	p := write.NewPoint(influxMeasurement,
		map[string]string{"channel": ev.Channel},
		map[string]interface{}{
			"raw":       ev.RawOFI,
			"smoothed":  ev.Smoothed,
			"imbalance": ev.Imbalance,
			"mid":       ev.Mid,
			"seq":       ev.Seq,
		},
		ev.Timestamp)
	s.write.WritePoint(p)
	return nil
}

// Close flushes pending points.
func (s *Influx) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
