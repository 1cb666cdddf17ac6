// Package metrics provides Prometheus metrics for the OFI stream
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofi_samples_total",
		Help: "OFI samples produced per channel",
	}, []string{"channel"})

	RawOFI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ofi_raw",
		Help: "Last raw OFI value",
	}, []string{"channel"})

	SmoothedOFI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ofi_smoothed",
		Help: "Last median-smoothed OFI value",
	}, []string{"channel"})

	MalformedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofi_malformed_messages_total",
		Help: "Inbound messages dropped because they failed to parse",
	}, []string{"channel"})

	IgnoredMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofi_ignored_messages_total",
		Help: "Inbound messages not matching the subscribed delta channel",
	}, []string{"channel"})

	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofi_reconnects_total",
		Help: "Transport failures followed by a reconnect",
	}, []string{"channel"})

	SubscriptionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ofi_subscription_state",
		Help: "0=disconnected 1=connecting 2=subscribed 3=degraded",
	}, []string{"channel"})

	ConsumerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ofi_consumer_failures_total",
		Help: "Signal deliveries that failed inside one consumer",
	}, []string{"consumer"})
)

// ObserveSignal 记录一次信号输出。
func ObserveSignal(channel string, raw, smoothed float64) {
	SamplesTotal.WithLabelValues(channel).Inc()
	RawOFI.WithLabelValues(channel).Set(raw)
	SmoothedOFI.WithLabelValues(channel).Set(smoothed)
}

// Handler 返回 /metrics handler。
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer 创建 Prometheus 指标服务器（由调用方负责启动/关闭）
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
