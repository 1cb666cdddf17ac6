package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"ofi-stream-go/config"
	"ofi-stream-go/infrastructure/logger"
	"ofi-stream-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径（yaml/toml），留空使用默认配置")
	symbol := flag.String("symbol", "", "交易对，覆盖配置中的订阅（例如 BTCUSDT）")
	depth := flag.Int("depth", 0, "订单簿深度 1/50/200/500/1000，配合 -symbol 使用")
	mode := flag.String("mode", "cli", "运行模式：cli 输出信号，raw 只打印原始消息")
	flag.Parse()

	if *mode != "cli" && *mode != "raw" {
		log.Fatalf("未知模式 %q（可选 cli|raw）", *mode)
	}

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *symbol != "" || *depth != 0 {
		cfg.Subscriptions = overrideSubscription(cfg.Subscriptions, *symbol, *depth)
		if err := config.Validate(cfg); err != nil {
			log.Fatalf("参数无效: %v", err)
		}
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := container.New(cfg, lg, container.Options{
		ConfigPath: *cfgPath,
		Raw:        *mode == "raw",
	})
	if err := c.Build(ctx); err != nil {
		lg.Fatal("build failed", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		lg.Fatal("start failed", zap.Error(err))
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify ready failed", zap.Error(err))
	}
	lg.Info("streaming", zap.String("subscriptions", describe(cfg.Subscriptions)), zap.String("mode", *mode))

	<-ctx.Done()
	lg.Info("shutdown signal received")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := c.Stop(); err != nil {
		os.Exit(1)
	}
}

// overrideSubscription 命令行参数替换为单一订阅；只给 depth 时沿用第一个订阅的 symbol
func overrideSubscription(subs []config.SubscriptionConfig, symbol string, depth int) []config.SubscriptionConfig {
	base := config.SubscriptionConfig{Symbol: "BTCUSDT", Depth: 50}
	if len(subs) > 0 {
		base = subs[0]
	}
	if symbol != "" {
		base.Symbol = strings.ToUpper(symbol)
	}
	if depth != 0 {
		base.Depth = depth
	}
	return []config.SubscriptionConfig{base}
}

func describe(subs []config.SubscriptionConfig) string {
	parts := make([]string, 0, len(subs))
	for _, s := range subs {
		parts = append(parts, fmt.Sprintf("%s:%d", s.Symbol, s.Depth))
	}
	return strings.Join(parts, ",")
}
