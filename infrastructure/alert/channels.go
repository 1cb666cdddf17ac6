package alert

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// LogChannel 通过 zap 输出告警
type LogChannel struct {
	logger *zap.Logger
	name   string
}

func NewLogChannel(name string, logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger.With(zap.String("component", "alert")), name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := make([]zap.Field, 0, len(a.Fields)+3)
	fields = append(fields,
		zap.String("alert_level", string(a.Level)),
		zap.String("channel", a.Channel),
		zap.Time("at", a.Timestamp),
	)
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case LevelInfo:
		c.logger.Info(a.Message, fields...)
	case LevelWarning:
		c.logger.Warn(a.Message, fields...)
	default:
		c.logger.Error(a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// ConsoleChannel 控制台告警通道（彩色输出）
type ConsoleChannel struct {
	name string
	w    io.Writer
}

func NewConsoleChannel(name string, w io.Writer) *ConsoleChannel {
	return &ConsoleChannel{name: name, w: w}
}

func (c *ConsoleChannel) Send(a Alert) error {
	const reset = "\033[0m"
	var color string
	switch a.Level {
	case LevelInfo:
		color = "\033[32m" // 绿色
	case LevelWarning:
		color = "\033[33m" // 黄色
	case LevelError:
		color = "\033[31m" // 红色
	case LevelCritical:
		color = "\033[35m" // 紫色
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s %s %s - %s",
		color, a.Level, reset,
		a.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		a.Channel, a.Message)
	if len(a.Fields) > 0 {
		keys := make([]string, 0, len(a.Fields))
		for k := range a.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, a.Fields[k])
		}
	}
	b.WriteByte('\n')
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *ConsoleChannel) Name() string { return c.name }
