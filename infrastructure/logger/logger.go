package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ofi-stream-go/market"
)

// Logger 封装 zap 日志器，级别可在运行时热更新
type Logger struct {
	*zap.Logger
	level  zap.AtomicLevel
	config Config
	files  []*os.File
}

// Config 日志配置
type Config struct {
	Level      string   `yaml:"level" toml:"level"`             // debug, info, warn, error
	Outputs    []string `yaml:"outputs" toml:"outputs"`         // stdout, stderr, file
	OutputFile string   `yaml:"output_file" toml:"output_file"` // 日志文件路径
	ErrorFile  string   `yaml:"error_file" toml:"error_file"`   // 错误日志单独文件
	Format     string   `yaml:"format" toml:"format"`           // json 或 console
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stderr"},
		Format:  "console",
	}
}

// New 创建新的Logger实例
func New(cfg Config) (*Logger, error) {
	var (
		sinks []zapcore.WriteSyncer
		files []*os.File
	)
	for _, out := range cfg.Outputs {
		switch out {
		case "stdout":
			sinks = append(sinks, zapcore.AddSync(os.Stdout))
		case "stderr":
			sinks = append(sinks, zapcore.AddSync(os.Stderr))
		case "file":
			if cfg.OutputFile == "" {
				return nil, fmt.Errorf("output file required for file output")
			}
			f, err := openAppend(cfg.OutputFile)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			sinks = append(sinks, zapcore.AddSync(f))
		default:
			return nil, fmt.Errorf("unknown log output %q", out)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.AddSync(os.Stderr))
	}

	var errSink zapcore.WriteSyncer
	if cfg.ErrorFile != "" {
		f, err := openAppend(cfg.ErrorFile)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		errSink = zapcore.AddSync(f)
	}

	l, err := build(cfg, zapcore.NewMultiWriteSyncer(sinks...), errSink)
	if err != nil {
		for _, f := range files {
			_ = f.Close()
		}
		return nil, err
	}
	l.files = files
	return l, nil
}

// NewWithWriter 将日志写入 w（测试或嵌入场景）
func NewWithWriter(cfg Config, w io.Writer) (*Logger, error) {
	return build(cfg, zapcore.AddSync(w), nil)
}

func build(cfg Config, out, errOut zapcore.WriteSyncer) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
		}
	}

	var encoder zapcore.Encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, out, level)}
	if errOut != nil {
		// 错误日志单独文件，始终 JSON
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			errOut,
			zapcore.ErrorLevel,
		))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{Logger: zl, level: level, config: cfg}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

// SetLevel 运行时修改日志级别（配置热更新调用）
func (l *Logger) SetLevel(level string) error {
	return l.level.UnmarshalText([]byte(level))
}

// Level 当前级别
func (l *Logger) Level() string {
	return l.level.Level().String()
}

// WithFields 添加字段返回新的logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(zapFields...),
		level:  l.level,
		config: l.config,
	}
}

// LogSignal 以 debug 级别记录一条 OFI 信号
func (l *Logger) LogSignal(ev market.SignalEvent) {
	l.Debug("signal_event",
		zap.String("channel", ev.Channel),
		zap.Float64("raw_ofi", ev.RawOFI),
		zap.Float64("smoothed_ofi", ev.Smoothed),
		zap.Int64("seq", ev.Seq),
		zap.Time("ts", ev.Timestamp),
	)
}

// LogError 记录错误并附带上下文
func (l *Logger) LogError(err error, context map[string]interface{}) {
	zapFields := make([]zap.Field, 0, len(context)+2)
	zapFields = append(zapFields,
		zap.Error(err),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
	for k, v := range context {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	l.Error("error_event", zapFields...)
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.Sync()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
