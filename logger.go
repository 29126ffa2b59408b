package cron

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 定义日志接口
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// FieldLogger 支持结构化字段的日志接口，ZapLogger 实现了它
// 调度器在可用时优先使用结构化字段输出派发结果
type FieldLogger interface {
	Logger
	With(keysAndValues ...any) Logger
}

// 日志输出格式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ZapLogger 基于 zap 的日志实现
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ FieldLogger = (*ZapLogger)(nil)

// NewZapLogger 创建写入标准输出的 zap 日志
// level 取值 debug/info/warn/error，format 取值 console/json
func NewZapLogger(level, format string) (*ZapLogger, error) {
	return NewZapLoggerTo(os.Stdout, level, format)
}

// NewZapLoggerTo 创建写入指定 io.Writer 的 zap 日志
func NewZapLoggerTo(w io.Writer, level, format string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case "", FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(lvl))
	return &ZapLogger{logger: zap.New(core).Sugar()}, nil
}

// NewDefaultLogger 创建默认日志实现，info 级别控制台输出
func NewDefaultLogger() Logger {
	l, err := NewZapLogger("info", FormatConsole)
	if err != nil {
		return &NoOpLogger{}
	}
	return l
}

// Debugf 输出调试日志
func (l *ZapLogger) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

// Infof 输出信息日志
func (l *ZapLogger) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

// Warnf 输出警告日志
func (l *ZapLogger) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

// Errorf 输出错误日志
func (l *ZapLogger) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}

// With 返回携带额外字段的子日志
func (l *ZapLogger) With(keysAndValues ...any) Logger {
	return &ZapLogger{logger: l.logger.With(keysAndValues...)}
}

// Sync 刷新缓冲的日志
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// NoOpLogger 空日志实现，不输出任何内容
type NoOpLogger struct{}

// Debugf 空实现
func (l *NoOpLogger) Debugf(format string, args ...any) {}

// Infof 空实现
func (l *NoOpLogger) Infof(format string, args ...any) {}

// Warnf 空实现
func (l *NoOpLogger) Warnf(format string, args ...any) {}

// Errorf 空实现
func (l *NoOpLogger) Errorf(format string, args ...any) {}

// withFields 在日志支持结构化字段时附加字段，否则原样返回
func withFields(l Logger, keysAndValues ...any) Logger {
	if fl, ok := l.(FieldLogger); ok {
		return fl.With(keysAndValues...)
	}
	return l
}
