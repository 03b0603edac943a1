package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	l, err := newLogger("info")
	if err != nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	return cfg.Build(zap.AddCallerSkip(1))
}

// 按日志级别（debug/info/warn/error）重建全局日志
func Init(level string) (err error) {
	l, err := newLogger(level)
	if err != nil {
		return
	}
	old := logger.Swap(l)
	_ = old.Sync()
	return
}

// 替换全局日志，测试中可传入zap.NewNop()或zaptest日志
func Set(l *zap.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

func L() *zap.Logger {
	return logger.Load()
}

func Debug(msg string, fields ...zap.Field) {
	logger.Load().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Load().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Load().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Load().Error(msg, fields...)
}

func Sync() error {
	return logger.Load().Sync()
}
