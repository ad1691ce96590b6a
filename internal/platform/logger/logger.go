package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 是全局的SugaredLogger实例。
// 在Initialize被调用之前它是一个no-op logger，保证测试中可以直接使用。
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize 按配置的日志级别初始化全局logger。
func Initialize(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = l.Sugar()
	return nil
}

// Sync 冲刷缓冲的日志，应在进程退出前调用。
func Sync() {
	_ = Log.Sync()
}
