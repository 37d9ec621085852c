package logging

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

type Options struct {
	Component string
	Level     string
	// FilePath adds a rotated JSON log file next to stdout when set.
	FilePath string
}

// New builds the process logger. Call it once in main and pass the result down.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sink := zapcore.Lock(zapcore.AddSync(os.Stdout))
	if opts.FilePath != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(rot))
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	logger := zap.New(core, zap.AddCaller())
	if opts.Component != "" {
		logger = logger.With(zap.String("component", opts.Component))
	}
	return logger, nil
}

// WithCtx stores a request scoped logger in ctx.
func WithCtx(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx fetches the logger stored by WithCtx, or fallback.
func FromCtx(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
