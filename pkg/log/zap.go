package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// ZapConfig controls how the zap-backed logger is built.
type ZapConfig struct {
	Level        string // debug, info, warn, error
	Mode         string // development or production
	Encoding     string // json or console; empty picks by terminal detection
	ColorEnabled bool
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// Init builds the process logger. It never fails: a broken configuration
// falls back to a no-op logger rather than aborting startup.
func Init(cfg ZapConfig) Logger {
	var zc zap.Config
	if cfg.Mode == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
			zc.Level = zap.NewAtomicLevelAt(level)
		}
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
		if term.IsTerminal(int(os.Stdout.Fd())) {
			encoding = "console"
		}
	}
	zc.Encoding = encoding
	if cfg.ColorEnabled && encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return NewNop()
	}
	return &zapLogger{s: base.Sugar()}
}

func (l *zapLogger) Debug(_ context.Context, args ...any)                 { l.s.Debug(args...) }
func (l *zapLogger) Debugf(_ context.Context, format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Info(_ context.Context, args ...any)                  { l.s.Info(args...) }
func (l *zapLogger) Infof(_ context.Context, format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Warn(_ context.Context, args ...any)                  { l.s.Warn(args...) }
func (l *zapLogger) Warnf(_ context.Context, format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *zapLogger) Error(_ context.Context, args ...any)                 { l.s.Error(args...) }
func (l *zapLogger) Errorf(_ context.Context, format string, args ...any) { l.s.Errorf(format, args...) }
func (l *zapLogger) Fatal(_ context.Context, args ...any)                 { l.s.Fatal(args...) }
func (l *zapLogger) Fatalf(_ context.Context, format string, args ...any) { l.s.Fatalf(format, args...) }
