package log

import "context"

// Logger is the logging contract shared by every component. Methods take a
// context first so request-scoped fields can be attached without touching
// call sites.
type Logger interface {
	Debug(ctx context.Context, args ...any)
	Debugf(ctx context.Context, format string, args ...any)
	Info(ctx context.Context, args ...any)
	Infof(ctx context.Context, format string, args ...any)
	Warn(ctx context.Context, args ...any)
	Warnf(ctx context.Context, format string, args ...any)
	Error(ctx context.Context, args ...any)
	Errorf(ctx context.Context, format string, args ...any)
	Fatal(ctx context.Context, args ...any)
	Fatalf(ctx context.Context, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, ...any)           {}
func (nopLogger) Debugf(context.Context, string, ...any)  {}
func (nopLogger) Info(context.Context, ...any)            {}
func (nopLogger) Infof(context.Context, string, ...any)   {}
func (nopLogger) Warn(context.Context, ...any)            {}
func (nopLogger) Warnf(context.Context, string, ...any)   {}
func (nopLogger) Error(context.Context, ...any)           {}
func (nopLogger) Errorf(context.Context, string, ...any)  {}
func (nopLogger) Fatal(context.Context, ...any)           {}
func (nopLogger) Fatalf(context.Context, string, ...any)  {}

// NewNop returns a Logger that discards everything. Intended for tests.
func NewNop() Logger {
	return nopLogger{}
}
