package logger

import "context"

// Logger is the leveled logging handle injected into every component.
// No package-level logger exists; constructors receive one explicitly.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}
