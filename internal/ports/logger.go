package ports

import "context"

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

// DecisionRecorder receives the outcome of every authorization check.
type DecisionRecorder interface {
	RecordDecision(role, module, action string, allowed bool)
	RecordConfigurationError(kind string)
}
