package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "delivery_fallback").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldJobID is the delivery job identifier.
	FieldJobID = "job_id"
	// FieldUnitID is the serialized unit whose label is being printed.
	FieldUnitID = "unit_id"
	// FieldTransport names the delivery transport (device, socket, file).
	FieldTransport = "transport"
	// FieldPrinter is the host:port of the target printer.
	FieldPrinter = "printer"
)

type contextKey string

const (
	jobIDKey  contextKey = "job_id"
	unitIDKey contextKey = "unit_id"
)

// WithJobID stores a delivery job identifier on the context.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// WithUnitID stores a unit identifier on the context.
func WithUnitID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, unitIDKey, id)
}

// JobIDFromContext returns the delivery job identifier, if any.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(jobIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if id, ok := ctx.Value(unitIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldUnitID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
