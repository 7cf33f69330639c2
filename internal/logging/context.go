package logging

import (
	"context"
	"log/slog"

	"trawl/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for sync job identifiers.
	FieldJobID = "job_id"
	// FieldTaskID is the standardized structured logging key for sync task identifiers.
	FieldTaskID = "task_id"
	// FieldExternalID is the standardized structured logging key for entity external ids.
	FieldExternalID = "external_id"
	// FieldJobKind is the standardized structured logging key for job kinds.
	FieldJobKind = "kind"
	// FieldRunID is the standardized structured logging key for batch run correlation ids.
	FieldRunID = "run_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldJobID, id))
	}
	if id, ok := services.TaskIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldTaskID, id))
	}
	if id, ok := services.ExternalIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldExternalID, id))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
