package services

import "context"

type contextKey string

const (
	jobIDKey      contextKey = "job_id"
	taskIDKey     contextKey = "task_id"
	externalIDKey contextKey = "external_id"
	runIDKey      contextKey = "run_id"
)

// WithJobID annotates context with the sync job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the sync job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(jobIDKey)
	if id, ok := v.(int64); ok {
		return id, true
	}
	return 0, false
}

// WithTaskID annotates context with the sync task identifier.
func WithTaskID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext extracts the sync task identifier if present.
func TaskIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(taskIDKey)
	if id, ok := v.(int64); ok {
		return id, true
	}
	return 0, false
}

// WithExternalID annotates context with the entity's external catalog id.
func WithExternalID(ctx context.Context, id int64) context.Context {
	if id == 0 {
		return ctx
	}
	return context.WithValue(ctx, externalIDKey, id)
}

// ExternalIDFromContext extracts the entity external id if present.
func ExternalIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(externalIDKey)
	if id, ok := v.(int64); ok && id != 0 {
		return id, true
	}
	return 0, false
}

// WithRunID annotates context with a correlation identifier for one batch run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
