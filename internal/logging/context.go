package logging

import (
	"context"

	"go.uber.org/zap"
)

// Context key types
type batchCtxKey struct{}
type taskCtxKey struct{}
type identityCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if batchID := BatchIDFromContext(ctx); batchID != "" {
		fields = append(fields, zap.String("batch_id", batchID))
	}
	if task := TaskFromContext(ctx); task != "" {
		fields = append(fields, zap.String("task", task))
	}
	if identity := IdentityFromContext(ctx); identity != "" {
		fields = append(fields, zap.String("identity", identity))
	}

	return fields
}

// WithBatchID tags the context with an execution batch identifier.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchCtxKey{}, batchID)
}

// BatchIDFromContext extracts the batch identifier, or "".
func BatchIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(batchCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithTask tags the context with a task name.
func WithTask(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, taskCtxKey{}, name)
}

// TaskFromContext extracts the task name, or "".
func TaskFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(taskCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithIdentity tags the context with a rendered dispatch identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext extracts the dispatch identity, or "".
func IdentityFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(identityCtxKey{}).(string); ok {
		return s
	}
	return ""
}
