// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one validation request for log correlation.
type TraceContext struct {
	TraceID   string
	RequestID string

	// DocumentRef is the caller's reference for the posting being validated
	// (document number, draft id). Optional.
	DocumentRef string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetTraceID returns trace ID from context or generates new one.
func GetTraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return uuid.New().String()
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext(documentRef string) *TraceContext {
	return &TraceContext{
		TraceID:     uuid.New().String(),
		RequestID:   uuid.New().String(),
		DocumentRef: documentRef,
	}
}
