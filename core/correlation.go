package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type correlationContextKey struct{}

// Correlation carries the trace and request identifiers attached to every
// log line emitted while an event is in flight. Missing values are replaced
// with generated ones so no request is ever unidentifiable.
type Correlation struct {
	TraceID   string
	RequestID string
}

func (c Correlation) Fields() map[string]any {
	return map[string]any{
		"trace_id":   c.TraceID,
		"request_id": c.RequestID,
	}
}

func NewCorrelation(traceID string, requestID string) Correlation {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return Correlation{TraceID: traceID, RequestID: requestID}
}

func WithCorrelation(ctx context.Context, correlation Correlation) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationContextKey{}, correlation)
}

func CorrelationFromContext(ctx context.Context) (Correlation, bool) {
	if ctx == nil {
		return Correlation{}, false
	}
	correlation, ok := ctx.Value(correlationContextKey{}).(Correlation)
	return correlation, ok
}

// EnsureCorrelation resolves the correlation pair for a request, generating
// identifiers when the inbound headers carried none, and stores it on the
// context for the rest of the pipeline.
func EnsureCorrelation(ctx context.Context, traceID string, requestID string) (context.Context, Correlation) {
	if existing, ok := CorrelationFromContext(ctx); ok {
		return ctx, existing
	}
	correlation := NewCorrelation(traceID, requestID)
	return WithCorrelation(ctx, correlation), correlation
}
