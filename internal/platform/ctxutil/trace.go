package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries per-request identifiers. CorrelationID is the
// user-visible id echoed in every engine response.
type TraceData struct {
	TraceID       string
	RequestID     string
	CorrelationID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

func CorrelationID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.CorrelationID
	}
	return ""
}
