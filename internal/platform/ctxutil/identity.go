package ctxutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type userIDKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}

// Default returns ctx, or context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// NewCorrelationID returns "req-<unix>-<8 hex>".
func NewCorrelationID(now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("req-%d-%08x", now.Unix(), now.UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("req-%d-%s", now.Unix(), hex.EncodeToString(b[:]))
}

// EnsureCorrelationID returns the correlation id on ctx, creating and
// attaching one when missing (background jobs, CLI).
func EnsureCorrelationID(ctx context.Context, now time.Time) (context.Context, string) {
	ctx = Default(ctx)
	if td := GetTraceData(ctx); td != nil && td.CorrelationID != "" {
		return ctx, td.CorrelationID
	}
	id := NewCorrelationID(now)
	td := &TraceData{CorrelationID: id}
	if prev := GetTraceData(ctx); prev != nil {
		td.TraceID = prev.TraceID
		td.RequestID = prev.RequestID
	}
	return WithTraceData(ctx, td), id
}
