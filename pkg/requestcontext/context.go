// Package requestcontext carries per-request and per-run values through
// context.Context: the caller asserted by the identity layer, the request id,
// the run trigger and a fixed "now". It has no net/http dependency, so
// services and jobs read these values without importing transport code.
package requestcontext

import (
	"context"
	"time"

	id "dossier/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	roleKey
	requestIDKey
	timeKey
	triggerKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// UserID is the authenticated caller, or the nil id outside a request.
func UserID(ctx context.Context) id.UserID {
	return value[id.UserID](ctx, userIDKey)
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Role is the caller's role claim, empty when unauthenticated.
func Role(ctx context.Context) string {
	return value[string](ctx, roleKey)
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func RequestID(ctx context.Context) string {
	return value[string](ctx, requestIDKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Trigger names what started a job or pipeline run: "schedule" or "manual".
func Trigger(ctx context.Context) string {
	return value[string](ctx, triggerKey)
}

func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey, trigger)
}

// Now returns the time pinned with WithTime, or the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins "now" so every timestamp written while serving one request
// or one scheduled run agrees.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey, t)
}
