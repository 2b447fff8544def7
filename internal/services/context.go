package services

import "context"

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	activationKey contextKey = "activation"
	requestIDKey  contextKey = "request_id"
)

// WithSessionID annotates context with the player session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the player session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithActivation annotates context with a slide activation number.
func WithActivation(ctx context.Context, activation uint64) context.Context {
	return context.WithValue(ctx, activationKey, activation)
}

// ActivationFromContext extracts the slide activation number if present.
func ActivationFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(activationKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
