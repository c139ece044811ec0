package auth

import "context"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyStatus stores the resolved Status
const ContextKeyStatus ContextKey = "auth_status"

// NewContext returns a copy of ctx carrying st.
func NewContext(ctx context.Context, st Status) context.Context {
	return context.WithValue(ctx, ContextKeyStatus, st)
}

// FromContext returns the Status stored by NewContext.
func FromContext(ctx context.Context) (Status, bool) {
	st, ok := ctx.Value(ContextKeyStatus).(Status)
	return st, ok
}
