package session

import "context"

type ctxKey struct{}

// WithSession returns a copy of ctx carrying an authorized session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session the guard authorized for this request.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.Email != ""
}
