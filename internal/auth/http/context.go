// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"context"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
)

// sessionKey is a context key type for storing validated sessions.
type sessionKey struct{}

// WithSession stores a validated session in the context. Called by the
// session middleware after a successful token check.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// GetSession retrieves the validated session from the context. Returns
// (session, true) when present, or (nil, false) when no middleware set one.
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session.Session)
	return sess, ok
}
