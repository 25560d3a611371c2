// Package middleware provides HTTP middlewares for session gating and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/roadsigns/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// SessionSource reports the current operator session.
type SessionSource func() models.Session

// RequireSession is a middleware that rejects requests while no operator is
// logged in.
//
// On an active session the identity is stored in the request context, so it
// can be read downstream with IdentityFromContext.
func RequireSession(session SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session()
			if !s.Active {
				http.Error(w, "not logged in", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, s.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the operator identity from the request
// context. Returns an empty string if not found.
func IdentityFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(identityKey).(string); ok {
		return s
	}
	return ""
}
