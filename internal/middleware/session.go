package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ctxKey string

const (
	sessionKey  ctxKey = "session"
	reviewerKey ctxKey = "reviewer"
)

const maxSessionIDLen = 128

func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// WithSessionID reads the {sessionID} route parameter, rejects malformed ids
// and stores the id in the request context.
func WithSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if !validSessionID(id) {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionIDFromContext returns the session id set by WithSessionID, or an
// empty string.
func GetSessionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionKey).(string); ok {
		return s
	}
	return ""
}
