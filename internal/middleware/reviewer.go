package middleware

import (
	"context"
	"net/http"
)

// ReviewerCert enforces mutual TLS on admin routes.
//
// The Common Name of the verified client certificate becomes the reviewer
// identity recorded on application decisions.
func ReviewerCert(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate provided", http.StatusUnauthorized)
			return
		}
		cn := r.TLS.PeerCertificates[0].Subject.CommonName
		if cn == "" {
			http.Error(w, "client certificate has no common name", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), reviewerKey, cn)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetReviewerFromContext extracts the reviewer set by ReviewerCert. Returns an
// empty string if not found.
func GetReviewerFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(reviewerKey).(string); ok {
		return s
	}
	return ""
}
