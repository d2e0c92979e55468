package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func sessionRouter(next http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(WithSessionID).Get("/sessions/{sessionID}", next.ServeHTTP)
	return r
}

func TestWithSessionID(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		code   int
		called bool
	}{
		{name: "uuid", path: "/sessions/6f1c2a8e-0b7d-4c1e-9d2a-3b4c5d6e7f80", code: http.StatusOK, called: true},
		{name: "chat id", path: "/sessions/tg_123456", code: http.StatusOK, called: true},
		{name: "bad characters", path: "/sessions/a.b", code: http.StatusBadRequest},
		{name: "too long", path: "/sessions/" + strings.Repeat("x", maxSessionIDLen+1), code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", tt.path, nil)
			sessionRouter(dummy).ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, rec.Code)
			}
			if dummy.called != tt.called {
				t.Fatalf("expected called=%v, got %v", tt.called, dummy.called)
			}
			if tt.called {
				want := strings.TrimPrefix(tt.path, "/sessions/")
				if got := GetSessionIDFromContext(dummy.ctx); got != want {
					t.Errorf("expected session %q, got %q", want, got)
				}
			}
		})
	}
}

func TestGetSessionIDFromContext_Missing(t *testing.T) {
	if got := GetSessionIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestReviewerCert_NoCertificate(t *testing.T) {
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/applicants/a@x.com/review", nil)
	ReviewerCert(dummy).ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called without a certificate")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestReviewerCert_EmptyPeerCertificates(t *testing.T) {
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/applicants/a@x.com/review", nil)
	req.TLS = &tls.ConnectionState{}
	ReviewerCert(dummy).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestReviewerCert_NoCommonName(t *testing.T) {
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/applicants/a@x.com/review", nil)
	req.TLS = &tls.ConnectionState{PeerCertificates: []*x509.Certificate{{}}}
	ReviewerCert(dummy).ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called without a common name")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 Unauthorized, got %d", rec.Code)
	}
}

func TestReviewerCert_ValidCertificate(t *testing.T) {
	cert := &x509.Certificate{Subject: pkix.Name{CommonName: "mentor-ops"}}
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/applicants/a@x.com/review", nil)
	req.TLS = &tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}
	ReviewerCert(dummy).ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if got := GetReviewerFromContext(dummy.ctx); got != "mentor-ops" {
		t.Errorf("expected reviewer 'mentor-ops', got %q", got)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/lookup", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/lookup" || fields["status"] != int64(http.StatusOK) || fields["size"] != int64(5) {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestWithRequestLogging_ServerErrorAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/sessions/s1/fields", nil))

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(logs.All()))
	}
}
