package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/middleware"
)

type routerConfig struct {
	reviewerCerts bool
	metrics       http.Handler
}

// RouterOption customizes NewRouter.
type RouterOption func(*routerConfig)

// WithReviewerCerts mounts the review endpoint behind client certificate
// authentication. Without it the endpoint is not served.
func WithReviewerCerts() RouterOption {
	return func(c *routerConfig) { c.reviewerCerts = true }
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(c *routerConfig) { c.metrics = h }
}

// NewRouter constructs the HTTP handler that serves the onboarding API.
//
// Routes:
//
//	GET  /api/lookup?email=
//	GET  /api/sessions/{sessionID}
//	POST /api/sessions/{sessionID}/fields
//	POST /api/sessions/{sessionID}/state
//	POST /api/sessions/{sessionID}/complete
//	POST /api/sessions/{sessionID}/verify-phrase
//	POST /api/sessions/{sessionID}/recovery
//	POST /api/sessions/{sessionID}/recovery/answer
//	POST /api/sessions/{sessionID}/recovery/reset
//	POST /api/sessions/{sessionID}/recovery/cancel
//	POST /api/sessions/{sessionID}/start-fresh
//	POST /api/sessions/{sessionID}/profile
//	POST /api/applicants/{email}/review   (WithReviewerCerts only)
//	GET  /metrics
func NewRouter(
	sessions *SessionHandler,
	applicants *ApplicantHandler,
	logger *zap.Logger,
	opts ...RouterOption,
) http.Handler {
	cfg := routerConfig{metrics: promhttp.Handler()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Handle("/metrics", cfg.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/lookup", applicants.Lookup)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(middleware.WithSessionID)
			r.Get("/", sessions.Get)

			r.Group(func(r chi.Router) {
				// Only allow requests with Content-Type: application/json
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Post("/fields", sessions.SaveField)
				r.Post("/state", sessions.ChangeState)
				r.Post("/complete", sessions.Complete)
				r.Post("/verify-phrase", sessions.VerifyPhrase)
				r.Post("/recovery", sessions.InitiateRecovery)
				r.Post("/recovery/answer", sessions.AnswerRecovery)
				r.Post("/recovery/reset", sessions.ResetPhrase)
				r.Post("/recovery/cancel", sessions.CancelRecovery)
				r.Post("/start-fresh", sessions.StartFresh)
				r.Post("/profile", sessions.UpdateProfile)
			})
		})

		if cfg.reviewerCerts {
			r.Group(func(r chi.Router) {
				r.Use(middleware.ReviewerCert)
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Post("/applicants/{email}/review", applicants.Review)
			})
		}
	})

	return r
}
