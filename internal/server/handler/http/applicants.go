package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/GophIntake/internal/middleware"
	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/service"
)

// ApplicantService defines the email-keyed operations required by the
// ApplicantHandler.
type ApplicantService interface {
	Lookup(ctx context.Context, email string) (service.LookupResult, error)
	ReviewApplication(ctx context.Context, req service.ReviewRequest) (service.ReviewOutcome, error)
}

// ApplicantHandler handles lookups and admin review of applications.
type ApplicantHandler struct {
	Service ApplicantService
}

type reviewRequest struct {
	Status   string `json:"status" validate:"required"`
	Notes    string `json:"notes" validate:"max=4000"`
	Reviewer string `json:"reviewer"`
}

// Lookup handles GET /api/lookup?email=.
func (h *ApplicantHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	res, err := h.Service.Lookup(r.Context(), email)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// Review handles POST /api/applicants/{email}/review. A reviewer taken from
// a client certificate overrides the one in the body.
func (h *ApplicantHandler) Review(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	serve(w, r, func(ctx context.Context, req *reviewRequest) (service.ReviewOutcome, error) {
		reviewer := req.Reviewer
		if cn := middleware.GetReviewerFromContext(ctx); cn != "" {
			reviewer = cn
		}
		return h.Service.ReviewApplication(ctx, service.ReviewRequest{
			Email:    email,
			Status:   models.ApplicationStatus(req.Status),
			Notes:    req.Notes,
			Reviewer: reviewer,
		})
	})
}
