package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
)

// ReviewRequest is an admin decision on one application.
type ReviewRequest struct {
	Email    string                   `json:"email"`
	Status   models.ApplicationStatus `json:"status"`
	Notes    string                   `json:"notes"`
	Reviewer string                   `json:"reviewer"`
}

// ReviewOutcome reports the result of ReviewApplication.
type ReviewOutcome struct {
	OK        bool              `json:"ok"`
	Kind      onboarding.Kind   `json:"kind,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Applicant *models.Applicant `json:"applicant,omitempty"`
}

// ReviewApplication records an admin decision. Only the review columns of
// the applicant are written, so it does not race with profile updates.
func (s *OnboardingService) ReviewApplication(ctx context.Context, req ReviewRequest) (ReviewOutcome, error) {
	email := models.NormalizeEmail(req.Email)
	fail := func(e *onboarding.Error) (ReviewOutcome, error) {
		s.metrics.ObserveOperation("review_application", string(e.Kind))
		return ReviewOutcome{Kind: e.Kind, Reason: e.Message}, nil
	}
	if !req.Status.Valid() {
		return fail(onboarding.Validationf("invalid application status %q", req.Status))
	}
	if strings.TrimSpace(req.Reviewer) == "" {
		return fail(onboarding.Validationf("reviewer is required"))
	}

	a, err := s.repo.GetApplicant(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return fail(onboarding.NotFoundf("no application for %s", email))
	}
	if err != nil {
		return ReviewOutcome{}, fmt.Errorf("get applicant: %w", err)
	}

	now := s.now()
	review := &models.Review{Email: email, Status: req.Status, Notes: req.Notes, By: req.Reviewer, At: now}
	if err := s.repo.Apply(ctx, models.ChangeSet{Review: review}); err != nil {
		return ReviewOutcome{}, fmt.Errorf("review_application: apply: %w", err)
	}

	a.Status = req.Status
	a.ReviewNotes = req.Notes
	a.ReviewedBy = req.Reviewer
	a.ReviewedAt = &now
	a.UpdatedAt = now
	s.metrics.ObserveOperation("review_application", "ok")
	s.log.Info("application reviewed",
		zap.String("status", string(req.Status)),
		zap.String("reviewer", req.Reviewer),
	)
	return ReviewOutcome{OK: true, Applicant: a}, nil
}
