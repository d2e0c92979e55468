package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
)

// SaveField answers the question of the session's current step. At the
// email step it also detects returning users.
func (s *OnboardingService) SaveField(ctx context.Context, in Turn, value string) (Outcome, error) {
	return s.execute(ctx, "save_field", in, func(ctx context.Context, t *turn) error {
		if t.sess.State == models.AwaitingEmail && !t.sess.Pending() {
			return s.submitEmail(ctx, t, value)
		}
		return domain(onboarding.SaveField(t.sess, value))
	})
}

// ChangeState navigates to target, given as a step name or a field name.
func (s *OnboardingService) ChangeState(ctx context.Context, in Turn, target string) (Outcome, error) {
	return s.execute(ctx, "change_state", in, func(_ context.Context, t *turn) error {
		step, ok := models.ParseStep(target)
		if !ok {
			return onboarding.Validationf("unknown step %q", target)
		}
		return domain(onboarding.ChangeState(t.sess, step))
	})
}

// CompleteOnboarding submits the application and upserts the applicant
// record in the same change set as the session.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, in Turn) (Outcome, error) {
	return s.execute(ctx, "complete_onboarding", in, func(ctx context.Context, t *turn) error {
		applicant, derr := onboarding.CompleteOnboarding(t.sess, t.now)
		if derr != nil {
			return derr
		}

		existing, err := s.repo.GetApplicant(ctx, applicant.Email)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return fmt.Errorf("get applicant: %w", err)
		case existing.SecretPhraseHash != applicant.SecretPhraseHash:
			return onboarding.Preconditionf("an application for this email was submitted from another conversation")
		}

		t.changes.Submit = applicant
		t.afterCommit(s.metrics.IncSubmissions)
		return nil
	})
}

// UpdateProfileField edits one answer after submission. The session and the
// applicant record are both updated; the applicant only for that field.
func (s *OnboardingService) UpdateProfileField(ctx context.Context, in Turn, field, value string) (Outcome, error) {
	return s.execute(ctx, "update_profile_field", in, func(_ context.Context, t *turn) error {
		f := models.Field(field)
		v, derr := onboarding.UpdateField(t.sess, f, value)
		if derr != nil {
			return derr
		}
		email := t.sess.ApplicantEmail
		if email == "" {
			email = t.sess.Profile.Email
		}
		t.changes.ApplicantField = &models.FieldUpdate{Email: email, Field: f, Value: v}
		return nil
	})
}

// GetSession renders the current state of a session without mutating it.
// Unknown ids render as a brand-new session that has not been stored yet.
func (s *OnboardingService) GetSession(ctx context.Context, id string) (Outcome, error) {
	if id == "" {
		return Outcome{Kind: onboarding.KindValidation, Reason: "session_id is required"}, nil
	}
	sess, err := s.loadOrCreate(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	out := s.view(sess)
	out.OK = true
	return out, nil
}

// LookupResult is the read-only progress check for an email.
type LookupResult struct {
	Found     bool        `json:"found"`
	SessionID string      `json:"session_id,omitempty"`
	State     models.Step `json:"state,omitempty"`
	Name      string      `json:"name,omitempty"`
	Completed bool        `json:"completed"`
}

// Lookup reports whether email is known and how far its onboarding got.
func (s *OnboardingService) Lookup(ctx context.Context, email string) (LookupResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return LookupResult{}, nil
	}
	id, err := s.lookupIdentity(ctx, email, "")
	if err != nil {
		return LookupResult{}, err
	}

	var res LookupResult
	if id.other != nil {
		res.Found = true
		res.SessionID = id.other.ID
		res.State = id.other.State
		res.Name = id.other.Profile.Name
		res.Completed = id.other.SubmittedAt != nil
	}
	if a := id.applicant; a != nil {
		res.Found = true
		res.Completed = true
		res.State = models.FreeChat
		if a.Profile.Name != "" {
			res.Name = a.Profile.Name
		}
	}
	return res, nil
}
