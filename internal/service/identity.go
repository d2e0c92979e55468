package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
	"github.com/atinyakov/GophIntake/internal/phrase"
)

// identity is what the store knows about an email besides the current
// session.
type identity struct {
	other     *models.Session
	applicant *models.Applicant
}

// lookupIdentity fetches the other session bound to email and the applicant
// record concurrently. Both reads finish before any decision is made.
func (s *OnboardingService) lookupIdentity(ctx context.Context, email, excludeID string) (identity, error) {
	var id identity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sess, err := s.repo.FindSessionByEmail(gctx, email, excludeID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find session by email: %w", err)
		}
		id.other = sess
		return nil
	})
	g.Go(func() error {
		a, err := s.repo.GetApplicant(gctx, email)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get applicant: %w", err)
		}
		id.applicant = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return identity{}, err
	}
	return id, nil
}

// resolution is the decision taken for an email submitted by a session.
type resolution struct {
	// snapshot is set when the email belongs to an identity protected by a
	// secret phrase.
	snapshot *models.PendingVerification
	// stale is an abandoned session (no phrase) bound to the same email.
	stale string
}

func resolve(email string, id identity) resolution {
	var res resolution
	other := id.other
	if other != nil && other.SecretPhraseHash == "" {
		// A session still proving or recovering an identity is not abandoned.
		if !other.Pending() {
			res.stale = other.ID
		}
		other = nil
	}

	switch {
	case id.applicant != nil && id.applicant.SecretPhraseHash != "":
		a := id.applicant
		res.snapshot = &models.PendingVerification{
			Email:            email,
			Profile:          a.Profile,
			State:            models.FreeChat,
			SecretPhraseHash: a.SecretPhraseHash,
			Completed:        true,
			SubmittedAt:      a.SubmittedAt,
		}
		if other != nil {
			res.snapshot.SessionID = other.ID
		}
	case other != nil:
		res.snapshot = &models.PendingVerification{
			SessionID:        other.ID,
			Email:            email,
			Profile:          other.Profile,
			State:            other.State,
			SecretPhraseHash: other.SecretPhraseHash,
			Completed:        other.SubmittedAt != nil,
			SubmittedAt:      other.SubmittedAt,
		}
	}
	return res
}

// submitEmail saves the email answer and runs returning-user detection. A
// known, phrase-protected identity is never merged here: the session only
// records a snapshot and waits for the phrase.
func (s *OnboardingService) submitEmail(ctx context.Context, t *turn, value string) error {
	if err := domain(onboarding.SaveField(t.sess, value)); err != nil {
		return err
	}
	email := t.sess.Profile.Email

	id, err := s.lookupIdentity(ctx, email, t.sess.ID)
	if err != nil {
		return err
	}
	res := resolve(email, id)
	if res.stale != "" {
		t.changes.DeleteSessionIDs = append(t.changes.DeleteSessionIDs, res.stale)
	}
	if res.snapshot != nil {
		s.holdForVerification(t, res.snapshot)
	}
	return nil
}

func (s *OnboardingService) holdForVerification(t *turn, snap *models.PendingVerification) {
	t.sess.PendingVerification = snap
	t.sess.PendingRecovery = nil
	t.sess.State = models.AwaitingSecretPhrase
	t.sess.Suggestions = onboarding.VerificationSuggestions()
	t.conflict = "this email already has an application in progress; enter its secret phrase to continue"
}

// VerifySecretPhrase checks candidate against the identity captured when
// the email collided. On a match the current session adopts that identity
// and the other session is deleted in the same change set. A wrong phrase
// changes nothing.
func (s *OnboardingService) VerifySecretPhrase(ctx context.Context, in Turn, candidate string) (Outcome, error) {
	return s.execute(ctx, "verify_secret_phrase", in, func(ctx context.Context, t *turn) error {
		pv := t.sess.PendingVerification
		if pv == nil {
			return onboarding.Preconditionf("there is no identity waiting for verification")
		}
		if phrase.Empty(candidate) {
			return onboarding.Validationf("secret phrase cannot be empty")
		}
		if !phrase.Matches(candidate, pv.SecretPhraseHash) {
			return onboarding.Validationf("that secret phrase doesn't match")
		}

		sess := t.sess
		sess.Profile = pv.Profile
		sess.State = pv.State
		sess.SecretPhraseHash = pv.SecretPhraseHash
		sess.SubmittedAt = pv.SubmittedAt
		if pv.Completed {
			sess.State = models.FreeChat
			sess.ApplicantEmail = pv.Email
		}
		sess.PendingVerification = nil
		sess.Suggestions = onboarding.Suggestions(sess.State)

		if pv.SessionID != "" && pv.SessionID != sess.ID {
			t.changes.DeleteSessionIDs = append(t.changes.DeleteSessionIDs, pv.SessionID)
		}
		t.afterCommit(s.metrics.IncMerges)
		return nil
	})
}
