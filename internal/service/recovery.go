package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
	"github.com/atinyakov/GophIntake/internal/phrase"
	"github.com/atinyakov/GophIntake/internal/recovery"
)

// InitiateRecovery starts knowledge-based recovery for email. Initiations
// are rate limited per identity; a rejected call is not counted.
func (s *OnboardingService) InitiateRecovery(ctx context.Context, in Turn, email string) (Outcome, error) {
	return s.execute(ctx, "initiate_recovery", in, func(ctx context.Context, t *turn) error {
		addr, derr := onboarding.NormalizeValue(models.FieldEmail, email)
		if derr != nil {
			return derr
		}

		id, err := s.lookupIdentity(ctx, addr, t.sess.ID)
		if err != nil {
			return err
		}
		if id.other != nil && id.other.SecretPhraseHash == "" {
			id.other = nil
		}
		if id.applicant == nil && id.other == nil {
			return onboarding.NotFoundf("there is no account to recover for this email")
		}

		var (
			throttle models.Throttle
			profile  models.Profile
			targetID string
		)
		if id.other != nil {
			targetID = id.other.ID
		}
		if id.applicant != nil {
			throttle = id.applicant.Throttle
			profile = id.applicant.Profile
		} else {
			throttle = id.other.Throttle
			profile = id.other.Profile
		}

		next, wait, ok := s.policy.Admit(throttle, t.now)
		if !ok {
			s.metrics.IncRateLimited()
			return &onboarding.Error{
				Kind:       onboarding.KindRateLimited,
				Message:    "too many recovery attempts; try again later",
				RetryAfter: wait,
			}
		}
		if id.applicant != nil {
			t.changes.ApplicantThrottle = &models.ThrottleUpdate{Email: addr, Throttle: next}
		} else {
			t.changes.SessionThrottle = &models.SessionThrottleUpdate{SessionID: targetID, Throttle: next}
		}

		pr := s.policy.Begin(addr, targetID, profile)
		t.sess.PendingVerification = nil
		t.sess.PendingRecovery = pr
		t.recovery = s.recoveryStatus(pr)
		if !pr.Feasible {
			t.sess.Suggestions = []string{"Start fresh"}
			t.soft = onboarding.Preconditionf("not enough information on file to verify this account; start fresh instead")
		} else {
			t.sess.Suggestions = []string{"Cancel recovery"}
		}
		t.afterCommit(s.metrics.IncRecoveryStarted)
		return nil
	})
}

// recoveryProfile loads the stored profile a recovery is checked against.
func (s *OnboardingService) recoveryProfile(ctx context.Context, pr *models.PendingRecovery) (*models.Applicant, *models.Session, error) {
	a, err := s.repo.GetApplicant(ctx, pr.Email)
	if err == nil {
		return a, nil, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, nil, fmt.Errorf("get applicant: %w", err)
	}
	if pr.TargetSessionID == "" {
		return nil, nil, onboarding.NotFoundf("the account being recovered no longer exists")
	}
	target, err := s.repo.GetSession(ctx, pr.TargetSessionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, onboarding.NotFoundf("the account being recovered no longer exists")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	return nil, target, nil
}

// VerifyRecoveryAnswer checks one answer. A wrong answer is still persisted
// because it counts toward the lock.
func (s *OnboardingService) VerifyRecoveryAnswer(ctx context.Context, in Turn, field, answer string) (Outcome, error) {
	return s.execute(ctx, "verify_recovery_answer", in, func(ctx context.Context, t *turn) error {
		pr := t.sess.PendingRecovery
		if pr == nil {
			return onboarding.Preconditionf("no recovery in progress")
		}
		if strings.TrimSpace(answer) == "" {
			return onboarding.Validationf("answer cannot be empty")
		}
		a, target, err := s.recoveryProfile(ctx, pr)
		if err != nil {
			return err
		}
		var profile models.Profile
		if a != nil {
			profile = a.Profile
		} else {
			profile = target.Profile
		}

		f := models.Field(strings.ToLower(strings.TrimSpace(field)))
		res, derr := s.policy.Answer(pr, profile, f, answer)
		if derr != nil {
			return derr
		}

		t.recovery = s.recoveryStatus(pr)
		t.recovery.Matched = res.Matched
		switch {
		case res.Succeeded:
			t.sess.Suggestions = nil
			t.afterCommit(s.metrics.IncRecoverySucceeded)
		case res.Locked:
			t.sess.Suggestions = []string{"Start fresh"}
			t.soft = onboarding.Preconditionf("too many answers didn't match; recovery is locked")
			t.afterCommit(s.metrics.IncRecoveryLocked)
		case !res.Matched:
			t.sess.Suggestions = []string{"Cancel recovery", "Start fresh"}
			t.soft = onboarding.Validationf("that answer doesn't match our records")
		case res.Exhausted:
			t.sess.Suggestions = []string{"Start fresh"}
			t.soft = onboarding.Preconditionf("not enough verified information; start fresh instead")
		default:
			t.sess.Suggestions = []string{"Cancel recovery"}
		}
		return nil
	})
}

// ResetSecretPhrase stores a new phrase for a recovered identity and binds
// the current session to it. The recovered session row is removed.
func (s *OnboardingService) ResetSecretPhrase(ctx context.Context, in Turn, newPhrase string) (Outcome, error) {
	return s.execute(ctx, "reset_secret_phrase", in, func(ctx context.Context, t *turn) error {
		pr := t.sess.PendingRecovery
		if !s.policy.Succeeded(pr) {
			return onboarding.Preconditionf("verify your identity before choosing a new secret phrase")
		}
		if phrase.Empty(newPhrase) {
			return onboarding.Validationf("secret phrase cannot be empty")
		}
		a, target, err := s.recoveryProfile(ctx, pr)
		if err != nil {
			return err
		}

		hash := phrase.Hash(newPhrase)
		sess := t.sess
		sess.SecretPhraseHash = hash
		if a != nil {
			t.changes.ApplicantPhrase = &models.PhraseUpdate{Email: a.Email, Hash: hash}
			sess.Profile = a.Profile
			sess.State = models.FreeChat
			sess.SubmittedAt = a.SubmittedAt
			sess.ApplicantEmail = a.Email
		} else {
			sess.Profile = target.Profile
			sess.State = target.State
			sess.SubmittedAt = target.SubmittedAt
			sess.ApplicantEmail = target.ApplicantEmail
			sess.Throttle = target.Throttle
		}
		sess.PendingRecovery = nil
		sess.PendingVerification = nil
		sess.Suggestions = onboarding.Suggestions(sess.State)

		if pr.TargetSessionID != "" && pr.TargetSessionID != sess.ID {
			t.changes.DeleteSessionIDs = append(t.changes.DeleteSessionIDs, pr.TargetSessionID)
		}
		return nil
	})
}

// CancelRecovery drops the pending recovery. Stored data is untouched. If
// the session's own email still belongs to another identity, the phrase
// prompt comes back so the session cannot claim that email.
func (s *OnboardingService) CancelRecovery(ctx context.Context, in Turn) (Outcome, error) {
	return s.execute(ctx, "cancel_recovery", in, func(ctx context.Context, t *turn) error {
		sess := t.sess
		sess.PendingRecovery = nil
		sess.Suggestions = onboarding.Suggestions(sess.State)

		if sess.SecretPhraseHash != "" || sess.Profile.Email == "" {
			return nil
		}
		id, err := s.lookupIdentity(ctx, sess.Profile.Email, sess.ID)
		if err != nil {
			return err
		}
		if res := resolve(sess.Profile.Email, id); res.snapshot != nil {
			s.holdForVerification(t, res.snapshot)
			t.conflict = ""
		}
		return nil
	})
}

// StartFresh restarts the current session at the email question. The
// in-progress session bound to the contested email is deleted only once
// recovery has failed for it (infeasible, locked or exhausted); otherwise it
// stays and the email keeps colliding. Applicant records and their recovery
// counters are kept.
func (s *OnboardingService) StartFresh(ctx context.Context, in Turn) (Outcome, error) {
	return s.execute(ctx, "start_fresh", in, func(ctx context.Context, t *turn) error {
		old := t.sess
		if old.SubmittedAt != nil {
			return onboarding.Preconditionf("your application is already submitted; update your profile instead")
		}

		var targetID string
		if pr := old.PendingRecovery; pr != nil && s.recoveryFailed(pr) {
			targetID = pr.TargetSessionID
		}
		if targetID != "" && targetID != old.ID {
			target, err := s.repo.GetSession(ctx, targetID)
			switch {
			case errors.Is(err, models.ErrNotFound):
			case err != nil:
				return fmt.Errorf("get session: %w", err)
			case target.SubmittedAt == nil:
				t.changes.DeleteSessionIDs = append(t.changes.DeleteSessionIDs, targetID)
			}
		}

		fresh := models.NewSession(old.ID, old.CreatedAt)
		fresh.Throttle = old.Throttle
		fresh.Suggestions = onboarding.Suggestions(models.AwaitingEmail)
		t.sess = fresh
		return nil
	})
}

// recoveryFailed reports whether pr can no longer prove the identity.
func (s *OnboardingService) recoveryFailed(pr *models.PendingRecovery) bool {
	if !pr.Feasible || pr.Locked {
		return true
	}
	_, more := recovery.NextField(pr)
	return !more && !s.policy.Succeeded(pr)
}
