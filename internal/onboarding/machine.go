// Package onboarding implements the linear onboarding state machine: the
// ordered question list, field saving, navigation and completion gating.
//
// Every function works on a session value owned by the caller and either
// applies the whole transition or returns an *Error without touching it.
package onboarding

import (
	"time"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/phrase"
)

// Next returns the step after s. FREE_CHAT maps to itself.
func Next(s models.Step) models.Step {
	idx := s.Index()
	if idx < 0 || idx >= len(models.StepOrder)-1 {
		return s
	}
	return models.StepOrder[idx+1]
}

// IsNavigable reports whether s may be targeted by ChangeState. Email and
// secret phrase are excluded, as are the terminal states.
func IsNavigable(s models.Step) bool {
	idx := s.Index()
	return idx > models.AwaitingSecretPhrase.Index() &&
		idx <= models.AwaitingSuccessDefinition.Index()
}

// SaveField stores exactly one value for the field implied by sess.State and
// advances to the next step. The secret phrase is stored only as a hash.
func SaveField(sess *models.Session, value string) *Error {
	if sess.Pending() {
		return Preconditionf("finish the pending verification or recovery first")
	}
	if sess.State.Terminal() {
		return Preconditionf("onboarding questions are finished; update your profile instead")
	}

	if sess.State == models.AwaitingSecretPhrase {
		if phrase.Empty(value) {
			return Validationf("secret phrase cannot be empty")
		}
		sess.SecretPhraseHash = phrase.Hash(value)
		advance(sess)
		return nil
	}

	field, ok := models.StepField(sess.State)
	if !ok {
		return Preconditionf("no field is collected at %s", sess.State)
	}
	v, verr := NormalizeValue(field, value)
	if verr != nil {
		return verr
	}
	sess.Profile.Set(field, v)
	advance(sess)
	return nil
}

func advance(sess *models.Session) {
	sess.State = Next(sess.State)
	sess.Suggestions = Suggestions(sess.State)
}

// ChangeState jumps to target without touching collected data, so the user
// can keep or replace the current answer.
func ChangeState(sess *models.Session, target models.Step) *Error {
	if !IsNavigable(target) {
		return Validationf("cannot navigate to %s", target)
	}
	if sess.Pending() {
		return Preconditionf("finish the pending verification or recovery first")
	}
	if sess.SecretPhraseHash == "" || sess.Profile.Email == "" {
		return Preconditionf("email and secret phrase must be set before navigating")
	}
	if sess.SubmittedAt != nil {
		return Preconditionf("application already submitted; update your profile instead")
	}
	sess.State = target
	sess.Suggestions = Suggestions(target)
	return nil
}

// MissingFields returns the labels of required answers that are still blank.
func MissingFields(sess *models.Session) []string {
	var missing []string
	for _, step := range models.StepOrder {
		if step == models.AwaitingSecretPhrase {
			if sess.SecretPhraseHash == "" {
				missing = append(missing, "secret phrase")
			}
			continue
		}
		f, ok := models.StepField(step)
		if !ok || f.Optional() {
			continue
		}
		if !sess.Profile.Has(f) {
			missing = append(missing, f.Label())
		}
	}
	return missing
}

// CompleteOnboarding gates submission on every required answer. On success
// the session moves to FREE_CHAT and the returned applicant must be upserted
// by the caller in the same change set.
func CompleteOnboarding(sess *models.Session, now time.Time) (*models.Applicant, *Error) {
	if sess.Pending() {
		return nil, Preconditionf("finish the pending verification or recovery first")
	}
	if sess.SubmittedAt != nil {
		return nil, Preconditionf("application already submitted")
	}
	if missing := MissingFields(sess); len(missing) > 0 {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "some required answers are missing",
			Missing: missing,
		}
	}

	submitted := now
	sess.State = models.FreeChat
	sess.SubmittedAt = &submitted
	sess.ApplicantEmail = sess.Profile.Email
	sess.Suggestions = Suggestions(models.FreeChat)

	return &models.Applicant{
		Email:            sess.Profile.Email,
		Profile:          sess.Profile,
		SecretPhraseHash: sess.SecretPhraseHash,
		Status:           models.StatusPending,
		SubmittedAt:      &submitted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// UpdateField edits one answer after submission. The returned value is the
// normalized value written to the profile.
func UpdateField(sess *models.Session, f models.Field, value string) (string, *Error) {
	if !f.Valid() {
		return "", Validationf("unknown field %q", f)
	}
	if f == models.FieldEmail {
		return "", Validationf("email cannot be changed")
	}
	if sess.SubmittedAt == nil {
		return "", Preconditionf("profile updates are available after submitting")
	}
	v, verr := NormalizeValue(f, value)
	if verr != nil {
		return "", verr
	}
	sess.Profile.Set(f, v)
	sess.Suggestions = Suggestions(sess.State)
	return v, nil
}
