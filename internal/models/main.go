// Package models defines the core data structures for onboarding sessions
// and applicants.
package models

import (
	"errors"
	"strings"
	"time"
)

// ApplicationStatus is the review state of a submitted application.
type ApplicationStatus string

const (
	// StatusPending is set when onboarding completes.
	StatusPending ApplicationStatus = "pending"
	// StatusAccepted marks an approved applicant.
	StatusAccepted ApplicationStatus = "accepted"
	// StatusRejected marks a declined applicant.
	StatusRejected ApplicationStatus = "rejected"
	// StatusWaitlisted marks an applicant parked for a later cohort.
	StatusWaitlisted ApplicationStatus = "waitlisted"
)

// Valid reports whether s is one of the known review states.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusWaitlisted:
		return true
	}
	return false
}

// Throttle is the recovery rate-limit bookkeeping for one identity.
type Throttle struct {
	// Attempts counts recovery initiations inside the current window.
	Attempts int `json:"attempts"`
	// LastAttempt is when the most recent initiation was recorded.
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

// PendingVerification holds the snapshot of another identity bound to the
// email a session just submitted. Nothing is merged until the secret phrase
// is verified.
type PendingVerification struct {
	// SessionID is the other session's id; empty when the snapshot comes from
	// an applicant record with no live session.
	SessionID        string  `json:"session_id,omitempty"`
	Email            string  `json:"email"`
	Profile          Profile `json:"profile"`
	State            Step    `json:"state"`
	SecretPhraseHash string  `json:"secret_phrase_hash"`
	// Completed is true when an applicant record exists for the email.
	Completed   bool       `json:"completed"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// PendingRecovery tracks an account-recovery attempt in progress.
type PendingRecovery struct {
	Email           string `json:"email"`
	TargetSessionID string `json:"target_session_id,omitempty"`
	// AvailableFields names the verifiable fields on file, never their values.
	AvailableFields    []Field `json:"available_fields"`
	VerifiedFields     []Field `json:"verified_fields"`
	Score              int     `json:"score"`
	TotalPossibleScore int     `json:"total_possible_score"`
	Attempts           int     `json:"attempts"`
	Failures           int     `json:"failures"`
	Locked             bool    `json:"locked"`
	// Feasible is false when the stored profile cannot reach the minimum
	// score; only "start fresh" is offered then.
	Feasible bool `json:"feasible"`
}

// Verified reports whether f was already confirmed in this recovery.
func (r *PendingRecovery) Verified(f Field) bool {
	for _, v := range r.VerifiedFields {
		if v == f {
			return true
		}
	}
	return false
}

// Session is the durable record of one conversational onboarding attempt.
type Session struct {
	ID                  string               `json:"session_id"`
	State               Step                 `json:"state"`
	Profile             Profile              `json:"applicant_data"`
	SecretPhraseHash    string               `json:"-"`
	PendingVerification *PendingVerification `json:"pending_verification,omitempty"`
	PendingRecovery     *PendingRecovery     `json:"pending_recovery,omitempty"`
	Suggestions         []string             `json:"suggestions"`
	ApplicantEmail      string               `json:"applicant_email,omitempty"`
	SubmittedAt         *time.Time           `json:"submitted_at,omitempty"`
	Throttle            Throttle             `json:"-"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ErrBothPending is returned by Validate when verification and recovery are
// active at the same time.
var ErrBothPending = errors.New("session has both pending verification and pending recovery")

// NewSession returns a fresh session at the first step.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     AwaitingEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so transitions can work on a private value.
func (s *Session) Clone() *Session {
	c := *s
	c.Suggestions = append([]string(nil), s.Suggestions...)
	if s.PendingVerification != nil {
		pv := *s.PendingVerification
		if pv.SubmittedAt != nil {
			t := *pv.SubmittedAt
			pv.SubmittedAt = &t
		}
		c.PendingVerification = &pv
	}
	if s.PendingRecovery != nil {
		pr := *s.PendingRecovery
		pr.AvailableFields = append([]Field(nil), s.PendingRecovery.AvailableFields...)
		pr.VerifiedFields = append([]Field(nil), s.PendingRecovery.VerifiedFields...)
		c.PendingRecovery = &pr
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		c.SubmittedAt = &t
	}
	if s.Throttle.LastAttempt != nil {
		t := *s.Throttle.LastAttempt
		c.Throttle.LastAttempt = &t
	}
	return &c
}

// Validate checks the structural invariants that must hold before a
// session is persisted.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	if !s.State.Valid() {
		return errors.New("session state is unknown: " + string(s.State))
	}
	if s.PendingVerification != nil && s.PendingRecovery != nil {
		return ErrBothPending
	}
	return nil
}

// Pending reports whether a verification or recovery sub-flow is active.
func (s *Session) Pending() bool {
	return s.PendingVerification != nil || s.PendingRecovery != nil
}

// Applicant is the durable, email-keyed record of a submitted application.
type Applicant struct {
	Email            string            `json:"email"`
	Profile          Profile           `json:"profile"`
	SecretPhraseHash string            `json:"-"`
	Status           ApplicationStatus `json:"application_status"`
	ReviewNotes      string            `json:"review_notes,omitempty"`
	ReviewedAt       *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy       string            `json:"reviewed_by,omitempty"`
	Throttle         Throttle          `json:"-"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
