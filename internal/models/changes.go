package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// FieldUpdate overwrites one profile field of an applicant.
type FieldUpdate struct {
	Email string
	Field Field
	Value string
}

// PhraseUpdate replaces the secret phrase hash of an applicant.
type PhraseUpdate struct {
	Email string
	Hash  string
}

// ThrottleUpdate replaces the recovery rate-limit bookkeeping of an applicant.
type ThrottleUpdate struct {
	Email    string
	Throttle Throttle
}

// SessionThrottleUpdate replaces the recovery bookkeeping kept on an
// in-progress session that has no applicant record yet.
type SessionThrottleUpdate struct {
	SessionID string
	Throttle  Throttle
}

// Review records an admin decision on an application.
type Review struct {
	Email  string
	Status ApplicationStatus
	Notes  string
	By     string
	At     time.Time
}

// ChangeSet is everything one operation writes. Stores apply it atomically:
// either every part is persisted or none is.
type ChangeSet struct {
	// SaveSessions are upserted in order.
	SaveSessions []*Session
	// DeleteSessionIDs are removed after the saves.
	DeleteSessionIDs []string
	// Submit upserts the applicant row at onboarding completion. Review
	// fields, created_at and throttle bookkeeping of an existing row survive.
	Submit *Applicant
	// ApplicantField edits a single profile field of an applicant.
	ApplicantField *FieldUpdate
	// ApplicantPhrase replaces the applicant's phrase hash.
	ApplicantPhrase *PhraseUpdate
	// ApplicantThrottle replaces the applicant's recovery bookkeeping.
	ApplicantThrottle *ThrottleUpdate
	// SessionThrottle replaces only the recovery columns of another session,
	// leaving the rest of that row to its own conversation.
	SessionThrottle *SessionThrottleUpdate
	// Review stores an admin review decision.
	Review *Review
}

// Empty reports whether the change set writes nothing.
func (c ChangeSet) Empty() bool {
	return len(c.SaveSessions) == 0 && len(c.DeleteSessionIDs) == 0 &&
		c.Submit == nil && c.ApplicantField == nil && c.ApplicantPhrase == nil &&
		c.ApplicantThrottle == nil && c.SessionThrottle == nil && c.Review == nil
}
