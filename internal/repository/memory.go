package repository

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/GophIntake/internal/models"
)

// MemoryStore keeps sessions and applicants in process memory. It is used
// when no database DSN is configured and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*models.Session
	applicants map[string]*models.Applicant
	now        func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*models.Session),
		applicants: make(map[string]*models.Applicant),
		now:        time.Now,
	}
}

// GetSession returns a copy of the stored session.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sess.Clone(), nil
}

// FindSessionByEmail returns the session other than excludeID whose profile
// email equals email. Sessions bound to a secret phrase win over those that
// are not; ties go to the most recently updated.
func (m *MemoryStore) FindSessionByEmail(_ context.Context, email, excludeID string) (*models.Session, error) {
	email = models.NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.Session
	for id, sess := range m.sessions {
		if id == excludeID || models.NormalizeEmail(sess.Profile.Email) != email {
			continue
		}
		if found == nil || preferSession(sess, found) {
			found = sess
		}
	}
	if found == nil {
		return nil, models.ErrNotFound
	}
	return found.Clone(), nil
}

func preferSession(a, b *models.Session) bool {
	if ah, bh := a.SecretPhraseHash != "", b.SecretPhraseHash != ""; ah != bh {
		return ah
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

// GetApplicant returns a copy of the applicant record for email.
func (m *MemoryStore) GetApplicant(_ context.Context, email string) (*models.Applicant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.applicants[models.NormalizeEmail(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneApplicant(a), nil
}

// Apply writes cs under a single lock. Applicant updates are checked before
// anything is written so a failing change set leaves the store untouched.
func (m *MemoryStore) Apply(_ context.Context, cs models.ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists := func(email string) bool {
		email = models.NormalizeEmail(email)
		if cs.Submit != nil && models.NormalizeEmail(cs.Submit.Email) == email {
			return true
		}
		_, ok := m.applicants[email]
		return ok
	}
	if cs.ApplicantField != nil && !exists(cs.ApplicantField.Email) ||
		cs.ApplicantPhrase != nil && !exists(cs.ApplicantPhrase.Email) ||
		cs.ApplicantThrottle != nil && !exists(cs.ApplicantThrottle.Email) ||
		cs.Review != nil && !exists(cs.Review.Email) {
		return models.ErrNotFound
	}
	if u := cs.SessionThrottle; u != nil {
		if _, ok := m.sessions[u.SessionID]; !ok {
			return models.ErrNotFound
		}
	}

	for _, sess := range cs.SaveSessions {
		c := sess.Clone()
		if prev, ok := m.sessions[c.ID]; ok {
			c.CreatedAt = prev.CreatedAt
		}
		m.sessions[c.ID] = c
	}
	for _, id := range cs.DeleteSessionIDs {
		delete(m.sessions, id)
	}

	if u := cs.SessionThrottle; u != nil {
		if sess, ok := m.sessions[u.SessionID]; ok {
			sess.Throttle = cloneThrottle(u.Throttle)
		}
	}

	now := m.now()
	if cs.Submit != nil {
		in := cloneApplicant(cs.Submit)
		in.Email = models.NormalizeEmail(in.Email)
		// Same upsert rule as submitApplicant: a resubmission keeps the review
		// decision and the recovery counter.
		if prev, ok := m.applicants[in.Email]; ok {
			in.Status = prev.Status
			in.ReviewNotes = prev.ReviewNotes
			in.ReviewedAt = prev.ReviewedAt
			in.ReviewedBy = prev.ReviewedBy
			in.Throttle = prev.Throttle
			in.CreatedAt = prev.CreatedAt
		}
		if in.Status == "" {
			in.Status = models.StatusPending
		}
		m.applicants[in.Email] = in
	}
	if u := cs.ApplicantField; u != nil {
		a := m.applicants[models.NormalizeEmail(u.Email)]
		a.Profile.Set(u.Field, u.Value)
		a.UpdatedAt = now
	}
	if u := cs.ApplicantPhrase; u != nil {
		a := m.applicants[models.NormalizeEmail(u.Email)]
		a.SecretPhraseHash = u.Hash
		a.UpdatedAt = now
	}
	if u := cs.ApplicantThrottle; u != nil {
		a := m.applicants[models.NormalizeEmail(u.Email)]
		a.Throttle = cloneThrottle(u.Throttle)
	}
	if r := cs.Review; r != nil {
		a := m.applicants[models.NormalizeEmail(r.Email)]
		at := r.At
		a.Status = r.Status
		a.ReviewNotes = r.Notes
		a.ReviewedBy = r.By
		a.ReviewedAt = &at
		a.UpdatedAt = at
	}
	return nil
}

func cloneThrottle(t models.Throttle) models.Throttle {
	if t.LastAttempt != nil {
		v := *t.LastAttempt
		t.LastAttempt = &v
	}
	return t
}

func cloneApplicant(a *models.Applicant) *models.Applicant {
	c := *a
	c.Throttle = cloneThrottle(a.Throttle)
	if a.ReviewedAt != nil {
		v := *a.ReviewedAt
		c.ReviewedAt = &v
	}
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		c.SubmittedAt = &v
	}
	return &c
}
