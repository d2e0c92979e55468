package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/phrase"
	"github.com/atinyakov/GophIntake/internal/repository"
	"github.com/atinyakov/GophIntake/internal/service"
)

type fixture struct {
	svc   *service.OnboardingService
	store *repository.MemoryStore
	now   time.Time
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	opts = append([]service.Option{service.WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = service.NewOnboardingService(f.store, opts...)
	return f
}

// turn returns a fresh message for sessionID.
func turn(sessionID string) service.Turn {
	return service.Turn{SessionID: sessionID, MessageID: uuid.NewString()}
}

// answers fills every question after the secret phrase, in order.
var answers = []string{
	"Ana Lima",
	"+55 11 91234-5678",
	"Backend",
	"Intermediate",
	"System design",
	"Tech lead",
	"github.com/analima",
	"skip",
	"skip",
	"A CLI for budgeting",
	"5-10 hours",
	"Pair programming",
	"Go",
	"Shipping a project",
}

func (f *fixture) save(t *testing.T, sessionID, value string) service.Outcome {
	t.Helper()
	out, err := f.svc.SaveField(context.Background(), turn(sessionID), value)
	require.NoError(t, err)
	return out
}

// onboard walks sessionID through every question and submits.
func (f *fixture) onboard(t *testing.T, sessionID, email, secret string) service.Outcome {
	t.Helper()
	require.True(t, f.save(t, sessionID, email).OK)
	require.True(t, f.save(t, sessionID, secret).OK)
	for _, a := range answers {
		out := f.save(t, sessionID, a)
		require.True(t, out.OK, "answer %q: %s", a, out.Reason)
	}
	out, err := f.svc.CompleteOnboarding(context.Background(), turn(sessionID))
	require.NoError(t, err)
	require.True(t, out.OK, out.Reason)
	return out
}

// seedInProgress stores a session that has a phrase but has not submitted.
func (f *fixture) seedInProgress(t *testing.T, id, email, secret string, p models.Profile, state models.Step) {
	t.Helper()
	sess := models.NewSession(id, f.now)
	p.Email = email
	sess.Profile = p
	sess.State = state
	sess.SecretPhraseHash = phrase.Hash(secret)
	require.NoError(t, f.store.Apply(context.Background(), models.ChangeSet{SaveSessions: []*models.Session{sess}}))
}

func (f *fixture) session(t *testing.T, id string) *models.Session {
	t.Helper()
	sess, err := f.store.GetSession(context.Background(), id)
	require.NoError(t, err)
	return sess
}
