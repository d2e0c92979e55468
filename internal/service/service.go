// Package service runs onboarding operations turn by turn: it loads the
// session, applies a pure transition from the onboarding and recovery
// packages, and persists the result atomically through a Repository.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/idempotency"
	"github.com/atinyakov/GophIntake/internal/metrics"
	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/recovery"
)

// Repository defines the persistence operations needed by the
// OnboardingService.
type Repository interface {
	// GetSession returns models.ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// FindSessionByEmail returns another session bound to email, skipping
	// excludeID, or models.ErrNotFound.
	FindSessionByEmail(ctx context.Context, email, excludeID string) (*models.Session, error)
	// GetApplicant returns models.ErrNotFound when no application exists.
	GetApplicant(ctx context.Context, email string) (*models.Applicant, error)
	// Apply persists every part of cs or nothing.
	Apply(ctx context.Context, cs models.ChangeSet) error
}

// ReplayCache stores encoded turn outcomes by idempotency key.
type ReplayCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// OnboardingService implements the onboarding, identity resolution and
// recovery operations.
type OnboardingService struct {
	repo    Repository
	replay  ReplayCache
	policy  recovery.Policy
	locks   *keyedMutex
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an OnboardingService.
type Option func(*OnboardingService)

// WithClock replaces time.Now, mainly for rate-limit window tests.
func WithClock(now func() time.Time) Option {
	return func(s *OnboardingService) { s.now = now }
}

// WithLogger sets the logger used for applied operations.
func WithLogger(log *zap.Logger) Option {
	return func(s *OnboardingService) { s.log = log }
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OnboardingService) { s.metrics = m }
}

// WithPolicy overrides the default recovery policy.
func WithPolicy(p recovery.Policy) Option {
	return func(s *OnboardingService) { s.policy = p }
}

// WithReplayCache sets where turn outcomes are remembered. The default is a
// process-local cache.
func WithReplayCache(c ReplayCache) Option {
	return func(s *OnboardingService) { s.replay = c }
}

// NewOnboardingService constructs an OnboardingService backed by repo.
func NewOnboardingService(repo Repository, opts ...Option) *OnboardingService {
	s := &OnboardingService{
		repo:   repo,
		policy: recovery.DefaultPolicy(),
		locks:  newKeyedMutex(),
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.replay == nil {
		s.replay = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	}
	return s
}

// Policy returns the recovery policy in effect.
func (s *OnboardingService) Policy() recovery.Policy { return s.policy }
