package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/idempotency"
	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
	"github.com/atinyakov/GophIntake/internal/recovery"
)

// Turn identifies one inbound user message for a session. MessageID is the
// idempotency key: a repeated (SessionID, MessageID) gets the first result.
type Turn struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
}

// RecoveryStatus is the caller-visible progress of an account recovery. It
// names fields but never carries stored values.
type RecoveryStatus struct {
	Score          int            `json:"score"`
	TotalPossible  int            `json:"total_possible_score"`
	MinScore       int            `json:"min_score"`
	VerifiedFields []models.Field `json:"verified_fields"`
	NextField      models.Field   `json:"next_field,omitempty"`
	NextLabel      string         `json:"next_label,omitempty"`
	Matched        bool           `json:"matched"`
	Succeeded      bool           `json:"succeeded"`
	Locked         bool           `json:"locked"`
	Feasible       bool           `json:"feasible"`
	Exhausted      bool           `json:"exhausted"`
}

// Outcome is the structured result of every operation. Domain failures are
// reported here with OK=false; they are never returned as Go errors.
type Outcome struct {
	OK                bool            `json:"ok"`
	Kind              onboarding.Kind `json:"kind,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Missing           []string        `json:"missing,omitempty"`
	RetryAfterSeconds int             `json:"retry_after_seconds,omitempty"`

	SessionID           string          `json:"session_id"`
	State               models.Step     `json:"state"`
	Prompt              string          `json:"prompt"`
	Suggestions         []string        `json:"suggestions"`
	Profile             models.Profile  `json:"applicant_data"`
	PendingVerification bool            `json:"pending_verification"`
	Recovery            *RecoveryStatus `json:"recovery,omitempty"`
	Submitted           bool            `json:"submitted"`
}

// turn is the working state of one mutating operation. sess is a private
// copy; nothing reaches the store unless the operation returns nil.
type turn struct {
	sess    *models.Session
	now     time.Time
	changes models.ChangeSet

	// soft marks an outcome that is reported as a failure but still commits,
	// such as a wrong recovery answer that must be counted.
	soft     *onboarding.Error
	conflict string
	recovery *RecoveryStatus
	// committed runs after the change set is persisted.
	committed []func()
}

func (t *turn) afterCommit(fn func()) { t.committed = append(t.committed, fn) }

type mutation func(ctx context.Context, t *turn) error

// domain converts a possibly nil *onboarding.Error into an error without
// producing a non-nil interface holding a nil pointer.
func domain(e *onboarding.Error) error {
	if e == nil {
		return nil
	}
	return e
}

// execute runs one mutating operation for in. Operations for the same
// session are serialized, and a replayed message id returns the stored
// outcome without running fn.
func (s *OnboardingService) execute(ctx context.Context, op string, in Turn, fn mutation) (Outcome, error) {
	if in.SessionID == "" {
		return Outcome{Kind: onboarding.KindValidation, Reason: "session_id is required"}, nil
	}
	if in.MessageID == "" {
		return Outcome{SessionID: in.SessionID, Kind: onboarding.KindValidation, Reason: "message_id is required"}, nil
	}

	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	key := idempotency.Key(in.SessionID, in.MessageID)
	raw, hit, err := s.replay.Get(ctx, key)
	if err != nil {
		return Outcome{}, fmt.Errorf("replay lookup: %w", err)
	}
	if hit {
		var out Outcome
		if err := json.Unmarshal(raw, &out); err != nil {
			return Outcome{}, fmt.Errorf("decode replayed outcome: %w", err)
		}
		s.metrics.IncReplays()
		s.log.Info("turn replayed",
			zap.String("session_id", in.SessionID),
			zap.String("message_id", in.MessageID),
			zap.String("op", op),
		)
		return out, nil
	}

	sess, err := s.loadOrCreate(ctx, in.SessionID)
	if err != nil {
		return Outcome{}, err
	}

	t := &turn{sess: sess.Clone(), now: s.now()}
	var out Outcome
	err = fn(ctx, t)
	if derr, ok := onboarding.AsError(err); ok {
		out = s.failure(sess, derr)
	} else if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	} else {
		t.sess.UpdatedAt = t.now
		if err := t.sess.Validate(); err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", op, err)
		}
		t.changes.SaveSessions = append([]*models.Session{t.sess}, t.changes.SaveSessions...)
		if err := s.repo.Apply(ctx, t.changes); err != nil {
			return Outcome{}, fmt.Errorf("%s: apply: %w", op, err)
		}
		for _, fn := range t.committed {
			fn()
		}
		out = s.success(t)
	}

	if data, err := json.Marshal(out); err != nil {
		s.log.Error("failed to encode outcome", zap.String("op", op), zap.Error(err))
	} else if err := s.replay.Put(ctx, key, data); err != nil {
		s.log.Error("failed to remember outcome", zap.String("op", op), zap.Error(err))
	}

	result := "ok"
	if !out.OK {
		result = string(out.Kind)
	}
	s.metrics.ObserveOperation(op, result)
	s.log.Info("operation applied",
		zap.String("session_id", in.SessionID),
		zap.String("op", op),
		zap.String("outcome", result),
		zap.String("state", string(out.State)),
	)
	return out, nil
}

func (s *OnboardingService) loadOrCreate(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		sess = models.NewSession(id, s.now())
		sess.Suggestions = onboarding.Suggestions(sess.State)
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (s *OnboardingService) success(t *turn) Outcome {
	out := s.view(t.sess)
	out.OK = true
	if t.recovery != nil {
		out.Recovery = t.recovery
	}
	if t.conflict != "" {
		out.Kind = onboarding.KindConflict
		out.Reason = t.conflict
	}
	if t.soft != nil {
		out.OK = false
		out.Kind = t.soft.Kind
		out.Reason = t.soft.Message
	}
	return out
}

func (s *OnboardingService) failure(sess *models.Session, e *onboarding.Error) Outcome {
	out := s.view(sess)
	out.Kind = e.Kind
	out.Reason = e.Message
	out.Missing = e.Missing
	if e.RetryAfter > 0 {
		out.RetryAfterSeconds = int(math.Ceil(e.RetryAfter.Seconds()))
	}
	return out
}

// view renders what the presentation layer needs after any operation.
func (s *OnboardingService) view(sess *models.Session) Outcome {
	out := Outcome{
		SessionID:           sess.ID,
		State:               sess.State,
		Prompt:              onboarding.Prompt(sess.State),
		Suggestions:         append([]string{}, sess.Suggestions...),
		Profile:             sess.Profile,
		PendingVerification: sess.PendingVerification != nil,
		Submitted:           sess.SubmittedAt != nil,
	}
	switch {
	case sess.PendingVerification != nil:
		out.Prompt = onboarding.VerificationPrompt
	case sess.PendingRecovery != nil:
		out.Recovery = s.recoveryStatus(sess.PendingRecovery)
		out.Prompt = recoveryPrompt(out.Recovery)
	}
	return out
}

func (s *OnboardingService) recoveryStatus(r *models.PendingRecovery) *RecoveryStatus {
	st := &RecoveryStatus{
		Score:          r.Score,
		TotalPossible:  r.TotalPossibleScore,
		MinScore:       s.policy.MinScore,
		VerifiedFields: append([]models.Field{}, r.VerifiedFields...),
		Succeeded:      s.policy.Succeeded(r),
		Locked:         r.Locked,
		Feasible:       r.Feasible,
	}
	if st.Succeeded || st.Locked || !st.Feasible {
		return st
	}
	if next, ok := recovery.NextField(r); ok {
		st.NextField = next.Field
		st.NextLabel = next.Label
	} else {
		st.Exhausted = true
	}
	return st
}

func recoveryPrompt(st *RecoveryStatus) string {
	switch {
	case st.Succeeded:
		return "You're verified. Choose a new secret phrase."
	case st.Locked:
		return "Too many answers didn't match. Start the recovery again later, or start fresh."
	case !st.Feasible:
		return "We don't have enough information on file to verify this account. You can start fresh instead."
	case st.Exhausted:
		return "That's everything we can check, and it isn't enough to verify the account. You can start fresh instead."
	}
	return "To confirm it's you, what's your " + st.NextLabel + "?"
}
