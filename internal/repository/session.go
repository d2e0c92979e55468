package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/GophIntake/internal/models"
)

const sessionColumns = `id, state, applicant_data, secret_phrase_hash, pending_verification,
		pending_recovery, suggestions, applicant_email, submitted_at,
		recovery_attempts, last_recovery_attempt, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess          models.Session
		profile       []byte
		verification  []byte
		recoveryState []byte
		submittedAt   sql.NullTime
		lastAttempt   sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.State, &profile, &sess.SecretPhraseHash, &verification,
		&recoveryState, pq.Array(&sess.Suggestions), &sess.ApplicantEmail, &submittedAt,
		&sess.Throttle.Attempts, &lastAttempt, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &sess.Profile); err != nil {
			return nil, fmt.Errorf("decode applicant_data: %w", err)
		}
	}
	if sess.PendingVerification, err = decodeJSON[models.PendingVerification](verification); err != nil {
		return nil, fmt.Errorf("decode pending_verification: %w", err)
	}
	if sess.PendingRecovery, err = decodeJSON[models.PendingRecovery](recoveryState); err != nil {
		return nil, fmt.Errorf("decode pending_recovery: %w", err)
	}
	sess.SubmittedAt = timePtr(submittedAt)
	sess.Throttle.LastAttempt = timePtr(lastAttempt)
	return &sess, nil
}

// GetSession loads a session by id. It returns models.ErrNotFound when the
// session does not exist.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSession: %w", err)
	}
	return sess, nil
}

// FindSessionByEmail returns the session bound to email, ignoring excludeID.
// Phrase-bound sessions come first, then the most recently updated. It
// returns models.ErrNotFound when none exists.
func (s *PostgresStore) FindSessionByEmail(ctx context.Context, email, excludeID string) (*models.Session, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE email = $1 AND id <> $2
		ORDER BY (secret_phrase_hash <> '') DESC, updated_at DESC LIMIT 1`, models.NormalizeEmail(email), excludeID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindSessionByEmail: %w", err)
	}
	return sess, nil
}

func saveSession(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("encode applicant_data: %w", err)
	}
	verification, err := nullJSON(sess.PendingVerification)
	if err != nil {
		return fmt.Errorf("encode pending_verification: %w", err)
	}
	recoveryState, err := nullJSON(sess.PendingRecovery)
	if err != nil {
		return fmt.Errorf("encode pending_recovery: %w", err)
	}
	suggestions := sess.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, state, email, applicant_data, secret_phrase_hash,
			pending_verification, pending_recovery, suggestions, applicant_email,
			submitted_at, recovery_attempts, last_recovery_attempt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			email = EXCLUDED.email,
			applicant_data = EXCLUDED.applicant_data,
			secret_phrase_hash = EXCLUDED.secret_phrase_hash,
			pending_verification = EXCLUDED.pending_verification,
			pending_recovery = EXCLUDED.pending_recovery,
			suggestions = EXCLUDED.suggestions,
			applicant_email = EXCLUDED.applicant_email,
			submitted_at = EXCLUDED.submitted_at,
			recovery_attempts = EXCLUDED.recovery_attempts,
			last_recovery_attempt = EXCLUDED.last_recovery_attempt,
			updated_at = EXCLUDED.updated_at
	`,
		sess.ID, sess.State, models.NormalizeEmail(sess.Profile.Email), profile, sess.SecretPhraseHash,
		verification, recoveryState, pq.Array(suggestions), sess.ApplicantEmail,
		nullTime(sess.SubmittedAt), sess.Throttle.Attempts, nullTime(sess.Throttle.LastAttempt),
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func updateSessionThrottle(ctx context.Context, tx *sql.Tx, u *models.SessionThrottleUpdate) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET recovery_attempts = $2, last_recovery_attempt = $3 WHERE id = $1
	`, u.SessionID, u.Throttle.Attempts, nullTime(u.Throttle.LastAttempt))
	if err != nil {
		return fmt.Errorf("update session throttle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update session throttle: %w", models.ErrNotFound)
	}
	return nil
}
