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

// GetApplicant loads the applicant record for email. It returns
// models.ErrNotFound when onboarding was never completed for it.
func (s *PostgresStore) GetApplicant(ctx context.Context, email string) (*models.Applicant, error) {
	var (
		a           models.Applicant
		profile     []byte
		reviewedAt  sql.NullTime
		lastAttempt sql.NullTime
		submittedAt sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT email, profile, secret_phrase_hash, application_status, review_notes,
			reviewed_at, reviewed_by, recovery_attempts, last_recovery_attempt,
			submitted_at, created_at, updated_at
		FROM applicants WHERE email = $1
	`, models.NormalizeEmail(email)).Scan(
		&a.Email, &profile, &a.SecretPhraseHash, &a.Status, &a.ReviewNotes,
		&reviewedAt, &a.ReviewedBy, &a.Throttle.Attempts, &lastAttempt,
		&submittedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetApplicant: %w", err)
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &a.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	a.ReviewedAt = timePtr(reviewedAt)
	a.Throttle.LastAttempt = timePtr(lastAttempt)
	a.SubmittedAt = timePtr(submittedAt)
	return &a, nil
}

// submitApplicant inserts a new applicant as pending. A row that already
// exists only gets its answers, hash and submission time replaced: it can
// only be resubmitted by the same identity (the phrase hash must match), and
// a resubmission must not undo a reviewer's decision, which changes only
// through ReviewApplication. The recovery counter is kept as well.
func submitApplicant(ctx context.Context, tx *sql.Tx, a *models.Applicant) error {
	profile, err := json.Marshal(a.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	status := a.Status
	if status == "" {
		status = models.StatusPending
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO applicants (email, profile, secret_phrase_hash, application_status,
			submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			profile = EXCLUDED.profile,
			secret_phrase_hash = EXCLUDED.secret_phrase_hash,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at
	`, models.NormalizeEmail(a.Email), profile, a.SecretPhraseHash, status,
		nullTime(a.SubmittedAt), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("submit applicant: %w", err)
	}
	return nil
}

// execApplicant runs an UPDATE against one applicant row and reports
// models.ErrNotFound when no row matched.
func execApplicant(ctx context.Context, tx *sql.Tx, op, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func updateApplicantField(ctx context.Context, tx *sql.Tx, u *models.FieldUpdate) error {
	return execApplicant(ctx, tx, "update applicant field", `
		UPDATE applicants
		SET profile = jsonb_set(profile, $2, to_jsonb($3::text)), updated_at = now()
		WHERE email = $1
	`, models.NormalizeEmail(u.Email), pq.Array([]string{string(u.Field)}), u.Value)
}

func updateApplicantPhrase(ctx context.Context, tx *sql.Tx, u *models.PhraseUpdate) error {
	return execApplicant(ctx, tx, "update applicant phrase", `
		UPDATE applicants SET secret_phrase_hash = $2, updated_at = now() WHERE email = $1
	`, models.NormalizeEmail(u.Email), u.Hash)
}

func updateApplicantThrottle(ctx context.Context, tx *sql.Tx, u *models.ThrottleUpdate) error {
	return execApplicant(ctx, tx, "update applicant throttle", `
		UPDATE applicants SET recovery_attempts = $2, last_recovery_attempt = $3 WHERE email = $1
	`, models.NormalizeEmail(u.Email), u.Throttle.Attempts, nullTime(u.Throttle.LastAttempt))
}

func reviewApplicant(ctx context.Context, tx *sql.Tx, r *models.Review) error {
	return execApplicant(ctx, tx, "review applicant", `
		UPDATE applicants
		SET application_status = $2, review_notes = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5
		WHERE email = $1
	`, models.NormalizeEmail(r.Email), r.Status, r.Notes, r.By, r.At)
}
