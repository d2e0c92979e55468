// Package repository provides persistence for onboarding sessions and
// applicants using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/GophIntake/internal/models"
)

// PostgresStore persists sessions and applicants and applies change sets
// in a single transaction.
type PostgresStore struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresStore creates a PostgresStore using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance with the schema
// from db.InitPostgres applied.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Apply writes every part of cs atomically. Session saves run first, then
// deletions, then applicant writes.
func (s *PostgresStore) Apply(ctx context.Context, cs models.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, sess := range cs.SaveSessions {
		if err := saveSession(ctx, tx, sess); err != nil {
			return err
		}
	}

	if len(cs.DeleteSessionIDs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sessions WHERE id = ANY($1)`,
			pq.Array(cs.DeleteSessionIDs),
		); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
	}

	if cs.SessionThrottle != nil {
		if err := updateSessionThrottle(ctx, tx, cs.SessionThrottle); err != nil {
			return err
		}
	}

	if cs.Submit != nil {
		if err := submitApplicant(ctx, tx, cs.Submit); err != nil {
			return err
		}
	}
	if cs.ApplicantField != nil {
		if err := updateApplicantField(ctx, tx, cs.ApplicantField); err != nil {
			return err
		}
	}
	if cs.ApplicantPhrase != nil {
		if err := updateApplicantPhrase(ctx, tx, cs.ApplicantPhrase); err != nil {
			return err
		}
	}
	if cs.ApplicantThrottle != nil {
		if err := updateApplicantThrottle(ctx, tx, cs.ApplicantThrottle); err != nil {
			return err
		}
	}
	if cs.Review != nil {
		if err := reviewApplicant(ctx, tx, cs.Review); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullJSON encodes v, storing SQL NULL for a nil pointer.
func nullJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeJSON[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
