// Package db bootstraps the PostgreSQL schema and runs background
// maintenance over it.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    applicant_data JSONB NOT NULL DEFAULT '{}',
    secret_phrase_hash TEXT NOT NULL DEFAULT '',
    pending_verification JSONB,
    pending_recovery JSONB,
    suggestions TEXT[] NOT NULL DEFAULT '{}',
    applicant_email TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ,
    recovery_attempts INTEGER NOT NULL DEFAULT 0,
    last_recovery_attempt TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CHECK (pending_verification IS NULL OR pending_recovery IS NULL)
);

CREATE INDEX IF NOT EXISTS sessions_email_idx ON sessions (email);

CREATE TABLE IF NOT EXISTS applicants (
    email TEXT PRIMARY KEY,
    profile JSONB NOT NULL DEFAULT '{}',
    secret_phrase_hash TEXT NOT NULL,
    application_status TEXT NOT NULL DEFAULT 'pending'
        CHECK (application_status IN ('pending', 'accepted', 'rejected', 'waitlisted')),
    review_notes TEXT NOT NULL DEFAULT '',
    reviewed_at TIMESTAMPTZ,
    reviewed_by TEXT NOT NULL DEFAULT '',
    recovery_attempts INTEGER NOT NULL DEFAULT 0,
    last_recovery_attempt TIMESTAMPTZ,
    submitted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// InitPostgres opens the database, verifies connectivity and creates the
// schema if it does not exist yet.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
