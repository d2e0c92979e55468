package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/GophIntake/internal/models"
)

func setupStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

var sessionCols = []string{
	"id", "state", "applicant_data", "secret_phrase_hash", "pending_verification",
	"pending_recovery", "suggestions", "applicant_email", "submitted_at",
	"recovery_attempts", "last_recovery_attempt", "created_at", "updated_at",
}

func anyArgs(n int) []driver.Value {
	out := make([]driver.Value, n)
	for i := range out {
		out[i] = sqlmock.AnyArg()
	}
	return out
}

func TestGetSession_Success(t *testing.T) {
	store, mock := setupStoreMock(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			"s1", "AWAITING_CAREER_GOALS", []byte(`{"email":"a@x.com","name":"Ana"}`), "hash",
			nil, []byte(`{"email":"a@x.com","verified_fields":["github"],"score":3,"feasible":true}`),
			"{Grow,Lead}", "", nil, 2, now, now, now,
		))

	sess, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.AwaitingCareerGoals, sess.State)
	assert.Equal(t, "Ana", sess.Profile.Name)
	assert.Equal(t, "hash", sess.SecretPhraseHash)
	assert.Nil(t, sess.PendingVerification)
	require.NotNil(t, sess.PendingRecovery)
	assert.Equal(t, 3, sess.PendingRecovery.Score)
	assert.Equal(t, []string{"Grow", "Lead"}, sess.Suggestions)
	assert.Nil(t, sess.SubmittedAt)
	assert.Equal(t, 2, sess.Throttle.Attempts)
	require.NotNil(t, sess.Throttle.LastAttempt)
	assert.True(t, sess.Throttle.LastAttempt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_NotFound(t *testing.T) {
	store, mock := setupStoreMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := store.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetSession_QueryError(t *testing.T) {
	store, mock := setupStoreMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = $1`)).
		WithArgs("s1").
		WillReturnError(errors.New("conn reset"))

	_, err := store.GetSession(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "GetSession")
}

func TestFindSessionByEmail_NormalizesAndExcludes(t *testing.T) {
	store, mock := setupStoreMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE email = \$1 AND id <> \$2\s+ORDER BY \(secret_phrase_hash <> ''\) DESC, updated_at DESC`).
		WithArgs("a@x.com", "current").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			"other", "AWAITING_GITHUB", []byte(`{"email":"a@x.com"}`), "h",
			nil, nil, "{}", "", nil, 0, nil, now, now,
		))

	sess, err := store.FindSessionByEmail(context.Background(), " A@X.com ", "current")
	require.NoError(t, err)
	assert.Equal(t, "other", sess.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApplicant(t *testing.T) {
	store, mock := setupStoreMock(t)
	now := time.Now().UTC()
	cols := []string{
		"email", "profile", "secret_phrase_hash", "application_status", "review_notes",
		"reviewed_at", "reviewed_by", "recovery_attempts", "last_recovery_attempt",
		"submitted_at", "created_at", "updated_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM applicants WHERE email = $1`)).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"a@x.com", []byte(`{"email":"a@x.com","github":"ana"}`), "h", "accepted", "great fit",
			now, "mentor", 1, now, now, now, now,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM applicants WHERE email = $1`)).
		WithArgs("b@x.com").
		WillReturnRows(sqlmock.NewRows(cols))

	a, err := store.GetApplicant(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, a.Status)
	assert.Equal(t, "ana", a.Profile.GitHub)
	assert.Equal(t, "mentor", a.ReviewedBy)
	require.NotNil(t, a.ReviewedAt)

	_, err = store.GetApplicant(context.Background(), "b@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_EmptyIsNoop(t *testing.T) {
	store, mock := setupStoreMock(t)
	require.NoError(t, store.Apply(context.Background(), models.ChangeSet{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_SaveDeleteSubmitInOneTx(t *testing.T) {
	store, mock := setupStoreMock(t)
	now := time.Now().UTC()
	sess := models.NewSession("s1", now)
	sess.Profile.Email = "a@x.com"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WithArgs(append([]driver.Value{"s1"}, anyArgs(13)...)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO applicants`)).
		WithArgs(append([]driver.Value{"a@x.com"}, anyArgs(6)...)...).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(), models.ChangeSet{
		SaveSessions:     []*models.Session{sess},
		DeleteSessionIDs: []string{"s2"},
		Submit:           &models.Applicant{Email: "A@x.com", CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_ResubmitKeepsReviewColumns(t *testing.T) {
	store, mock := setupStoreMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(email\) DO UPDATE SET\s+profile = EXCLUDED\.profile,\s+secret_phrase_hash = EXCLUDED\.secret_phrase_hash,\s+submitted_at = EXCLUDED\.submitted_at,\s+updated_at = EXCLUDED\.updated_at\s*$`).
		WithArgs("a@x.com", sqlmock.AnyArg(), "h", "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(), models.ChangeSet{
		Submit: &models.Applicant{Email: "a@x.com", SecretPhraseHash: "h", CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RollsBackOnFailure(t *testing.T) {
	store, mock := setupStoreMock(t)
	sess := models.NewSession("s1", time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE applicants SET secret_phrase_hash = $2`)).
		WithArgs("a@x.com", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Apply(context.Background(), models.ChangeSet{
		SaveSessions:    []*models.Session{sess},
		ApplicantPhrase: &models.PhraseUpdate{Email: "a@x.com", Hash: "newhash"},
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_FieldThrottleReview(t *testing.T) {
	store, mock := setupStoreMock(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`jsonb_set(profile, $2, to_jsonb($3::text))`)).
		WithArgs("a@x.com", sqlmock.AnyArg(), "ana-dev").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET recovery_attempts = $2, last_recovery_attempt = $3`)).
		WithArgs("a@x.com", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET application_status = $2`)).
		WithArgs("a@x.com", "accepted", "strong", "mentor", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(), models.ChangeSet{
		ApplicantField:    &models.FieldUpdate{Email: "a@x.com", Field: models.FieldGitHub, Value: "ana-dev"},
		ApplicantThrottle: &models.ThrottleUpdate{Email: "a@x.com", Throttle: models.Throttle{Attempts: 3, LastAttempt: &at}},
		Review:            &models.Review{Email: "a@x.com", Status: models.StatusAccepted, Notes: "strong", By: "mentor", At: at},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_SessionThrottleOnly(t *testing.T) {
	store, mock := setupStoreMock(t)
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sessions SET recovery_attempts = $2, last_recovery_attempt = $3 WHERE id = $1`)).
		WithArgs("old", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Apply(context.Background(), models.ChangeSet{
		SessionThrottle: &models.SessionThrottleUpdate{SessionID: "old", Throttle: models.Throttle{Attempts: 1, LastAttempt: &at}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
