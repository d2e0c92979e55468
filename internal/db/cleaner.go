package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartAbandonedSessionCleaner periodically deletes sessions that never got
// past the secret phrase step and have been idle longer than retention.
// Such sessions hold nothing a returning user could verify against.
func StartAbandonedSessionCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM sessions
                     WHERE secret_phrase_hash = ''
                       AND pending_verification IS NULL
                       AND pending_recovery IS NULL
                       AND updated_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean abandoned sessions", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned abandoned sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
