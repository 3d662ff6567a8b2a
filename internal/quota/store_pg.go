package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore keeps usage counters in the users table.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db, Now: time.Now}
}

// GetUsage returns userID's usage, creating the row on first sight and
// resetting the counter when the last reset predates the current calendar
// month.
func (s *PGStore) GetUsage(ctx context.Context, userID string) (Usage, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err := s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Increment bumps userID's monthly counter, applying the rollover first so
// a stale row does not absorb the increment into last month's count.
func (s *PGStore) Increment(ctx context.Context, userID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = s.lockAndEnsure(ctx, tx, userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
UPDATE users SET reports_generated = reports_generated + 1, updated_at = $1 WHERE id = $2`,
		s.now(), userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	now := s.now()
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT subscription_tier, reports_generated, last_report_reset FROM users WHERE id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Tier, &u.ReportsGenerated, &u.LastReset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			u = Usage{Tier: TierStarter, ReportsGenerated: 0, LastReset: now}
			if _, err = tx.ExecContext(ctx, `
INSERT INTO users (id, subscription_tier, reports_generated, last_report_reset) VALUES ($1, $2, $3, $4)`,
				userID, u.Tier, u.ReportsGenerated, u.LastReset); err != nil {
				return Usage{}, err
			}
			return u, nil
		}
		return Usage{}, err
	}

	if u.LastReset.Before(MonthStart(now)) {
		u.ReportsGenerated = 0
		u.LastReset = now
		if _, err := tx.ExecContext(ctx, `
UPDATE users SET reports_generated = 0, last_report_reset = $1, updated_at = $1 WHERE id = $2`,
			now, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

func (s *PGStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ Store = (*PGStore)(nil)
