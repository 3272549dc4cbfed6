package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

type lockoutsRepo struct {
	db dbtx
}

func scanLockout(row *sql.Row) (domain.Lockout, error) {
	var l domain.Lockout
	var lockedUntil sql.NullTime

	err := row.Scan(&l.AccountID, &l.Failures, &l.WindowStart, &lockedUntil,
		&l.LockoutCount, &l.LastFailure, &l.UpdatedAt)
	if err != nil {
		return domain.Lockout{}, mapNotFound(err)
	}

	l.LockedUntil = mapNullTimePtr(lockedUntil)
	return l, nil
}

func (r *lockoutsRepo) GetLockout(ctx context.Context, accountID string) (domain.Lockout, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT account_id, failures, window_start, locked_until, lockout_count, last_failure, updated_at
		 FROM lockouts WHERE account_id = ?`, accountID)
	return scanLockout(row)
}

func (r *lockoutsRepo) UpsertLockout(ctx context.Context, l domain.Lockout) error {
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lockouts (account_id, failures, window_start, locked_until, lockout_count, last_failure, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   failures = excluded.failures,
		   window_start = excluded.window_start,
		   locked_until = excluded.locked_until,
		   lockout_count = excluded.lockout_count,
		   last_failure = excluded.last_failure,
		   updated_at = excluded.updated_at`,
		l.AccountID, l.Failures, l.WindowStart, mapOptionalTime(l.LockedUntil),
		l.LockoutCount, l.LastFailure, l.UpdatedAt)
	return err
}

// IncrementFailures bumps the counter in one atomic statement so concurrent
// failed attempts cannot skip past the threshold. windowStart is the cutoff
// for the sliding window: a stored window older than it resets the count.
func (r *lockoutsRepo) IncrementFailures(ctx context.Context, accountID string, windowStart, now time.Time) (domain.Lockout, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lockouts (account_id, failures, window_start, locked_until, lockout_count, last_failure, updated_at)
		 VALUES (?, 1, ?, NULL, 0, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
		   failures = CASE WHEN lockouts.window_start < ? THEN 1 ELSE lockouts.failures + 1 END,
		   window_start = CASE WHEN lockouts.window_start < ? THEN ? ELSE lockouts.window_start END,
		   last_failure = ?,
		   updated_at = ?`,
		accountID, now, now, now,
		windowStart, windowStart, now,
		now, now)
	if err != nil {
		return domain.Lockout{}, err
	}

	return r.GetLockout(ctx, accountID)
}

func (r *lockoutsRepo) ClearLockout(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM lockouts WHERE account_id = ?`, accountID)
	return err
}
