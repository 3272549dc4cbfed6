package sqlite

import (
	"context"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

type loginAttemptsRepo struct {
	db dbtx
}

func (r *loginAttemptsRepo) CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, account_id, ip, fingerprint, user_agent, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AccountID, a.IP, a.Fingerprint, a.UserAgent, a.Outcome, a.CreatedAt)
	return err
}

func (r *loginAttemptsRepo) HasRecentSuccessFromIP(ctx context.Context, accountID, ip string, since time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM login_attempts
		 WHERE account_id = ? AND ip = ? AND outcome = ? AND created_at >= ?`,
		accountID, ip, domain.AttemptSuccess, since).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *loginAttemptsRepo) ListRecentAttempts(ctx context.Context, accountID string, limit int) ([]domain.LoginAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, ip, fingerprint, user_agent, outcome, created_at
		 FROM login_attempts WHERE account_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoginAttempt
	for rows.Next() {
		var a domain.LoginAttempt
		if err := rows.Scan(&a.ID, &a.AccountID, &a.IP, &a.Fingerprint, &a.UserAgent, &a.Outcome, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *loginAttemptsRepo) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE created_at < ?`, cutoff)
	return err
}
