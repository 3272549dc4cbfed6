package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

type partialSessionsRepo struct {
	db dbtx
}

const partialSessionColumns = `token, account_id, purpose, method_hint, ip, fingerprint, user_agent, attempts, created_at, expires_at`

func scanPartialSession(scan func(dest ...any) error) (domain.PartialAuthSession, error) {
	var s domain.PartialAuthSession
	err := scan(&s.Token, &s.AccountID, &s.Purpose, &s.MethodHint,
		&s.IP, &s.Fingerprint, &s.UserAgent, &s.Attempts, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

func (r *partialSessionsRepo) CreatePartialSession(ctx context.Context, s domain.PartialAuthSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partial_sessions (token, account_id, purpose, method_hint, ip, fingerprint, user_agent, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Token, s.AccountID, s.Purpose, s.MethodHint,
		s.IP, s.Fingerprint, s.UserAgent, s.Attempts, s.CreatedAt, s.ExpiresAt)
	return mapConstraint(err)
}

func (r *partialSessionsRepo) GetPartialSession(ctx context.Context, token string) (domain.PartialAuthSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+partialSessionColumns+` FROM partial_sessions
		 WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC())

	s, err := scanPartialSession(row.Scan)
	if err != nil {
		return domain.PartialAuthSession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *partialSessionsRepo) IncrementPartialSessionAttempts(ctx context.Context, token string) (domain.PartialAuthSession, error) {
	// Atomic bump so concurrent guesses cannot share an attempt slot.
	_, err := r.db.ExecContext(ctx,
		`UPDATE partial_sessions SET attempts = attempts + 1 WHERE token = ?`, token)
	if err != nil {
		return domain.PartialAuthSession{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+partialSessionColumns+` FROM partial_sessions WHERE token = ?`, token)

	s, err := scanPartialSession(row.Scan)
	if err != nil {
		return domain.PartialAuthSession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *partialSessionsRepo) DeletePartialSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM partial_sessions WHERE token = ?`, token)
	return err
}

func (r *partialSessionsRepo) DeleteAccountPartialSessions(ctx context.Context, accountID string, purposes ...string) error {
	if len(purposes) == 0 {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM partial_sessions WHERE account_id = ?`, accountID)
		return err
	}

	query := `DELETE FROM partial_sessions WHERE account_id = ? AND purpose IN (?` +
		strings.Repeat(", ?", len(purposes)-1) + `)`
	args := make([]any, 0, len(purposes)+1)
	args = append(args, accountID)
	for _, p := range purposes {
		args = append(args, p)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *partialSessionsRepo) DeleteExpiredPartialSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM partial_sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
