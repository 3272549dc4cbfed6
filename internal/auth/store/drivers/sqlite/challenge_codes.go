package sqlite

import (
	"context"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

type challengeCodesRepo struct {
	db dbtx
}

func (r *challengeCodesRepo) CreateChallengeCode(ctx context.Context, c domain.ChallengeCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO challenge_codes (id, session_token, method_id, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionToken, c.MethodID, c.CodeHash, c.ExpiresAt, c.CreatedAt)
	return err
}

func (r *challengeCodesRepo) GetChallengeCode(ctx context.Context, sessionToken string) (domain.ChallengeCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_token, method_id, code_hash, expires_at, created_at
		 FROM challenge_codes
		 WHERE session_token = ? AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		sessionToken, time.Now().UTC())

	var c domain.ChallengeCode
	if err := row.Scan(&c.ID, &c.SessionToken, &c.MethodID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return domain.ChallengeCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *challengeCodesRepo) DeleteChallengeCode(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenge_codes WHERE id = ?`, id)
	return err
}

func (r *challengeCodesRepo) DeleteSessionChallengeCodes(ctx context.Context, sessionToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenge_codes WHERE session_token = ?`, sessionToken)
	return err
}

func (r *challengeCodesRepo) DeleteExpiredChallengeCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM challenge_codes WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
