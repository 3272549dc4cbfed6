package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, account_id, token_hash, session_id, family_id, generation, scopes, amr, expires_at, rotated_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.TokenHash, t.SessionID, t.FamilyID, t.Generation,
		joinFields(t.Scopes), joinFields(t.AMR),
		t.ExpiresAt, mapOptionalTime(t.RotatedAt), t.Revoked, t.CreatedAt)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, token_hash, session_id, family_id, generation, scopes, amr, expires_at, rotated_at, revoked, created_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash)

	var t domain.RefreshToken
	var scopes, amr string
	var rotatedAt sql.NullTime

	err := row.Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.SessionID, &t.FamilyID,
		&t.Generation, &scopes, &amr, &t.ExpiresAt, &rotatedAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	t.Scopes = splitFields(scopes)
	t.AMR = splitFields(amr)
	t.RotatedAt = mapNullTimePtr(rotatedAt)
	return t, nil
}

func (r *refreshTokensRepo) MarkRefreshTokenRotated(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET rotated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE id = ?`, id)
	return err
}

func (r *refreshTokensRepo) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE family_id = ?`, familyID)
	return err
}

func (r *refreshTokensRepo) RevokeAllAccountRefreshTokens(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE account_id = ?`, accountID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ? OR revoked = 1`,
		time.Now().UTC())
	return err
}
