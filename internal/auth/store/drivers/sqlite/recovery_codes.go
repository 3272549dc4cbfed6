package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
)

type recoveryCodesRepo struct {
	db dbtx
}

func (r *recoveryCodesRepo) CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recovery_codes (id, account_id, code_hash, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.CodeHash, mapOptionalTime(c.UsedAt), c.CreatedAt)
	return mapConstraint(err)
}

func (r *recoveryCodesRepo) GetRecoveryCodeByHash(ctx context.Context, accountID, codeHash string) (domain.RecoveryCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, code_hash, used_at, created_at
		 FROM recovery_codes WHERE account_id = ? AND code_hash = ?`,
		accountID, codeHash)

	var c domain.RecoveryCode
	var usedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.AccountID, &c.CodeHash, &usedAt, &c.CreatedAt); err != nil {
		return domain.RecoveryCode{}, mapNotFound(err)
	}
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

func (r *recoveryCodesRepo) MarkRecoveryCodeUsed(ctx context.Context, id string) error {
	// Guarded on used_at IS NULL so a code can only be consumed once even
	// under concurrent redemption.
	res, err := r.db.ExecContext(ctx,
		`UPDATE recovery_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *recoveryCodesRepo) DeleteAccountRecoveryCodes(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE account_id = ?`, accountID)
	return err
}

func (r *recoveryCodesRepo) CountUnused(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE account_id = ? AND used_at IS NULL`,
		accountID).Scan(&count)
	return count, err
}
