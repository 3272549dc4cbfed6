package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, username, password_hash, mfa_enabled, disabled_at, created_at, updated_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	var mfaEnabled, disabledAt sql.NullTime

	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &mfaEnabled, &disabledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.MFAEnabled = mapNullTimePtr(mfaEnabled)
	a.DisabledAt = mapNullTimePtr(disabledAt)
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, password_hash, mfa_enabled, disabled_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.PasswordHash,
		mapOptionalTime(a.MFAEnabled), mapOptionalTime(a.DisabledAt),
		a.CreatedAt, a.UpdatedAt)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), accountID)
}

func (r *accountsRepo) EnableMFA(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE accounts SET mfa_enabled = ?, updated_at = ? WHERE id = ?`,
		now, now, accountID)
}

func (r *accountsRepo) DisableMFA(ctx context.Context, accountID string) error {
	return r.exec(ctx,
		`UPDATE accounts SET mfa_enabled = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), accountID)
}

func (r *accountsRepo) DisableAccount(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE accounts SET disabled_at = ?, updated_at = ? WHERE id = ?`,
		now, now, accountID)
}

// exec runs an UPDATE that must touch exactly one account row.
func (r *accountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
