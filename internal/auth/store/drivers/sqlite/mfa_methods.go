package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
)

type mfaMethodsRepo struct {
	db dbtx
}

const mfaMethodColumns = `id, account_id, kind, secret, destination, is_primary, confirmed_at, created_at`

func scanMethod(scan func(dest ...any) error) (domain.MFAMethod, error) {
	var m domain.MFAMethod
	var secret, destination sql.NullString
	var confirmedAt sql.NullTime

	err := scan(&m.ID, &m.AccountID, &m.Kind, &secret, &destination, &m.Primary, &confirmedAt, &m.CreatedAt)
	if err != nil {
		return domain.MFAMethod{}, err
	}

	m.Secret = mapNullStringPtr(secret)
	m.Destination = mapNullStringPtr(destination)
	m.ConfirmedAt = mapNullTimePtr(confirmedAt)
	return m, nil
}

func (r *mfaMethodsRepo) CreateMethod(ctx context.Context, m domain.MFAMethod) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mfa_methods (id, account_id, kind, secret, destination, is_primary, confirmed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AccountID, m.Kind,
		mapOptionalString(m.Secret), mapOptionalString(m.Destination),
		m.Primary, mapOptionalTime(m.ConfirmedAt), m.CreatedAt)
	return mapConstraint(err)
}

func (r *mfaMethodsRepo) GetMethod(ctx context.Context, id string) (domain.MFAMethod, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+mfaMethodColumns+` FROM mfa_methods WHERE id = ?`, id)

	m, err := scanMethod(row.Scan)
	if err != nil {
		return domain.MFAMethod{}, mapNotFound(err)
	}
	return m, nil
}

func (r *mfaMethodsRepo) ListMethods(ctx context.Context, accountID string) ([]domain.MFAMethod, error) {
	return r.list(ctx,
		`SELECT `+mfaMethodColumns+` FROM mfa_methods WHERE account_id = ? ORDER BY created_at`, accountID)
}

func (r *mfaMethodsRepo) ListConfirmedMethods(ctx context.Context, accountID string) ([]domain.MFAMethod, error) {
	return r.list(ctx,
		`SELECT `+mfaMethodColumns+` FROM mfa_methods
		 WHERE account_id = ? AND confirmed_at IS NOT NULL
		 ORDER BY is_primary DESC, created_at`, accountID)
}

func (r *mfaMethodsRepo) list(ctx context.Context, query string, args ...any) ([]domain.MFAMethod, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MFAMethod
	for rows.Next() {
		m, err := scanMethod(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *mfaMethodsRepo) ConfirmMethod(ctx context.Context, id string, primary bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mfa_methods SET confirmed_at = ?, is_primary = ? WHERE id = ? AND confirmed_at IS NULL`,
		time.Now().UTC(), primary, id)
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

func (r *mfaMethodsRepo) DeleteMethod(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_methods WHERE id = ?`, id)
	return err
}

func (r *mfaMethodsRepo) DeleteAccountMethods(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_methods WHERE account_id = ?`, accountID)
	return err
}

func (r *mfaMethodsRepo) DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_methods WHERE confirmed_at IS NULL AND created_at < ?`, cutoff)
	return err
}
