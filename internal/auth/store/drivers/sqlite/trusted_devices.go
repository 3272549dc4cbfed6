package sqlite

import (
	"context"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
)

type trustedDevicesRepo struct {
	db dbtx
}

const trustedDeviceColumns = `id, account_id, token_hash, fingerprint_hash, user_agent, last_used_at, expires_at, created_at`

func scanDevice(scan func(dest ...any) error) (domain.TrustedDevice, error) {
	var d domain.TrustedDevice
	err := scan(&d.ID, &d.AccountID, &d.TokenHash, &d.FingerprintHash,
		&d.UserAgent, &d.LastUsedAt, &d.ExpiresAt, &d.CreatedAt)
	return d, err
}

func (r *trustedDevicesRepo) CreateTrustedDevice(ctx context.Context, d domain.TrustedDevice) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trusted_devices (id, account_id, token_hash, fingerprint_hash, user_agent, last_used_at, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.AccountID, d.TokenHash, d.FingerprintHash,
		d.UserAgent, d.LastUsedAt, d.ExpiresAt, d.CreatedAt)
	return mapConstraint(err)
}

func (r *trustedDevicesRepo) GetTrustedDeviceByTokenHash(ctx context.Context, accountID, tokenHash string) (domain.TrustedDevice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trustedDeviceColumns+` FROM trusted_devices
		 WHERE account_id = ? AND token_hash = ? AND expires_at > ?`,
		accountID, tokenHash, time.Now().UTC())

	d, err := scanDevice(row.Scan)
	if err != nil {
		return domain.TrustedDevice{}, mapNotFound(err)
	}
	return d, nil
}

func (r *trustedDevicesRepo) ListTrustedDevices(ctx context.Context, accountID string) ([]domain.TrustedDevice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trustedDeviceColumns+` FROM trusted_devices
		 WHERE account_id = ? AND expires_at > ?
		 ORDER BY last_used_at DESC`,
		accountID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrustedDevice
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *trustedDevicesRepo) TouchTrustedDevice(ctx context.Context, id string, lastUsed, expires time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trusted_devices SET last_used_at = ?, expires_at = ? WHERE id = ?`,
		lastUsed, expires, id)
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

func (r *trustedDevicesRepo) DeleteTrustedDevice(ctx context.Context, accountID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE account_id = ? AND id = ?`, accountID, id)
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

func (r *trustedDevicesRepo) DeleteAccountTrustedDevices(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE account_id = ?`, accountID)
	return err
}

func (r *trustedDevicesRepo) DeleteExpiredTrustedDevices(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
