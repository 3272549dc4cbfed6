package store

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and to stop callers accidentally nesting transactions.
type Store interface {
	Accounts() Accounts
	MFAMethods() MFAMethods
	RecoveryCodes() RecoveryCodes
	TrustedDevices() TrustedDevices
	LoginAttempts() LoginAttempts
	PartialSessions() PartialSessions
	ChallengeCodes() ChallengeCodes
	RefreshTokens() RefreshTokens
	Lockouts() Lockouts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh
	// rotation). The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByUsername is used during credential verification.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account (id is provided by app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error

	// EnableMFA marks MFA as enabled (sets mfa_enabled timestamp).
	EnableMFA(ctx context.Context, accountID string) error

	// DisableMFA clears the mfa_enabled timestamp.
	DisableMFA(ctx context.Context, accountID string) error

	// DisableAccount soft-closes the account; rows are never hard-deleted.
	DisableAccount(ctx context.Context, accountID string) error
}

type MFAMethods interface {
	// CreateMethod inserts an unconfirmed method row.
	CreateMethod(ctx context.Context, m domain.MFAMethod) error

	// GetMethod returns a method by id.
	GetMethod(ctx context.Context, id string) (domain.MFAMethod, error)

	// ListMethods returns all methods for an account, confirmed or not.
	ListMethods(ctx context.Context, accountID string) ([]domain.MFAMethod, error)

	// ListConfirmedMethods returns only confirmed methods.
	ListConfirmedMethods(ctx context.Context, accountID string) ([]domain.MFAMethod, error)

	// ConfirmMethod sets confirmed_at; primary marks it the account's
	// primary method.
	ConfirmMethod(ctx context.Context, id string, primary bool) error

	// DeleteMethod removes a method row.
	DeleteMethod(ctx context.Context, id string) error

	// DeleteAccountMethods removes every method for an account.
	DeleteAccountMethods(ctx context.Context, accountID string) error

	// DeleteUnconfirmedBefore removes stale unconfirmed setups (housekeeping).
	DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) error
}

type RecoveryCodes interface {
	// CreateRecoveryCode stores one code fingerprint.
	CreateRecoveryCode(ctx context.Context, c domain.RecoveryCode) error

	// GetRecoveryCodeByHash returns a code row (used or not) by fingerprint.
	GetRecoveryCodeByHash(ctx context.Context, accountID, codeHash string) (domain.RecoveryCode, error)

	// MarkRecoveryCodeUsed sets used_at; fails with ErrNotFound if the code
	// was already used (the update is guarded on used_at IS NULL).
	MarkRecoveryCodeUsed(ctx context.Context, id string) error

	// DeleteAccountRecoveryCodes removes all codes for an account.
	DeleteAccountRecoveryCodes(ctx context.Context, accountID string) error

	// CountUnused returns how many codes remain redeemable.
	CountUnused(ctx context.Context, accountID string) (int, error)
}

type TrustedDevices interface {
	// CreateTrustedDevice stores a new trust grant.
	CreateTrustedDevice(ctx context.Context, d domain.TrustedDevice) error

	// GetTrustedDeviceByTokenHash returns an unexpired grant by token fingerprint.
	GetTrustedDeviceByTokenHash(ctx context.Context, accountID, tokenHash string) (domain.TrustedDevice, error)

	// ListTrustedDevices returns all unexpired grants for an account.
	ListTrustedDevices(ctx context.Context, accountID string) ([]domain.TrustedDevice, error)

	// TouchTrustedDevice bumps last_used_at and extends expires_at.
	TouchTrustedDevice(ctx context.Context, id string, lastUsed, expires time.Time) error

	// DeleteTrustedDevice revokes one grant. Irreversible.
	DeleteTrustedDevice(ctx context.Context, accountID, id string) error

	// DeleteAccountTrustedDevices revokes everything for an account.
	DeleteAccountTrustedDevices(ctx context.Context, accountID string) error

	// DeleteExpiredTrustedDevices is housekeeping.
	DeleteExpiredTrustedDevices(ctx context.Context) error
}

type LoginAttempts interface {
	// CreateLoginAttempt appends one audit record.
	CreateLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// HasRecentSuccessFromIP reports whether the account logged in
	// successfully from this IP since the cutoff.
	HasRecentSuccessFromIP(ctx context.Context, accountID, ip string, since time.Time) (bool, error)

	// ListRecentAttempts returns attempts for an account, newest first.
	ListRecentAttempts(ctx context.Context, accountID string, limit int) ([]domain.LoginAttempt, error)

	// DeleteAttemptsBefore trims the audit log (housekeeping).
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) error
}

type PartialSessions interface {
	// CreatePartialSession inserts a session. Callers supersede any live
	// sessions for the account first (same tx).
	CreatePartialSession(ctx context.Context, s domain.PartialAuthSession) error

	// GetPartialSession retrieves a session by token (only if not expired).
	GetPartialSession(ctx context.Context, token string) (domain.PartialAuthSession, error)

	// IncrementPartialSessionAttempts bumps the failed attempt counter
	// atomically and returns the updated session.
	IncrementPartialSessionAttempts(ctx context.Context, token string) (domain.PartialAuthSession, error)

	// DeletePartialSession removes a session by token.
	DeletePartialSession(ctx context.Context, token string) error

	// DeleteAccountPartialSessions removes the account's sessions with the
	// given purposes, or all of them when no purpose is given (supersede on
	// new login).
	DeleteAccountPartialSessions(ctx context.Context, accountID string, purposes ...string) error

	// DeleteExpiredPartialSessions is housekeeping.
	DeleteExpiredPartialSessions(ctx context.Context) error
}

type ChallengeCodes interface {
	// CreateChallengeCode stores a dispatched code fingerprint.
	CreateChallengeCode(ctx context.Context, c domain.ChallengeCode) error

	// GetChallengeCode returns the live code for a session token (only if
	// not expired).
	GetChallengeCode(ctx context.Context, sessionToken string) (domain.ChallengeCode, error)

	// DeleteChallengeCode consumes a code by id.
	DeleteChallengeCode(ctx context.Context, id string) error

	// DeleteSessionChallengeCodes removes all codes bound to a session.
	DeleteSessionChallengeCodes(ctx context.Context, sessionToken string) error

	// DeleteExpiredChallengeCodes is housekeeping.
	DeleteExpiredChallengeCodes(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint,
	// live or not. Callers inspect rotation/revocation state themselves to
	// implement replay detection.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// MarkRefreshTokenRotated sets rotated_at on the superseded record.
	MarkRefreshTokenRotated(ctx context.Context, id string) error

	// RevokeRefreshToken flips revoked=1.
	RevokeRefreshToken(ctx context.Context, id string) error

	// RevokeFamily revokes every token sharing a family id (replay response).
	RevokeFamily(ctx context.Context, familyID string) error

	// RevokeAllAccountRefreshTokens bulk revocation (password change,
	// MFA disable, logout everywhere).
	RevokeAllAccountRefreshTokens(ctx context.Context, accountID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Lockouts interface {
	// GetLockout returns the counter row, or ErrNotFound when the account
	// has a clean slate.
	GetLockout(ctx context.Context, accountID string) (domain.Lockout, error)

	// UpsertLockout writes the full counter row.
	UpsertLockout(ctx context.Context, l domain.Lockout) error

	// IncrementFailures bumps the failure counter atomically and returns
	// the updated row. Resets the window when windowStart is newer than the
	// stored one.
	IncrementFailures(ctx context.Context, accountID string, windowStart, now time.Time) (domain.Lockout, error)

	// ClearLockout resets the row after a successful authentication.
	ClearLockout(ctx context.Context, accountID string) error
}
