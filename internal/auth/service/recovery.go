package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/ledgerline/authd/pkg/slogx"
)

const DefaultRecoveryCodeCount = 10

// RecoveryService manages single-use backup codes. Codes are shown to the
// user exactly once at generation; only fingerprints are stored.
type RecoveryService struct {
	Store store.Store
	Count int
}

func (s *RecoveryService) count() int {
	if s.Count > 0 {
		return s.Count
	}
	return DefaultRecoveryCodeCount
}

// Generate replaces the account's recovery codes with a fresh batch and
// returns the plaintext codes. Requires the current password and an enabled
// second factor.
func (s *RecoveryService) Generate(ctx context.Context, accountID, password string) ([]string, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.HasMFA() {
		return nil, ErrMFANotEnabled
	}
	if cryptox.VerifyPassword(password, account.PasswordHash) != nil {
		return nil, ErrInvalidCredentials
	}

	var codes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		codes, err = s.generate(ctx, tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("recovery codes regenerated", "account_id", accountID)
	return codes, nil
}

// generate replaces the batch inside the caller's transaction.
func (s *RecoveryService) generate(ctx context.Context, st store.Store, accountID string) ([]string, error) {
	if err := st.RecoveryCodes().DeleteAccountRecoveryCodes(ctx, accountID); err != nil {
		return nil, fmt.Errorf("clear recovery codes: %w", err)
	}

	codes := make([]string, 0, s.count())
	for i := 0; i < s.count(); i++ {
		code, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}

		err = st.RecoveryCodes().CreateRecoveryCode(ctx, domain.RecoveryCode{
			ID:        idx.New().String(),
			AccountID: accountID,
			CodeHash:  cryptox.FingerprintToken(code),
		})
		if err != nil {
			return nil, fmt.Errorf("store recovery code: %w", err)
		}

		codes = append(codes, code)
	}

	return codes, nil
}

// Redeem burns one recovery code. Used and unknown codes are
// indistinguishable to the caller.
func (s *RecoveryService) Redeem(ctx context.Context, accountID, code string) error {
	rc, err := s.Store.RecoveryCodes().GetRecoveryCodeByHash(ctx, accountID, cryptox.FingerprintToken(code))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOrUsedCode
	}
	if err != nil {
		return err
	}

	// The guard on the update makes double redemption lose the race.
	err = s.Store.RecoveryCodes().MarkRecoveryCodeUsed(ctx, rc.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOrUsedCode
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("recovery code redeemed", "account_id", accountID)
	return nil
}

// Remaining reports how many unused codes the account still holds.
func (s *RecoveryService) Remaining(ctx context.Context, accountID string) (int, error) {
	return s.Store.RecoveryCodes().CountUnused(ctx, accountID)
}
