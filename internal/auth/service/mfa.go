package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/ledgerline/authd/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultSetupTokenTTL = 10 * time.Minute
	DefaultTOTPIssuer    = "authd"
)

// SetupResult is returned from StartSetup. Secret and OTPAuthURI are only
// populated for TOTP enrolment; Dispatched is set when a code went out to
// the destination of a code-based method.
type SetupResult struct {
	SetupToken string
	MethodID   string
	Secret     string
	OTPAuthURI string
	Dispatched bool
}

// MFAService owns second-factor enrolment and challenge verification.
// One Challenger per method kind does the actual code work.
type MFAService struct {
	Store       store.Store
	Tokens      *TokenService
	Recovery    *RecoveryService
	Challengers map[string]Challenger

	SetupTTL   time.Duration
	TOTPIssuer string
}

func (s *MFAService) setupTTL() time.Duration {
	if s.SetupTTL > 0 {
		return s.SetupTTL
	}
	return DefaultSetupTokenTTL
}

func (s *MFAService) totpIssuer() string {
	if s.TOTPIssuer != "" {
		return s.TOTPIssuer
	}
	return DefaultTOTPIssuer
}

func (s *MFAService) challengerFor(kind string) (Challenger, error) {
	c, ok := s.Challengers[kind]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return c, nil
}

// ConfirmedMethods lists the methods that can actually satisfy a challenge.
func (s *MFAService) ConfirmedMethods(ctx context.Context, accountID string) ([]domain.MFAMethod, error) {
	return s.Store.MFAMethods().ListConfirmedMethods(ctx, accountID)
}

// MethodKinds returns the distinct kinds among the given methods.
func MethodKinds(methods []domain.MFAMethod) []string {
	kinds := make([]string, 0, len(methods))
	for _, m := range methods {
		kinds = append(kinds, m.Kind)
	}
	return dedupe(kinds)
}

// PrimaryMethod picks the account's primary method, falling back to the
// first confirmed one.
func PrimaryMethod(methods []domain.MFAMethod) (domain.MFAMethod, bool) {
	for _, m := range methods {
		if m.Primary {
			return m, true
		}
	}
	if len(methods) > 0 {
		return methods[0], true
	}
	return domain.MFAMethod{}, false
}

// StartSetup stores an unconfirmed method and hands back a setup token the
// client must redeem with a working code. TOTP enrolment also returns the
// seed and otpauth URI; code-based enrolment dispatches a code to the
// destination straight away.
func (s *MFAService) StartSetup(ctx context.Context, accountID, kind, destination string) (*SetupResult, error) {
	challenger, err := s.challengerFor(kind)
	if err != nil {
		return nil, err
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	confirmed, err := s.ConfirmedMethods(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	for _, m := range confirmed {
		if m.Kind == kind {
			return nil, ErrMFAAlreadyEnabled
		}
	}

	method := domain.MFAMethod{
		ID:        idx.New().String(),
		AccountID: accountID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	result := &SetupResult{MethodID: method.ID}

	switch kind {
	case domain.MethodTOTP:
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.totpIssuer(),
			AccountName: account.Username,
		})
		if err != nil {
			return nil, fmt.Errorf("generate totp seed: %w", err)
		}
		secret := key.Secret()
		method.Secret = &secret
		result.Secret = secret
		result.OTPAuthURI = key.URL()

	case domain.MethodEmail, domain.MethodSMS:
		if destination == "" {
			return nil, ErrInvalidRequest
		}
		method.Destination = &destination

	default:
		return nil, ErrUnknownMethod
	}

	now := time.Now().UTC()
	session := domain.PartialAuthSession{
		Token:      idx.New().String(),
		AccountID:  accountID,
		Purpose:    domain.PurposeMFASetup,
		MethodHint: method.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.setupTTL()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// One setup in flight per account.
		if err := tx.PartialSessions().DeleteAccountPartialSessions(ctx, accountID, domain.PurposeMFASetup); err != nil {
			return err
		}
		if err := tx.MFAMethods().CreateMethod(ctx, method); err != nil {
			return err
		}
		return tx.PartialSessions().CreatePartialSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	result.SetupToken = session.Token

	if kind != domain.MethodTOTP {
		if err := challenger.Issue(ctx, &account, method, session); err != nil {
			return nil, err
		}
		result.Dispatched = true
	}

	slogx.FromContext(ctx).Info("mfa setup started",
		"account_id", accountID, "kind", kind, "method_id", method.ID)
	return result, nil
}

// ConfirmSetup proves the new method works before it counts. Confirming the
// account's first method enables MFA and returns a fresh batch of recovery
// codes.
func (s *MFAService) ConfirmSetup(ctx context.Context, accountID, setupToken, code string) ([]string, error) {
	log := slogx.FromContext(ctx)

	session, err := s.Store.PartialSessions().GetPartialSession(ctx, setupToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lookup setup session: %w", err)
	}
	if session.AccountID != accountID || session.Purpose != domain.PurposeMFASetup {
		return nil, ErrSessionExpired
	}

	method, err := s.Store.MFAMethods().GetMethod(ctx, session.MethodHint)
	if err != nil || method.AccountID != accountID {
		return nil, ErrSessionExpired
	}

	challenger, err := s.challengerFor(method.Kind)
	if err != nil {
		return nil, err
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := challenger.Verify(ctx, &account, method, session, code); err != nil {
		if !errors.Is(err, ErrInvalidOrUsedCode) {
			return nil, err
		}

		updated, ierr := s.Store.PartialSessions().IncrementPartialSessionAttempts(ctx, setupToken)
		if ierr != nil {
			return nil, ierr
		}
		if updated.Attempts >= MaxChallengeAttempts {
			_ = s.Store.PartialSessions().DeletePartialSession(ctx, setupToken)
			log.Warn("mfa setup attempt budget exhausted", "account_id", accountID)
			return nil, ErrTooManyAttempts
		}

		log.Warn("mfa setup verification failed",
			"account_id", accountID, "kind", method.Kind, "attempts", updated.Attempts)
		return nil, ErrSetupNotConfirmed
	}

	firstMethod := !account.HasMFA()

	var codes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MFAMethods().ConfirmMethod(ctx, method.ID, firstMethod); err != nil {
			return fmt.Errorf("confirm method: %w", err)
		}
		if firstMethod {
			if err := tx.Accounts().EnableMFA(ctx, accountID); err != nil {
				return fmt.Errorf("enable mfa: %w", err)
			}
			codes, err = s.Recovery.generate(ctx, tx, accountID)
			if err != nil {
				return err
			}
		}
		return tx.PartialSessions().DeletePartialSession(ctx, setupToken)
	})
	if err != nil {
		return nil, err
	}

	log.Info("mfa method confirmed",
		"account_id", accountID, "kind", method.Kind, "primary", firstMethod)
	return codes, nil
}

// RemoveMethod deletes one confirmed method. Removing the last confirmed
// method clears the account's MFA flag; removing the primary promotes the
// oldest remaining method.
func (s *MFAService) RemoveMethod(ctx context.Context, accountID, methodID string) error {
	method, err := s.Store.MFAMethods().GetMethod(ctx, methodID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownMethod
	}
	if err != nil {
		return err
	}
	if method.AccountID != accountID {
		return ErrUnknownMethod
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MFAMethods().DeleteMethod(ctx, methodID); err != nil {
			return err
		}

		remaining, err := tx.MFAMethods().ListConfirmedMethods(ctx, accountID)
		if err != nil {
			return err
		}

		if len(remaining) == 0 {
			if err := tx.Accounts().DisableMFA(ctx, accountID); err != nil {
				return err
			}
			return tx.RecoveryCodes().DeleteAccountRecoveryCodes(ctx, accountID)
		}

		if method.Primary {
			return tx.MFAMethods().ConfirmMethod(ctx, remaining[0].ID, true)
		}
		return nil
	})
}

// Disable turns off MFA entirely. It re-verifies the password, drops
// methods, recovery codes and trusted devices, and revokes every refresh
// token the account holds.
func (s *MFAService) Disable(ctx context.Context, accountID, password string) error {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !account.HasMFA() {
		return ErrMFANotEnabled
	}
	if cryptox.VerifyPassword(password, account.PasswordHash) != nil {
		return ErrInvalidCredentials
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().DisableMFA(ctx, accountID); err != nil {
			return err
		}
		if err := tx.MFAMethods().DeleteAccountMethods(ctx, accountID); err != nil {
			return err
		}
		if err := tx.RecoveryCodes().DeleteAccountRecoveryCodes(ctx, accountID); err != nil {
			return err
		}
		if err := tx.TrustedDevices().DeleteAccountTrustedDevices(ctx, accountID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, accountID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("mfa disabled", "account_id", accountID)
	return nil
}
