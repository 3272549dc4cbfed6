package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/ledgerline/authd/pkg/slogx"
)

const (
	// MaxChallengeAttempts is the verification budget per partial session.
	MaxChallengeAttempts = 5

	DefaultPartialSessionTTL = 5 * time.Minute

	MinPasswordLength = 8
)

// MethodRecovery is accepted as a challenge method alongside the enrolled
// kinds; it redeems a backup code instead of a challenger verification.
const MethodRecovery = "recovery"

// LoginRequest carries one password login attempt.
type LoginRequest struct {
	Identifier  string
	Password    string
	DeviceToken string
	Origin      domain.Origin
}

// ChallengeRequest completes a pending partial session.
type ChallengeRequest struct {
	PartialToken string
	Method       string
	Code         string
	TrustDevice  bool
	Origin       domain.Origin
}

// LoginResult is the terminal outcome of a login or challenge completion.
type LoginResult struct {
	Tokens *domain.TokenPair

	// DeviceToken is set when the client asked to trust this device.
	DeviceToken string
}

// LoginService is the top-level state machine sequencing credential
// verification, lockout, suspicion, MFA and token issuance. Every
// authenticated outcome passes through exactly one of: direct success or
// one completed partial session.
type LoginService struct {
	Store     store.Store
	Lockout   *LockoutGuard
	Suspicion *SuspicionDetector
	MFA       *MFAService
	Recovery  *RecoveryService
	Devices   *DeviceService
	Tokens    *TokenService

	PartialTTL    time.Duration
	DefaultScopes []string
}

func (s *LoginService) partialTTL() time.Duration {
	if s.PartialTTL > 0 {
		return s.PartialTTL
	}
	return DefaultPartialSessionTTL
}

// Register creates a new account.
func (s *LoginService) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < MinPasswordLength {
		return nil, ErrInvalidRequest
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.Accounts().CreateAccount(ctx, account)
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	slogx.FromContext(ctx).Info("account registered", "account_id", account.ID, "username", username)
	return &account, nil
}

// Login runs the first authentication step. It returns a LoginResult on
// direct success, a ChallengeRequiredError when a second step is needed, or
// one of the credential/lockout errors.
func (s *LoginService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	if req.Identifier == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}

	account, err := s.Store.Accounts().GetAccountByUsername(ctx, req.Identifier)
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same argon2 work as a real comparison so unknown
		// usernames are not distinguishable by response time.
		_ = cryptox.VerifyPassword(req.Password, cryptox.DecoyHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	locked, unlockAt, err := s.Lockout.Status(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("lockout status: %w", err)
	}
	if locked {
		_ = cryptox.VerifyPassword(req.Password, cryptox.DecoyHash())
		s.recordAttempt(ctx, account.ID, req.Origin, domain.AttemptLocked)
		log.Warn("login rejected, account locked", "account_id", account.ID, "unlock_at", unlockAt)
		return nil, &AccountLockedError{UnlockAt: unlockAt}
	}

	if cryptox.VerifyPassword(req.Password, account.PasswordHash) != nil {
		s.recordAttempt(ctx, account.ID, req.Origin, domain.AttemptBadCredentials)

		nowLocked, until, ferr := s.Lockout.RecordFailure(ctx, account.ID)
		if ferr != nil {
			return nil, fmt.Errorf("record failure: %w", ferr)
		}
		if nowLocked {
			return nil, &AccountLockedError{UnlockAt: until}
		}
		return nil, ErrInvalidCredentials
	}

	if account.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	suspicious, err := s.Suspicion.IsSuspicious(ctx, account.ID, req.Origin)
	if err != nil {
		return nil, fmt.Errorf("suspicion check: %w", err)
	}
	if suspicious {
		challenge, cerr := s.beginSuspicionChallenge(ctx, &account, req.Origin)
		if cerr != nil {
			return nil, cerr
		}
		if challenge != nil {
			return nil, challenge
		}
		// No way to deliver a code to this account. Fall through rather
		// than locking the owner out of a factor-less account.
		log.Warn("suspicious origin but no challenge destination", "account_id", account.ID)
	}

	trusted, err := s.Devices.IsTrusted(ctx, account.ID, req.DeviceToken, req.Origin)
	if err != nil {
		return nil, fmt.Errorf("device check: %w", err)
	}

	if account.HasMFA() && !trusted {
		challenge, cerr := s.beginMFAChallenge(ctx, &account, req.Origin)
		if cerr != nil {
			return nil, cerr
		}
		return nil, challenge
	}

	amr := []string{jwtx.AMRPassword}
	if trusted {
		amr = append(amr, jwtx.AMRDevice)
	}

	return s.finishLogin(ctx, &account, req.Origin, amr, false)
}

// beginMFAChallenge opens a partial session for an MFA-enabled account and
// dispatches a code for the primary method when it is code-based.
func (s *LoginService) beginMFAChallenge(ctx context.Context, account *domain.Account, origin domain.Origin) (*ChallengeRequiredError, error) {
	methods, err := s.MFA.ConfirmedMethods(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	primary, ok := PrimaryMethod(methods)
	if !ok {
		// mfa_enabled with zero confirmed methods should not happen.
		return nil, fmt.Errorf("account %s has mfa enabled but no confirmed methods", account.ID)
	}

	session, err := s.createPartialSession(ctx, account.ID, domain.PurposeMFARequired, primary.Kind, origin)
	if err != nil {
		return nil, err
	}

	if primary.Kind != domain.MethodTOTP {
		if err := s.dispatchCode(ctx, account, primary, session); err != nil {
			return nil, err
		}
	}

	s.recordAttempt(ctx, account.ID, origin, domain.AttemptChallenged)
	return &ChallengeRequiredError{
		PartialToken: session.Token,
		Purpose:      domain.PurposeMFARequired,
		Methods:      append(MethodKinds(methods), MethodRecovery),
	}, nil
}

// beginSuspicionChallenge opens a suspicious-login session. The code goes to
// the primary method when one exists, otherwise to the username itself when
// it is an email address. Returns (nil, nil) when no destination exists.
func (s *LoginService) beginSuspicionChallenge(ctx context.Context, account *domain.Account, origin domain.Origin) (*ChallengeRequiredError, error) {
	methods, err := s.MFA.ConfirmedMethods(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}

	method, ok := PrimaryMethod(methods)
	available := MethodKinds(methods)
	if !ok {
		if !strings.Contains(account.Username, "@") {
			return nil, nil
		}
		username := account.Username
		method = domain.MFAMethod{
			AccountID:   account.ID,
			Kind:        domain.MethodEmail,
			Destination: &username,
		}
		available = []string{domain.MethodEmail}
	}

	session, err := s.createPartialSession(ctx, account.ID, domain.PurposeSuspiciousLogin, method.Kind, origin)
	if err != nil {
		return nil, err
	}

	if method.Kind != domain.MethodTOTP {
		if err := s.dispatchCode(ctx, account, method, session); err != nil {
			return nil, err
		}
	}

	if account.HasMFA() {
		available = append(available, MethodRecovery)
	}

	s.recordAttempt(ctx, account.ID, origin, domain.AttemptChallenged)
	return &ChallengeRequiredError{
		PartialToken: session.Token,
		Purpose:      domain.PurposeSuspiciousLogin,
		Methods:      available,
	}, nil
}

func (s *LoginService) createPartialSession(ctx context.Context, accountID, purpose, methodHint string, origin domain.Origin) (domain.PartialAuthSession, error) {
	now := time.Now().UTC()
	session := domain.PartialAuthSession{
		Token:       idx.New().String(),
		AccountID:   accountID,
		Purpose:     purpose,
		MethodHint:  methodHint,
		IP:          origin.IP,
		Fingerprint: origin.Fingerprint,
		UserAgent:   origin.UserAgent,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.partialTTL()),
	}

	// Supersede: one live challenge per account, the newest wins.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PartialSessions().DeleteAccountPartialSessions(ctx, accountID,
			domain.PurposeMFARequired, domain.PurposeSuspiciousLogin); err != nil {
			return err
		}
		return tx.PartialSessions().CreatePartialSession(ctx, session)
	})
	if err != nil {
		return domain.PartialAuthSession{}, fmt.Errorf("create partial session: %w", err)
	}
	return session, nil
}

func (s *LoginService) dispatchCode(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession) error {
	challenger, err := s.MFA.challengerFor(method.Kind)
	if err != nil {
		return err
	}
	if err := challenger.Issue(ctx, account, method, session); err != nil {
		return fmt.Errorf("dispatch challenge code: %w", err)
	}
	return nil
}

// CompleteChallenge verifies the second step and finishes the login. The
// partial session is destroyed on the first terminal outcome: success,
// budget exhaustion, or a lockout triggered by the failure.
func (s *LoginService) CompleteChallenge(ctx context.Context, req ChallengeRequest) (*LoginResult, error) {
	log := slogx.FromContext(ctx)

	session, err := s.Store.PartialSessions().GetPartialSession(ctx, req.PartialToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lookup partial session: %w", err)
	}
	if session.Purpose != domain.PurposeMFARequired && session.Purpose != domain.PurposeSuspiciousLogin {
		return nil, ErrSessionExpired
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	verr := s.verifyChallengeCode(ctx, &account, session, req.Method, req.Code)
	if verr != nil {
		if !errors.Is(verr, ErrInvalidOrUsedCode) {
			return nil, verr
		}

		// Failures count before the response goes out.
		s.recordAttempt(ctx, account.ID, req.Origin, domain.AttemptBadCode)

		nowLocked, until, ferr := s.Lockout.RecordFailure(ctx, account.ID)
		if ferr != nil {
			return nil, fmt.Errorf("record failure: %w", ferr)
		}
		if nowLocked {
			_ = s.Store.PartialSessions().DeletePartialSession(ctx, session.Token)
			return nil, &AccountLockedError{UnlockAt: until}
		}

		updated, ierr := s.Store.PartialSessions().IncrementPartialSessionAttempts(ctx, session.Token)
		if ierr != nil {
			return nil, ierr
		}
		if updated.Attempts >= MaxChallengeAttempts {
			_ = s.Store.PartialSessions().DeletePartialSession(ctx, session.Token)
			log.Warn("challenge attempt budget exhausted", "account_id", account.ID)
			return nil, ErrTooManyAttempts
		}

		return nil, ErrInvalidOrUsedCode
	}

	amr := []string{jwtx.AMRPassword, jwtx.AMRMFA}
	switch req.Method {
	case domain.MethodTOTP:
		amr = append(amr, jwtx.AMROTP)
	case MethodRecovery:
		amr = append(amr, jwtx.AMRRecovery)
	}

	if err := s.Store.PartialSessions().DeletePartialSession(ctx, session.Token); err != nil {
		return nil, fmt.Errorf("destroy partial session: %w", err)
	}
	_ = s.Store.ChallengeCodes().DeleteSessionChallengeCodes(ctx, session.Token)

	return s.finishLogin(ctx, &account, req.Origin, amr, req.TrustDevice)
}

// verifyChallengeCode dispatches to the recovery vault or the method's
// challenger.
func (s *LoginService) verifyChallengeCode(ctx context.Context, account *domain.Account, session domain.PartialAuthSession, methodKind, code string) error {
	if code == "" {
		return ErrInvalidOrUsedCode
	}

	if methodKind == MethodRecovery {
		if !account.HasMFA() {
			return ErrUnknownMethod
		}
		return s.Recovery.Redeem(ctx, account.ID, code)
	}

	challenger, err := s.MFA.challengerFor(methodKind)
	if err != nil {
		return err
	}

	methods, err := s.Store.MFAMethods().ListConfirmedMethods(ctx, account.ID)
	if err != nil {
		return err
	}
	for _, m := range methods {
		if m.Kind == methodKind {
			return challenger.Verify(ctx, account, m, session, code)
		}
	}

	// Suspicious-login fallback codes go to the account email without an
	// enrolled method behind them.
	if session.Purpose == domain.PurposeSuspiciousLogin && methodKind == session.MethodHint &&
		methodKind != domain.MethodTOTP {
		return challenger.Verify(ctx, account, domain.MFAMethod{
			AccountID: account.ID,
			Kind:      methodKind,
		}, session, code)
	}

	return ErrUnknownMethod
}

// finishLogin is the shared terminal step: token issuance, audit record,
// counter reset and optional device trust, all in one transaction.
func (s *LoginService) finishLogin(ctx context.Context, account *domain.Account, origin domain.Origin, amr []string, trustDevice bool) (*LoginResult, error) {
	sessionID := idx.New().String()
	result := &LoginResult{}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		result.Tokens, err = s.Tokens.issue(ctx, tx, account, sessionID, idx.New().String(), 1, s.DefaultScopes, amr)
		if err != nil {
			return err
		}

		if trustDevice && origin.Fingerprint != "" {
			result.DeviceToken, err = s.Devices.Trust(ctx, tx, account.ID, origin)
			if err != nil {
				return err
			}
		}

		err = tx.LoginAttempts().CreateLoginAttempt(ctx, domain.LoginAttempt{
			ID:          idx.New().String(),
			AccountID:   account.ID,
			IP:          origin.IP,
			Fingerprint: origin.Fingerprint,
			UserAgent:   origin.UserAgent,
			Outcome:     domain.AttemptSuccess,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		return tx.Lockouts().ClearLockout(ctx, account.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("finish login: %w", err)
	}

	slogx.FromContext(ctx).Info("login succeeded",
		"account_id", account.ID, "session_id", sessionID, "amr", amr)
	return result, nil
}

// Logout revokes the refresh token family behind the presented token.
func (s *LoginService) Logout(ctx context.Context, refreshToken string) error {
	return s.Tokens.Revoke(ctx, refreshToken)
}

// ChangePassword swaps the password hash after re-verifying the old one and
// revokes every refresh token the account holds.
func (s *LoginService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrInvalidRequest
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if cryptox.VerifyPassword(oldPassword, account.PasswordHash) != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().UpdatePasswordHash(ctx, accountID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, accountID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed, refresh tokens revoked", "account_id", accountID)
	return nil
}

// recordAttempt writes an audit row outside any transaction. Failures to
// record are logged, not surfaced; the attempt outcome already stands.
func (s *LoginService) recordAttempt(ctx context.Context, accountID string, origin domain.Origin, outcome string) {
	err := s.Store.LoginAttempts().CreateLoginAttempt(ctx, domain.LoginAttempt{
		ID:          idx.New().String(),
		AccountID:   accountID,
		IP:          origin.IP,
		Fingerprint: origin.Fingerprint,
		UserAgent:   origin.UserAgent,
		Outcome:     outcome,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to record login attempt",
			"account_id", accountID, "outcome", outcome, "error", err)
	}
}
