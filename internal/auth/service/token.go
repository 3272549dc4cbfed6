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
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/ledgerline/authd/pkg/slogx"
)

// TokenService mints access/refresh pairs and rotates refresh tokens.
// Refresh tokens are opaque 256-bit secrets stored only as fingerprints.
// Every pair belongs to a family; presenting an already-rotated member of a
// family revokes the whole family.
type TokenService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Issue creates a fresh token pair in a new refresh family for the given
// authenticated session.
func (s *TokenService) Issue(ctx context.Context, account *domain.Account, sessionID string, scopes, amr []string) (*domain.TokenPair, error) {
	return s.issue(ctx, s.Store, account, sessionID, idx.New().String(), 1, scopes, amr)
}

func (s *TokenService) issue(ctx context.Context, st store.Store, account *domain.Account, sessionID, familyID string, generation int, scopes, amr []string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	scopes = dedupe(scopes)
	amr = dedupe(amr)

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	err = st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:         idx.New().String(),
		AccountID:  account.ID,
		TokenHash:  cryptox.FingerprintToken(refresh),
		SessionID:  sessionID,
		FamilyID:   familyID,
		Generation: generation,
		Scopes:     scopes,
		AMR:        amr,
		ExpiresAt:  now.Add(s.refreshTTL()),
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	access, err := s.signAccess(account, sessionID, generation, scopes, amr, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL().Seconds()),
		Scope:        scopes,
	}, nil
}

func (s *TokenService) signAccess(account *domain.Account, sessionID string, generation int, scopes, amr []string, now time.Time) (string, error) {
	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return "", errors.New("no signing key available")
	}

	claims := jwtx.NewAccessClaims(account.ID, sessionID, scopes, amr,
		s.accessTTL(), s.Issuer, s.Audience, account.Username, now)
	claims.Gen = generation

	access, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// Refresh rotates the presented refresh token. A replayed (already rotated)
// token is treated as theft evidence and kills its entire family.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	old, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(refreshToken))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if old.RotatedAt != nil {
		log.Warn("refresh token replay detected, revoking family",
			"account_id", old.AccountID, "family_id", old.FamilyID, "generation", old.Generation)
		if err := s.Store.RefreshTokens().RevokeFamily(ctx, old.FamilyID); err != nil {
			return nil, fmt.Errorf("revoke token family: %w", err)
		}
		return nil, ErrInvalidGrant
	}

	if old.Revoked || now.After(old.ExpiresAt) {
		return nil, ErrInvalidGrant
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, old.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidGrant
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().MarkRefreshTokenRotated(ctx, old.ID); err != nil {
			return fmt.Errorf("mark rotated: %w", err)
		}

		pair, err = s.issue(ctx, tx, &account, old.SessionID, old.FamilyID, old.Generation+1, old.Scopes, old.AMR)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke invalidates a single refresh token, e.g. on logout.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	t, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(refreshToken))
	if errors.Is(err, store.ErrNotFound) {
		return nil // already gone, logout is idempotent
	}
	if err != nil {
		return err
	}
	return s.Store.RefreshTokens().RevokeFamily(ctx, t.FamilyID)
}

// RevokeAll invalidates every refresh token the account holds. Used after
// password changes and MFA disablement.
func (s *TokenService) RevokeAll(ctx context.Context, accountID string) error {
	return s.Store.RefreshTokens().RevokeAllAccountRefreshTokens(ctx, accountID)
}
