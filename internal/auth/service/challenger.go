package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/idx"
	"github.com/ledgerline/authd/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultChallengeCodeTTL    = 5 * time.Minute
	DefaultChallengeCodeDigits = 6
)

// Challenger verifies one MFA method kind. Issue dispatches whatever the
// method needs out-of-band; Verify checks a submitted code.
type Challenger interface {
	Issue(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession) error
	Verify(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession, code string) error
}

// CodeSender delivers a one-time code to its destination. Implementations
// wrap a mail or SMS provider; delivery is best-effort.
type CodeSender interface {
	SendCode(ctx context.Context, kind, destination, code string) error
}

// LogSender writes codes to the log instead of delivering them. Development
// wiring only.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, kind, destination, code string) error {
	slogx.FromContext(ctx).Info("one-time code dispatch (log only)",
		"kind", kind, "destination", destination, "code", code)
	return nil
}

// totpChallenger validates codes against the method's stored base32 seed.
// Nothing to dispatch, and no single-use tracking: a TOTP code stays valid
// for its whole time step.
type totpChallenger struct{}

func NewTOTPChallenger() Challenger {
	return &totpChallenger{}
}

func (c *totpChallenger) Issue(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession) error {
	return nil
}

func (c *totpChallenger) Verify(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession, code string) error {
	if method.Secret == nil || *method.Secret == "" {
		return ErrUnknownMethod
	}
	if !totp.Validate(code, *method.Secret) {
		return ErrInvalidOrUsedCode
	}
	return nil
}

// codeChallenger backs the email and sms kinds. It generates a short numeric
// code, stores only its fingerprint keyed to the session token, and hands
// the plaintext to the sender. When SingleUse is set the stored hash is
// consumed on the first verification attempt, match or not.
type codeChallenger struct {
	Store     store.Store
	Sender    CodeSender
	TTL       time.Duration
	Digits    int
	SingleUse bool
}

func NewCodeChallenger(st store.Store, sender CodeSender) *codeChallenger {
	return &codeChallenger{
		Store:     st,
		Sender:    sender,
		TTL:       DefaultChallengeCodeTTL,
		Digits:    DefaultChallengeCodeDigits,
		SingleUse: true,
	}
}

func (c *codeChallenger) Issue(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession) error {
	if method.Destination == nil || *method.Destination == "" {
		return ErrUnknownMethod
	}

	code, err := cryptox.GenerateNumericCode(c.Digits)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = c.Store.ChallengeCodes().CreateChallengeCode(ctx, domain.ChallengeCode{
		ID:           idx.New().String(),
		SessionToken: session.Token,
		MethodID:     method.ID,
		CodeHash:     cryptox.FingerprintToken(code),
		ExpiresAt:    now.Add(c.TTL),
		CreatedAt:    now,
	})
	if err != nil {
		return err
	}

	// Fire and forget. A slow provider must not hold up the login response.
	destination := *method.Destination
	kind := method.Kind
	go func(ctx context.Context) {
		if err := c.Sender.SendCode(ctx, kind, destination, code); err != nil {
			slogx.FromContext(ctx).Error("one-time code dispatch failed",
				"kind", kind, "error", err)
		}
	}(context.WithoutCancel(ctx))

	return nil
}

func (c *codeChallenger) Verify(ctx context.Context, account *domain.Account, method domain.MFAMethod, session domain.PartialAuthSession, code string) error {
	stored, err := c.Store.ChallengeCodes().GetChallengeCode(ctx, session.Token)
	if err != nil {
		return ErrInvalidOrUsedCode
	}

	if c.SingleUse {
		if err := c.Store.ChallengeCodes().DeleteChallengeCode(ctx, stored.ID); err != nil {
			return err
		}
	}

	match := subtle.ConstantTimeCompare(
		[]byte(stored.CodeHash), []byte(cryptox.FingerprintToken(code))) == 1
	if !match {
		return ErrInvalidOrUsedCode
	}

	if !c.SingleUse {
		// Consume on success even when reuse of unverified codes is allowed.
		if err := c.Store.ChallengeCodes().DeleteChallengeCode(ctx, stored.ID); err != nil {
			return err
		}
	}

	return nil
}
