package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/store/drivers/sqlite"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authd-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// captureSender records dispatched codes instead of delivering them.
type captureSender struct {
	codes chan string
}

func (s *captureSender) SendCode(ctx context.Context, kind, destination, code string) error {
	s.codes <- code
	return nil
}

type testEnv struct {
	store    *sqlite.Store
	login    *LoginService
	mfa      *MFAService
	tokens   *TokenService
	devices  *DeviceService
	recovery *RecoveryService
	lockout  *LockoutGuard
	codes    chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "test-issuer",
		NumKeys: 1,
	})
	require.NoError(t, err)

	codes := make(chan string, 8)
	sender := &captureSender{codes: codes}

	tokens := &TokenService{
		Store:      st,
		KeyManager: keyManager,
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	lockout := &LockoutGuard{Store: st}
	recovery := &RecoveryService{Store: st}
	devices := &DeviceService{Store: st}
	mfa := &MFAService{
		Store:    st,
		Tokens:   tokens,
		Recovery: recovery,
		Challengers: map[string]Challenger{
			domain.MethodTOTP:  NewTOTPChallenger(),
			domain.MethodEmail: NewCodeChallenger(st, sender),
			domain.MethodSMS:   NewCodeChallenger(st, sender),
		},
	}
	login := &LoginService{
		Store:     st,
		Lockout:   lockout,
		Suspicion: &SuspicionDetector{Store: st},
		MFA:       mfa,
		Recovery:  recovery,
		Devices:   devices,
		Tokens:    tokens,
	}

	return &testEnv{
		store:    st,
		login:    login,
		mfa:      mfa,
		tokens:   tokens,
		devices:  devices,
		recovery: recovery,
		lockout:  lockout,
		codes:    codes,
	}
}

func (e *testEnv) register(t *testing.T, username, password string) *domain.Account {
	t.Helper()
	account, err := e.login.Register(context.Background(), username, password)
	require.NoError(t, err)
	return account
}

// waitCode blocks until the capture sender delivers a dispatched code.
func (e *testEnv) waitCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-e.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched code")
		return ""
	}
}

var knownOrigin = domain.Origin{
	IP:          "203.0.113.7",
	Fingerprint: "fp-device-1",
	UserAgent:   "test-agent",
}

// seedKnownOrigin records a successful login from the origin so later logins
// from it are not flagged as suspicious.
func (e *testEnv) seedKnownOrigin(t *testing.T, accountID string, origin domain.Origin) {
	t.Helper()
	e.login.recordAttempt(context.Background(), accountID, origin, domain.AttemptSuccess)
}
