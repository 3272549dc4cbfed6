package http_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ledgerline/authd/internal/auth/domain"
	authhttp "github.com/ledgerline/authd/internal/auth/http"
	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/internal/auth/store/drivers/sqlite"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/cryptox"
	"github.com/ledgerline/authd/pkg/httpx"
	"github.com/ledgerline/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "authd-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	// Every request in these tests arrives from 127.0.0.1, so the per-IP
	// limits would trip almost immediately at their production values.
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed
	httpx.LenientLimit = relaxed
	httpx.PublicLimit = relaxed

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type codeSender struct {
	codes chan string
}

func (s *codeSender) SendCode(ctx context.Context, kind, destination, code string) error {
	s.codes <- code
	return nil
}

type testServer struct {
	server *httptest.Server
	client *authsdk.SDKClient
	store  *sqlite.Store
	codes  chan string
}

func newTestServer(t *testing.T) *testServer {
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
	sender := &codeSender{codes: codes}

	tokens := &service.TokenService{
		Store:      st,
		KeyManager: keyManager,
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	lockout := &service.LockoutGuard{Store: st}
	recovery := &service.RecoveryService{Store: st}
	devices := &service.DeviceService{Store: st}
	mfa := &service.MFAService{
		Store:    st,
		Tokens:   tokens,
		Recovery: recovery,
		Challengers: map[string]service.Challenger{
			domain.MethodTOTP:  service.NewTOTPChallenger(),
			domain.MethodEmail: service.NewCodeChallenger(st, sender),
			domain.MethodSMS:   service.NewCodeChallenger(st, sender),
		},
	}
	login := &service.LoginService{
		Store:         st,
		Lockout:       lockout,
		Suspicion:     &service.SuspicionDetector{Store: st},
		MFA:           mfa,
		Recovery:      recovery,
		Devices:       devices,
		Tokens:        tokens,
		DefaultScopes: []string{"account:read", "account:write"},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	router := authhttp.NewRouter(keyManager.KeySet, keyManager.Verifier, "test", st, logger)
	router.LoginService = login
	router.TokenService = tokens
	router.MFAService = mfa
	router.RecoveryService = recovery
	router.DeviceService = devices
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		server: server,
		client: authsdk.NewSDKClient(server.URL),
		store:  st,
		codes:  codes,
	}
}

func (ts *testServer) register(t *testing.T, username, password string) *authsdk.RegisterResponse {
	t.Helper()
	out, err := ts.client.Register(context.Background(), authsdk.RegisterRequest{
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	return out
}

// waitCode blocks until the capture sender delivers a dispatched code.
func (ts *testServer) waitCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-ts.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched code")
		return ""
	}
}
