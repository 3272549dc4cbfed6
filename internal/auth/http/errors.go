package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
	"github.com/ledgerline/authd/pkg/slogx"
)

// writeServiceError translates service-layer errors into wire responses.
// A lockout keeps the login envelope shape so clients can surface unlock_at
// without parsing a second body format.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		httpx.WriteJSON(w, http.StatusLocked, authsdk.LoginResponse{
			Status:   authsdk.StatusLocked,
			UnlockAt: locked.UnlockAt.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrAccountDisabled):
		authsdk.ErrAccountDisabled.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		authsdk.ErrUsernameTaken.WriteError(w)
	case errors.Is(err, service.ErrSessionExpired):
		authsdk.ErrSessionExpired.WriteError(w)
	case errors.Is(err, service.ErrInvalidOrUsedCode):
		authsdk.ErrInvalidOrUsedCode.WriteError(w)
	case errors.Is(err, service.ErrTooManyAttempts):
		authsdk.ErrTooManyAttempts.WriteError(w)
	case errors.Is(err, service.ErrInvalidGrant):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrDeviceNotTrusted):
		authsdk.ErrDeviceNotTrusted.WriteError(w)
	case errors.Is(err, service.ErrSetupNotConfirmed):
		authsdk.ErrSetupNotConfirmed.WriteError(w)
	case errors.Is(err, service.ErrMFANotEnabled):
		authsdk.ErrMFANotEnabled.WriteError(w)
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		authsdk.ErrMFAAlreadyEnabled.WriteError(w)
	case errors.Is(err, service.ErrUnknownMethod):
		authsdk.ErrUnknownMethod.WriteError(w)
	default:
		slogx.FromContext(ctx).Error("request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
