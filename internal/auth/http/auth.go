package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ledgerline/authd/internal/auth/domain"
	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
)

// AuthHandler serves registration, the two login steps, logout and password
// changes.
type AuthHandler struct {
	LoginService *service.LoginService
}

// originFromRequest assembles the request origin used by the suspicion
// heuristic and audit records. The fingerprint is client-supplied and
// travels in the request body, not a header.
func originFromRequest(r *http.Request, fingerprint string) domain.Origin {
	return domain.Origin{
		IP:          httpx.IPKeyExtractor(r),
		Fingerprint: fingerprint,
		UserAgent:   r.UserAgent(),
	}
}

func wireTokens(pair *domain.TokenPair) *authsdk.TokenPair {
	if pair == nil {
		return nil
	}
	return &authsdk.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		Scope:        strings.Join(pair.Scope, " "),
	}
}

func writeAuthenticated(w http.ResponseWriter, result *service.LoginResult) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Status:      authsdk.StatusAuthenticated,
		Tokens:      wireTokens(result.Tokens),
		DeviceToken: result.DeviceToken,
	})
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RegisterRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	account, err := h.LoginService.Register(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		AccountID: account.ID,
		Username:  account.Username,
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LoginRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.LoginService.Login(ctx, service.LoginRequest{
		Identifier:  req.Identifier,
		Password:    req.Password,
		DeviceToken: req.DeviceToken,
		Origin:      originFromRequest(r, req.DeviceFingerprint),
	})
	if err != nil {
		var challenge *service.ChallengeRequiredError
		if errors.As(err, &challenge) {
			httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
				Status:       authsdk.StatusChallengeRequired,
				PartialToken: challenge.PartialToken,
				Purpose:      challenge.Purpose,
				Methods:      challenge.Methods,
			})
			return
		}
		writeServiceError(ctx, w, err)
		return
	}

	writeAuthenticated(w, result)
}

func (h *AuthHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.ChallengeRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.LoginService.CompleteChallenge(ctx, service.ChallengeRequest{
		PartialToken: req.PartialToken,
		Method:       req.Method,
		Code:         req.Code,
		TrustDevice:  req.TrustDevice,
		Origin:       originFromRequest(r, req.DeviceFingerprint),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeAuthenticated(w, result)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.LogoutRequest
	if err := httpx.ReadJSON(r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.LoginService.Logout(ctx, req.RefreshToken); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req authsdk.PasswordChangeRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.LoginService.ChangePassword(ctx, accountID, req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
