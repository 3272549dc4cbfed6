package http

import (
	"net/http"
	"time"

	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
)

// MFAHandler manages second-factor enrolment and removal for the
// authenticated account.
type MFAHandler struct {
	MFAService *service.MFAService
}

func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req authsdk.MFASetupRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.MFAService.StartSetup(ctx, accountID, req.Method, req.Destination)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFASetupResponse{
		SetupToken: result.SetupToken,
		MethodID:   result.MethodID,
		Secret:     result.Secret,
		OTPAuthURI: result.OTPAuthURI,
		Dispatched: result.Dispatched,
	})
}

func (h *MFAHandler) HandleSetupVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req authsdk.MFASetupVerifyRequest
	if err := httpx.ReadJSON(r, &req); err != nil || req.SetupToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.MFAService.ConfirmSetup(ctx, accountID, req.SetupToken, req.Code)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFASetupVerifyResponse{
		Enabled:       true,
		RecoveryCodes: codes,
	})
}

func (h *MFAHandler) HandleListMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	methods, err := h.MFAService.ConfirmedMethods(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]authsdk.MFAMethod, 0, len(methods))
	for _, m := range methods {
		wire := authsdk.MFAMethod{
			ID:        m.ID,
			Kind:      m.Kind,
			Primary:   m.Primary,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.Destination != nil {
			wire.Destination = *m.Destination
		}
		out = append(out, wire)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAMethodsResponse{Methods: out})
}

func (h *MFAHandler) HandleRemoveMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	methodID := r.PathValue("id")
	if methodID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFAService.RemoveMethod(ctx, accountID, methodID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req authsdk.MFADisableRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFAService.Disable(ctx, accountID, req.Password); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFADisableResponse{Disabled: true})
}
