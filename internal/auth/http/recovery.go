package http

import (
	"net/http"

	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
)

// RecoveryHandler regenerates the backup code batch.
type RecoveryHandler struct {
	RecoveryService *service.RecoveryService
}

func (h *RecoveryHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req authsdk.RecoveryCodesRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.RecoveryService.Generate(ctx, accountID, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RecoveryCodesResponse{Codes: codes})
}
