package http

import (
	"net/http"
	"time"

	"github.com/ledgerline/authd/internal/auth/service"
	"github.com/ledgerline/authd/pkg/authsdk"
	"github.com/ledgerline/authd/pkg/httpx"
)

// DevicesHandler lists and revokes the account's trusted devices.
type DevicesHandler struct {
	DeviceService *service.DeviceService
}

func (h *DevicesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	devices, err := h.DeviceService.List(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]authsdk.TrustedDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, authsdk.TrustedDevice{
			ID:         d.ID,
			UserAgent:  d.UserAgent,
			LastUsedAt: d.LastUsedAt.UTC().Format(time.RFC3339),
			ExpiresAt:  d.ExpiresAt.UTC().Format(time.RFC3339),
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TrustedDevicesResponse{Devices: out})
}

func (h *DevicesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	deviceID := r.PathValue("id")
	if deviceID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.DeviceService.Revoke(ctx, accountID, deviceID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
