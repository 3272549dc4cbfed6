package authsdk

import (
	"context"
	"net/http"
)

// ListTrustedDevices lists the account's remembered devices.
func (s *Session) ListTrustedDevices(ctx context.Context) (*TrustedDevicesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/devices", nil)
	if err != nil {
		return nil, err
	}

	var out TrustedDevicesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeTrustedDevice drops the trust grant for one device. The next login
// from that device goes through the full challenge flow again.
func (s *Session) RevokeTrustedDevice(ctx context.Context, deviceID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/devices/"+deviceID, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
