package authsdk

import (
	"context"
	"net/http"
)

// StartMFASetup begins enrolment of a new second factor.
func (s *Session) StartMFASetup(ctx context.Context, req MFASetupRequest) (*MFASetupResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/setup", req)
	if err != nil {
		return nil, err
	}

	var out MFASetupResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFASetup confirms the pending method with a working code. The
// response carries recovery codes when this method enabled MFA.
func (s *Session) VerifyMFASetup(ctx context.Context, setupToken, code string) (*MFASetupVerifyResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/setup/verify",
		MFASetupVerifyRequest{SetupToken: setupToken, Code: code})
	if err != nil {
		return nil, err
	}

	var out MFASetupVerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMFAMethods lists the account's confirmed methods.
func (s *Session) ListMFAMethods(ctx context.Context) (*MFAMethodsResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/mfa/methods", nil)
	if err != nil {
		return nil, err
	}

	var out MFAMethodsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMFAMethod removes a single enrolled method.
func (s *Session) RemoveMFAMethod(ctx context.Context, methodID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/mfa/methods/"+methodID, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// DisableMFA turns MFA off after re-verifying the password.
func (s *Session) DisableMFA(ctx context.Context, password string) (*MFADisableResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/disable",
		MFADisableRequest{Password: password})
	if err != nil {
		return nil, err
	}

	var out MFADisableResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateRecoveryCodes replaces the backup code batch.
func (s *Session) RegenerateRecoveryCodes(ctx context.Context, password string) (*RecoveryCodesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/recovery-codes",
		RecoveryCodesRequest{Password: password})
	if err != nil {
		return nil, err
	}

	var out RecoveryCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
