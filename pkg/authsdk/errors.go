package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes shared between the server and SDK clients.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeAccountLocked      = "account_locked"
	ErrorCodeAccountDisabled    = "account_disabled"
	ErrorCodeUsernameTaken      = "username_taken"
	ErrorCodeSessionExpired     = "session_expired"
	ErrorCodeInvalidOrUsedCode  = "invalid_or_used_code"
	ErrorCodeTooManyAttempts    = "too_many_attempts"
	ErrorCodeInvalidGrant       = "invalid_grant"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeDeviceNotTrusted   = "device_not_trusted"
	ErrorCodeSetupNotConfirmed  = "setup_not_confirmed"
	ErrorCodeMFANotEnabled      = "mfa_not_enabled"
	ErrorCodeMFAAlreadyEnabled  = "mfa_already_enabled"
	ErrorCodeUnknownMethod      = "unknown_method"
	ErrorCodeServerError        = "server_error"
)

// APIError is the wire error shape. It serves both sides: handlers write it,
// the SDK client parses non-2xx responses back into it.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the error as a JSON HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "the identifier or password is incorrect",
	}

	ErrAccountDisabled = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountDisabled,
		Description: "the account has been disabled",
	}

	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "an account with this username already exists",
	}

	ErrSessionExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeSessionExpired,
		Description: "the partial session is missing or expired, start the login again",
	}

	ErrInvalidOrUsedCode = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidOrUsedCode,
		Description: "the code is wrong, expired or already used",
	}

	ErrTooManyAttempts = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeTooManyAttempts,
		Description: "the verification attempt budget is exhausted, start the login again",
	}

	ErrInvalidGrant = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "the refresh token is invalid, expired or revoked",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing or invalid",
	}

	ErrDeviceNotTrusted = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeDeviceNotTrusted,
		Description: "no such trusted device",
	}

	ErrSetupNotConfirmed = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeSetupNotConfirmed,
		Description: "the setup code did not verify",
	}

	ErrMFANotEnabled = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMFANotEnabled,
		Description: "multi-factor authentication is not enabled",
	}

	ErrMFAAlreadyEnabled = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeMFAAlreadyEnabled,
		Description: "this method kind is already enrolled",
	}

	ErrUnknownMethod = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnknownMethod,
		Description: "unknown authentication method",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an internal error occurred",
	}
)
