package authsdk

// Login status values returned by the login and challenge endpoints.
const (
	StatusAuthenticated     = "authenticated"
	StatusChallengeRequired = "challenge_required"
	StatusLocked            = "locked"
	StatusInvalid           = "invalid"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse confirms account creation.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// LoginRequest starts a login. DeviceFingerprint is an opaque client-derived
// identifier; DeviceToken is the value returned by a previous trust_device
// opt-in.
type LoginRequest struct {
	Identifier        string `json:"identifier"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
	DeviceToken       string `json:"device_token,omitempty"`
}

// TokenPair is the issued credential set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// LoginResponse is the envelope for both login and challenge completion.
// Exactly one of Tokens or PartialToken is set for the non-error statuses.
type LoginResponse struct {
	Status string `json:"status"`

	Tokens      *TokenPair `json:"tokens,omitempty"`
	DeviceToken string     `json:"device_token,omitempty"`

	PartialToken string   `json:"partial_token,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	Methods      []string `json:"methods,omitempty"`

	UnlockAt string `json:"unlock_at,omitempty"`
}

// ChallengeRequest completes the second step of a login.
type ChallengeRequest struct {
	PartialToken string `json:"partial_token"`
	Method       string `json:"method"`
	Code         string `json:"code"`
	TrustDevice  bool   `json:"trust_device,omitempty"`

	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest revokes the refresh token family.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PasswordChangeRequest swaps the account password.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// MFASetupRequest begins enrolment of a second factor.
type MFASetupRequest struct {
	Method      string `json:"method"`
	Destination string `json:"destination,omitempty"`
}

// MFASetupResponse carries the provisioning payload. Secret and OTPAuthURI
// are TOTP-only; Dispatched reports that a code went out to the destination.
type MFASetupResponse struct {
	SetupToken string `json:"setup_token"`
	MethodID   string `json:"method_id"`
	Secret     string `json:"secret,omitempty"`
	OTPAuthURI string `json:"otpauth_uri,omitempty"`
	Dispatched bool   `json:"dispatched,omitempty"`
}

// MFAMethod is one enrolled second factor. Destination is masked.
type MFAMethod struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Destination string `json:"destination,omitempty"`
	Primary     bool   `json:"primary"`
	CreatedAt   string `json:"created_at"`
}

// MFAMethodsResponse lists an account's confirmed methods.
type MFAMethodsResponse struct {
	Methods []MFAMethod `json:"methods"`
}

// MFASetupVerifyRequest confirms the new method with a working code.
type MFASetupVerifyRequest struct {
	SetupToken string `json:"setup_token"`
	Code       string `json:"code"`
}

// MFASetupVerifyResponse reports the outcome. RecoveryCodes is populated
// exactly once, when the first method enables MFA.
type MFASetupVerifyResponse struct {
	Enabled       bool     `json:"enabled"`
	RecoveryCodes []string `json:"recovery_codes,omitempty"`
}

// MFADisableRequest turns MFA off after re-verifying the password.
type MFADisableRequest struct {
	Password string `json:"password"`
}

// MFADisableResponse confirms the disable.
type MFADisableResponse struct {
	Disabled bool `json:"disabled"`
}

// TrustedDevice is one remembered device.
type TrustedDevice struct {
	ID         string `json:"id"`
	UserAgent  string `json:"user_agent,omitempty"`
	LastUsedAt string `json:"last_used_at"`
	ExpiresAt  string `json:"expires_at"`
	CreatedAt  string `json:"created_at"`
}

// TrustedDevicesResponse lists an account's remembered devices.
type TrustedDevicesResponse struct {
	Devices []TrustedDevice `json:"devices"`
}

// RecoveryCodesRequest regenerates the backup code batch.
type RecoveryCodesRequest struct {
	Password string `json:"password"`
}

// RecoveryCodesResponse returns the plaintext codes exactly once.
type RecoveryCodesResponse struct {
	Codes []string `json:"codes"`
}

// JWK is a single JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
}

// JWKSResponse is the public key set.
type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}

// HealthChecks reports per-dependency health.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Signer   string `json:"signer,omitempty"`
}

// HealthResponse is returned by the livez and readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
