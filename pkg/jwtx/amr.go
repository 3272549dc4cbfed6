package jwtx

// Authentication Methods Reference values carried in the "amr" claim.
const (
	// AMRPassword indicates password-based authentication.
	AMRPassword = "pwd"

	// AMROTP indicates a one-time password was verified (TOTP or a
	// delivered email/SMS code).
	AMROTP = "otp"

	// AMRMFA indicates multiple factors were used for this session.
	AMRMFA = "mfa"

	// AMRRecovery indicates a single-use recovery code satisfied the
	// second factor.
	AMRRecovery = "rcv"

	// AMRDevice indicates a trusted device token satisfied the second
	// factor without an interactive challenge.
	AMRDevice = "dev"
)
