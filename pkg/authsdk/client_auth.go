package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ChallengeRequiredError is returned by AuthenticateWithPassword when the
// server demands a second authentication step. Complete it with
// CompleteChallenge using the partial token and one of the listed methods.
type ChallengeRequiredError struct {
	PartialToken string
	Purpose      string
	Methods      []string
}

func (e *ChallengeRequiredError) Error() string {
	return fmt.Sprintf("challenge required (%s), methods: %s", e.Purpose, strings.Join(e.Methods, ", "))
}

// AccountLockedError is returned while the account is locked out.
type AccountLockedError struct {
	UnlockAt string
}

func (e *AccountLockedError) Error() string {
	return "account locked until " + e.UnlockAt
}

// Register creates a new account.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doJSONRequest(ctx, http.MethodPost, "/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login runs the first authentication step and returns the raw envelope.
// Callers inspect Status to distinguish direct success from a pending
// challenge or a lockout.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doJSONRequest(ctx, http.MethodPost, "/v1/auth/login", req)
	if err != nil {
		return nil, err
	}
	return decodeLoginResponse(resp)
}

// CompleteChallenge exchanges a partial token plus a verification code for
// tokens.
func (c *SDKClient) CompleteChallenge(ctx context.Context, req ChallengeRequest) (*LoginResponse, error) {
	resp, err := c.doJSONRequest(ctx, http.MethodPost, "/v1/auth/challenge", req)
	if err != nil {
		return nil, err
	}
	return decodeLoginResponse(resp)
}

// Refresh rotates a refresh token.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.doJSONRequest(ctx, http.MethodPost, "/v1/token/refresh",
		RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out TokenPair
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token family.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.doJSONRequest(ctx, http.MethodPost, "/v1/auth/logout",
		LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// AuthenticateWithPassword logs in and returns an authenticated Session.
// A pending second step surfaces as *ChallengeRequiredError; complete it
// with CompleteChallengeSession. A lockout surfaces as *AccountLockedError.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, identifier, password string) (*Session, error) {
	out, err := c.Login(ctx, LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return nil, err
	}
	return c.sessionFromEnvelope(out)
}

// CompleteChallengeSession completes a pending challenge and returns an
// authenticated Session.
func (c *SDKClient) CompleteChallengeSession(ctx context.Context, req ChallengeRequest) (*Session, error) {
	out, err := c.CompleteChallenge(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.sessionFromEnvelope(out)
}

func (c *SDKClient) sessionFromEnvelope(out *LoginResponse) (*Session, error) {
	switch out.Status {
	case StatusAuthenticated:
		if out.Tokens == nil {
			return nil, fmt.Errorf("authenticated response without tokens")
		}
		return c.NewSessionFromTokens(out.Tokens.AccessToken, out.Tokens.RefreshToken, out.Tokens.ExpiresIn), nil
	case StatusChallengeRequired:
		return nil, &ChallengeRequiredError{
			PartialToken: out.PartialToken,
			Purpose:      out.Purpose,
			Methods:      out.Methods,
		}
	case StatusLocked:
		return nil, &AccountLockedError{UnlockAt: out.UnlockAt}
	default:
		return nil, fmt.Errorf("unexpected login status %q", out.Status)
	}
}

// decodeLoginResponse parses the login envelope. A 423 lockout keeps the
// envelope shape, so it decodes the same way as a 200.
func decodeLoginResponse(resp *http.Response) (*LoginResponse, error) {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusLocked {
		return nil, parseErrorResponse(resp, bodyBytes)
	}

	var out LoginResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
