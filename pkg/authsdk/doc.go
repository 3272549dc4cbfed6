/*
Package authsdk provides the wire types and a client SDK for the authd
authentication service.

# SDKClient vs Session

The package is organised around two types:

  - SDKClient: unauthenticated flows (register, login, challenge, refresh)
  - Session: authenticated operations with automatic token refresh

Create an SDKClient to talk to public endpoints and start logins:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "alice", password)
	var challenge *authsdk.ChallengeRequiredError
	if errors.As(err, &challenge) {
		// A second step is required. Prompt the user for a code from one
		// of challenge.Methods, then:
		session, err = client.CompleteChallengeSession(ctx, authsdk.ChallengeRequest{
			PartialToken: challenge.PartialToken,
			Method:       "totp",
			Code:         code,
		})
	}

Use the Session for account management. Sessions refresh their access token
transparently before it expires:

	methods, err := session.ListMFAMethods(ctx)
	devices, err := session.ListTrustedDevices(ctx)

# Error Handling

Non-2xx responses are returned as typed *APIError values carrying the wire
error code. Two flows have richer errors: *ChallengeRequiredError carries
the partial token for the second login step, and *AccountLockedError carries
the unlock time during a lockout.

# Thread Safety

Sessions are safe for concurrent use. Multiple goroutines can share one
Session and make authenticated requests concurrently.
*/
package authsdk
