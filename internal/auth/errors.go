package auth

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation error")

	// ErrAuthFailed is the single outward category for any login failure.
	// The underlying cause stays wrapped for logging.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUntrustedIssuer means the assertion's iss is not a Google issuer.
	ErrUntrustedIssuer = errors.New("untrusted assertion issuer")
	// ErrAudienceMismatch means the assertion was minted for another client.
	ErrAudienceMismatch = errors.New("assertion audience mismatch")
	// ErrMalformedAssertion means a required claim is absent or unparseable.
	ErrMalformedAssertion = errors.New("malformed identity assertion")
	// ErrAuthorizedPartyMismatch is returned only under the reject azp policy.
	ErrAuthorizedPartyMismatch = errors.New("assertion authorized party mismatch")

	// ErrInvalidCredential covers any access token that fails verification
	// for a reason other than expiry.
	ErrInvalidCredential = errors.New("invalid access token")
	// ErrExpiredCredential means the access token is past its exp.
	ErrExpiredCredential = errors.New("access token expired")

	// ErrMissingCredential means the request had no Authorization header.
	ErrMissingCredential = errors.New("missing authorization header")
	// ErrMalformedHeader means the Authorization header is not "Bearer <token>".
	ErrMalformedHeader = errors.New("malformed authorization header")

	// ErrUserNotFound means no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
)
