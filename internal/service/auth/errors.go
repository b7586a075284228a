package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or the
	// signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrRevokedToken indicates the token verifies cryptographically but is
	// no longer in the user's live-token list
	ErrRevokedToken = errors.New("authentication token has been revoked")

	// ErrUnableToLogin is the single error returned for every login
	// failure. Unknown email and wrong password produce this identical
	// value so responses cannot leak which field was wrong.
	ErrUnableToLogin = errors.New("Unable to login")
)
