package railsight

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the username or
	// password is missing or, in verify mode, does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoToken is returned by Verify when no token was supplied. Callers
	// map it to HTTP 401 (no credential presented).
	ErrNoToken = errors.New("access token required")
	// ErrTokenInvalid is returned by Verify for a malformed, badly signed, or
	// expired token. Callers map it to HTTP 403 (credential rejected).
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrUserNotFound is returned by a UserDirectory when no record exists
	// for the requested login name.
	ErrUserNotFound = errors.New("user not found")
	// ErrGatewayNotReady is returned when a Gateway method is called on a
	// zero or half-built instance.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)
