package errors

import "errors"

// Authorization flow errors.
var (
	ErrAuthorizationDenied  = errors.New("authorization denied by user")
	ErrAuthorizationTimeout = errors.New("timed out waiting for authorization")
	ErrInvalidGrant         = errors.New("grant is invalid or has been revoked")
)

// Local state errors.
var (
	ErrNoFavorites = errors.New("no favorites saved")
)
