package auth

import "errors"

// Sentinel errors for session-token handling.
var (
	ErrMissingToken   = errors.New("auth: missing session token")
	ErrTokenMalformed = errors.New("auth: session token malformed")
	ErrTokenExpired   = errors.New("auth: session token expired")
	ErrSessionRevoked = errors.New("auth: session revoked")

	// ErrForbidden is returned when a principal lacks a required role.
	ErrForbidden = errors.New("auth: access denied")
)
