package auth

import "github.com/rollforge/tavernkeep/pkg/errors"

var (
	// ErrAccountNotFound reports that no account matches the identifier.
	ErrAccountNotFound = errors.New(errors.ErrCodeAccountNotFound, "account not found")

	// ErrAccountNotActivated reports a login against an account that has not
	// redeemed its activation code.
	ErrAccountNotActivated = errors.New(errors.ErrCodeAccountNotActivated, "account not activated")

	// ErrInvalidCredentials reports a password mismatch.
	ErrInvalidCredentials = errors.New(errors.ErrCodeInvalidCredentials, "invalid credentials")
)
