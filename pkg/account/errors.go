package account

import "github.com/rollforge/tavernkeep/pkg/errors"

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New(errors.ErrCodeAccountNotFound, "account not found")

	// ErrActivationInvalid covers both a wrong code and an expired one. The
	// two cases are deliberately indistinguishable to the caller.
	ErrActivationInvalid = errors.New(errors.ErrCodeActivationInvalid, "activation code is invalid or has expired")

	// ErrResetInvalid covers a wrong or expired password reset code, and a
	// reset attempt against an unknown email.
	ErrResetInvalid = errors.New(errors.ErrCodeResetInvalid, "reset code is invalid or has expired")
)
