// Package common contains sentinel errors and small helpers shared across
// the project.
package common

import "errors"

var (

	// repository-level errors
	ErrorNotFound       = errors.New("not found")
	ErrorAlreadyExists  = errors.New("already exists")
	ErrorAccountMissing = errors.New("account does not exist")

	// domain errors surfaced by the auth service
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionLimitReached = errors.New("session limit reached")
	ErrInvalidSession      = errors.New("invalid session")
	ErrSessionExpired      = errors.New("session expired")
	ErrAccountNotFound     = errors.New("account not found")

	ErrorInvalidToken = errors.New("invalid token")

	ErrorInternal = errors.New("internal error")
)

// domainErrors is the closed set of errors the HTTP layer is allowed to
// show to clients. Everything else is redacted to ErrorInternal.
var domainErrors = []error{
	ErrEmailInUse,
	ErrInvalidCredentials,
	ErrSessionLimitReached,
	ErrInvalidSession,
	ErrSessionExpired,
	ErrAccountNotFound,
}

// IsDomainError reports whether err belongs to the auth domain-exception set.
// Domain errors commit the surrounding transaction: mutations made before the
// exception (session triage in particular) must persist.
func IsDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}
