// Package errors defines the error taxonomy exposed by the authentication
// core. Handlers map these sentinels onto HTTP statuses; callers never see
// internal reasons beyond the category itself.
package errors

import "errors"

var (
	// ErrValidation marks malformed or incomplete input (4xx, user-correctable).
	ErrValidation = errors.New("invalid request")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// account existence is never revealed to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountLocked is returned while a lockout window is open. The unlock
	// time is deliberately not included.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrInvalidToken covers malformed, expired, tampered, kind-mismatched and
	// superseded tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrEmailTaken is returned on registration with an email already in use.
	ErrEmailTaken = errors.New("email already in use")

	// ErrForbidden marks an authenticated but unauthorized request.
	ErrForbidden = errors.New("forbidden")

	// ErrInternal marks store or signing failures, fatal to the current
	// request only.
	ErrInternal = errors.New("internal error")
)
