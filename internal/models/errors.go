package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when an authenticated actor is not allowed
	// to act on the resource (e.g. a livreur touching an order assigned to
	// somebody else).
	ErrForbidden = errors.New("not allowed to act on this resource")

	// ErrConflict is returned when a request loses a race, most commonly
	// two livreurs accepting the same order.
	ErrConflict = errors.New("resource was claimed by someone else")

	// ErrInvalidState is returned when an order lifecycle operation is
	// requested from a status that does not permit it.
	ErrInvalidState = errors.New("operation not valid in the current order status")

	// ErrValidation is returned for malformed or missing input that passes
	// binding but fails a business rule (e.g. delivery without proof photos).
	ErrValidation = errors.New("invalid request data")

	// ErrAlreadyProcessed is returned when an idempotent financial operation
	// is retried, e.g. crediting a payout twice for the same order.
	ErrAlreadyProcessed = errors.New("operation already processed")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the wallet balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrBelowMinimum is returned when a withdrawal is below the configured minimum payout.
	ErrBelowMinimum = errors.New("amount is below the minimum payout")

	// ErrSuspended is returned at the auth boundary for suspended accounts.
	ErrSuspended = errors.New("account is suspended")

	// ErrInvalidCredentials is returned on a failed admin login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidOTP is returned when an OTP code is wrong or expired.
	ErrInvalidOTP = errors.New("invalid or expired code")
)
