// Package common defines sentinel errors and small helpers shared by the
// notekeeper core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrStorage marks a failed (and rolled back) storage operation. The
	// caller must treat the operation as not applied.
	ErrStorage = errors.New("storage error")

	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is returned before any storage access when input is rejected.
	ErrValidation = errors.New("validation error")

	// ErrDecryption is returned for tampered or foreign-key ciphertext.
	ErrDecryption = errors.New("decryption error")

	// ErrScheduling covers bad time formats and internal timer failures.
	ErrScheduling = errors.New("scheduling error")

	// Second factor errors.
	ErrAuthFailure             = errors.New("authentication failed")
	ErrSecondFactorNotEnrolled = errors.New("second factor not enrolled")
)
