package filevault

import "errors"

var (
	// ErrAuthentication is returned when the caller's owner identity is missing or malformed
	ErrAuthentication = errors.New("authentication required")
	// ErrNotFound is returned when a record does not exist or belongs to another owner
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a file id is already taken for the owner
	ErrConflict = errors.New("conflict")
	// ErrStorage is returned when either backing store fails
	ErrStorage = errors.New("storage error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a presigned request fails verification
	ErrUnauthorized = errors.New("unauthorized")
)
