package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrETagRequired        = errors.New("etag is required")
	ErrWriteConflict       = errors.New("write conflict")
	ErrInvalidLines        = errors.New("one or more line ids are not valid")
	ErrLineDataUnavailable = errors.New("line data is unavailable")
	ErrLoginAlreadyExists  = errors.New("external login already linked")
	ErrLoginNotFound       = errors.New("external login not found")
)
