package services

import "errors"

// ErrValidation wraps every input validation failure so the HTTP edge can
// map the whole family to a 422 without knowing individual causes.
var ErrValidation = errors.New("validation failed")

// ErrConflict marks operations rejected because of existing state, such as
// subscribing an email that is already active.
var ErrConflict = errors.New("conflict")

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
