// Package apperr defines the error taxonomy shared by every card operation.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)
