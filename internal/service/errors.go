// Package service provides business logic for the support inbox.
package service

import (
	"errors"
)

// ErrValidation wraps caller-input failures (missing or empty required fields).
var ErrValidation = errors.New("validation failed")

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike, so a caller cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")
