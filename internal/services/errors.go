package services

import (
	"errors"
	"fmt"
	"strings"

	"configurator/internal/catalog"
	"configurator/internal/repositories"
)

var (
	ErrRemoteUnavailable       = repositories.ErrRemoteUnavailable
	ErrRemoteRejected          = repositories.ErrRemoteRejected
	ErrLocalStorageUnavailable = repositories.ErrLocalStorageUnavailable
	ErrNotFound                = repositories.ErrNotFound
	ErrInvalidOption           = catalog.ErrInvalidOption

	// ErrValidationIncomplete blocks wizard progression while a required step has no selection.
	ErrValidationIncomplete = errors.New("required selection missing")
	ErrDraftNotFound        = errors.New("no pending order draft")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email already registered")
)

// IncompleteError lists the wizard fields that still need a selection.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidationIncomplete, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrValidationIncomplete
}
