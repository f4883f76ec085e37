package services

import (
	"errors"
	"fmt"

	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/internal/store"
)

var (
	// ErrForbidden is returned when the session user may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when an action needs a logged-in session.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrUsernameTaken is returned when another user already holds the username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidInput wraps validation failures of caller-supplied data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned by Register when the email already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrNotFound is returned by write paths whose target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageDisabled is returned for uploads when no object store is configured.
	ErrStorageDisabled = errors.New("object storage not configured")
)

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func wrapUploadErr(err error) error {
	if errors.Is(err, storage.ErrUnsupportedContentType) || errors.Is(err, storage.ErrTooLarge) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
