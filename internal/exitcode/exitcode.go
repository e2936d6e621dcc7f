// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"livetask/internal/backend/firebase"
	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

const (
	// Success indicates successful completion, including a declined confirmation.
	Success = 0

	// UserError indicates a user error (bad args, unknown task, empty text).
	UserError = 1

	// AuthError indicates missing or rejected credentials, or bad config.
	AuthError = 2

	// BackendError indicates a database, network or timeout error.
	BackendError = 3
)

// ForError returns the exit code for an error returned by a command.
func ForError(err error) int {
	switch {
	case err == nil, errors.Is(err, view.ErrCancelled):
		return Success
	case errors.Is(err, store.ErrEmptyText),
		errors.Is(err, view.ErrNoTask),
		errors.Is(err, view.ErrModalClosed),
		errors.Is(err, service.ErrInvalidPriority):
		return UserError
	case errors.Is(err, firebase.ErrNotLoggedIn),
		errors.Is(err, firebase.ErrUnauthorized),
		errors.Is(err, firebase.ErrPermissionDenied):
		return AuthError
	default:
		return BackendError
	}
}
