package domain

import (
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// Authentication errors. Credential failures collapse into a single generic
// error so responses cannot be used to enumerate usernames.
var (
	// ErrUserNotFound indicates a user with the specified username was not found.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the specified username already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrInvalidCredentials covers unknown users, wrong passwords and bad
	// MFA codes alike.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrUserInactive indicates the user exists but is disabled.
	ErrUserInactive = errors.Wrap(errors.ErrForbidden, "user is inactive")

	// ErrMFARequired indicates primary credentials were accepted and a
	// one-time code must now be presented.
	ErrMFARequired = errors.ErrMFARequired

	// ErrLoginRateLimited indicates the username exceeded the failed-attempt
	// budget for the current window.
	ErrLoginRateLimited = errors.Wrap(errors.ErrRateLimited, "too many failed login attempts")
)
