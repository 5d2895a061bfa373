package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/cscbridge/internal/gatt"
	"github.com/srg/cscbridge/internal/profile"
)

// Command-level errors
var (
	// ErrNoProfilePublished indicates that every enabled profile failed to register, so
	// there is nothing a central could subscribe to.
	ErrNoProfilePublished = errors.New("no profile could be published")
)

// FormatUserError turns an error chain into a single line for the terminal.
func FormatUserError(err error) string {
	var pubErr *gatt.PublishError
	var notFound *profile.NotFoundError

	switch {
	case errors.As(err, &pubErr):
		return fmt.Sprintf("profile %s could not be registered after %d attempt(s): %v", pubErr.Profile, pubErr.Attempts, pubErr.Err)
	case errors.As(err, &notFound):
		return fmt.Sprintf("unknown %s %q", notFound.Resource, notFound.Name)
	}

	// errors.Join output is multi-line
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
