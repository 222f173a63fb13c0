// Package exitcode provides standardized process exit codes for discourse-gatekeeper
package exitcode

import "github.com/canonical/discourse-gatekeeper/internal/errors"

// Exit codes for the gatekeeper CLI, one per error type in internal/errors plus a
// general fallback and success.
const (
	Success                = 0
	GeneralError           = 1
	InputError             = 2
	ContentError           = 3
	ServerError            = 4
	RepositoryClientError  = 5
	ReconcilliationError   = 6
	MigrationError         = 7
	TaggingNotAllowedError = 8
	NavigationTableError   = 9
	PagePermissionError    = 10
)

// ForError maps an error returned from the core to the exit code matching
// its kind, falling back to GeneralError for anything else (including nil,
// which callers should not pass but which maps harmlessly to GeneralError).
func ForError(err error) int {
	switch err.(type) {
	case *errors.InputError:
		return InputError
	case *errors.ContentError:
		return ContentError
	case *errors.ServerError:
		return ServerError
	case *errors.RepositoryClientError, *errors.RepositoryTagNotFoundError, *errors.RepositoryFileNotFoundError:
		return RepositoryClientError
	case *errors.ReconcilliationError:
		return ReconcilliationError
	case *errors.MigrationError:
		return MigrationError
	case *errors.TaggingNotAllowedError:
		return TaggingNotAllowedError
	case *errors.NavigationTableParseError:
		return NavigationTableError
	case *errors.PagePermissionError:
		return PagePermissionError
	default:
		return GeneralError
	}
}

// String returns a human-readable description of the exit code.
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case InputError:
		return "Input error"
	case ContentError:
		return "Content merge conflict"
	case ServerError:
		return "Discourse server error"
	case RepositoryClientError:
		return "Repository client error"
	case ReconcilliationError:
		return "Reconciliation error"
	case MigrationError:
		return "Migration error"
	case TaggingNotAllowedError:
		return "Tagging not allowed"
	case NavigationTableError:
		return "Navigation table parse error"
	case PagePermissionError:
		return "Page permission error"
	default:
		return "General error"
	}
}
