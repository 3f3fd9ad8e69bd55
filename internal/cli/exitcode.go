package cli

import (
	"errors"

	"github.com/joacominatel/vizql/internal/app"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitPanic       = 3
	ExitConfigError = 10
	ExitConnError   = 11
	ExitExecError   = 13
)

// ExitCodeForError maps an error returned by Execute onto a process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr  *app.ErrConfig
		connErr *app.ErrConnection
		execErr *app.ErrExecution
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &connErr):
		return ExitConnError
	case errors.As(err, &execErr):
		return ExitExecError
	default:
		return ExitError
	}
}
