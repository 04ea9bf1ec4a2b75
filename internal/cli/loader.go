package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/halfday/reckon/internal/analytics"
	"github.com/halfday/reckon/internal/derive"
	"github.com/halfday/reckon/internal/eventlog"
	"github.com/halfday/reckon/internal/storage"
)

// openLog opens the configured store and the event log over it. The
// returned closer releases the store; callers defer it.
func openLog(ctx context.Context, opts *RootOptions) (*eventlog.Log, func() error, error) {
	var store storage.Store
	closer := func() error { return nil }

	if opts.DBPath == ":memory:" {
		store = storage.NewMemoryStore()
	} else {
		s, err := storage.OpenSQLite(opts.DBPath)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "open event log database", err)
		}
		store = s
		closer = s.Close
	}

	log, err := eventlog.New(ctx, store)
	if err != nil {
		_ = closer()
		return nil, nil, WrapExitError(ExitCommandError, "open event log", err)
	}
	return log, closer, nil
}

// newFormatter builds the output formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// classifyError maps domain errors onto CLI error codes and exit codes.
func classifyError(err error) (code string, exit int) {
	switch {
	case eventlog.IsDuplicate(err):
		return ErrCodeDuplicate, ExitFailure
	case eventlog.IsCorrupt(err):
		return ErrCodeCorrupt, ExitFailure
	case derive.IsNoEvents(err):
		return ErrCodeNotFound, ExitCommandError
	case derive.IsDerivationError(err):
		return ErrCodeDerivation, ExitFailure
	case analytics.IsAnalyticsError(err):
		return ErrCodeNoData, ExitCommandError
	case errors.Is(err, storage.ErrNotFound):
		return ErrCodeNotFound, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// fail renders err through the formatter and returns an ExitError carrying
// the mapped exit code. Used as the single error exit path of commands.
func fail(formatter *OutputFormatter, err error) error {
	code, exit := classifyError(err)
	if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
		return WrapExitError(ExitCommandError, "render error output", outErr)
	}
	return &ExitError{Code: exit, Message: err.Error(), Err: err}
}
