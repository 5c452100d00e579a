package cli

import (
	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
)

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// runWithApp builds the application, runs fn, and releases the store.
// Factory errors are command errors (exit 2); everything inside fn owns
// its own rendering and exit code.
func runWithApp(opts *RootOptions, factory Factory, cmd *cobra.Command, fn func(a *app.App, f *OutputFormatter) error) error {
	a, closer, err := factory(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "initializing", err)
	}
	defer closer()
	return fn(a, newFormatter(cmd, opts))
}

// failure renders the classified fault and returns the bare exit
// sentinel so main exits nonzero without printing the message twice.
func failure(f *OutputFormatter, err error) error {
	_ = f.Fault(err)
	return &ExitError{Code: ExitFailure}
}
