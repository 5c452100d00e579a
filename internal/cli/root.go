package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Factory builds the application for one command invocation. The
// returned closer releases the store; commands call it on exit.
type Factory func(opts *RootOptions) (*app.App, func(), error)

// NewRootCommand creates the root command for the ridersync CLI.
func NewRootCommand(factory Factory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ridersync",
		Short: "UniLove rider dispatch sync",
		Long:  "Offline-resilient dispatch queue, incident reporting, and delivery lifecycle for UniLove field riders.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewLoginCommand(opts, factory))
	cmd.AddCommand(NewLogoutCommand(opts, factory))
	cmd.AddCommand(NewQueueCommand(opts, factory))
	cmd.AddCommand(NewRefreshCommand(opts, factory))
	cmd.AddCommand(NewStartCommand(opts, factory))
	cmd.AddCommand(NewArriveCommand(opts, factory))
	cmd.AddCommand(NewCollectCommand(opts, factory))
	cmd.AddCommand(NewVerifyCommand(opts, factory))
	cmd.AddCommand(NewIncidentCommand(opts, factory))
	cmd.AddCommand(NewShiftCommand(opts, factory))
	cmd.AddCommand(NewMetricsCommand(opts, factory))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
