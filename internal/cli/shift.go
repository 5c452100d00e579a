package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
	"github.com/unilove/ridersync/internal/model"
)

// ShiftOptions holds flags for the shift command.
type ShiftOptions struct {
	*RootOptions
	Note string
}

// NewShiftCommand creates the shift command.
func NewShiftCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	opts := &ShiftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shift <online|offline>",
		Short: "Declare shift availability",
		Args:  cobra.ExactArgs(1),
		Long: `Declare shift availability.

The server's resolved status is persisted locally, which may differ from
the requested one when dispatch overrides it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := strings.ToLower(args[0])
			if requested != "online" && requested != "offline" {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown shift status %q: use online or offline", args[0]))
			}
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				status := model.ShiftOffline
				if requested == "online" {
					status = model.ShiftOnline
				}
				resolved, err := a.UpdateShift(cmd.Context(), status, opts.Note)
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(map[string]string{"status": string(resolved)})
				}
				return f.Success(fmt.Sprintf("Shift is now %s.", strings.ToLower(string(resolved))))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Note, "note", "", "optional note for dispatch")

	return cmd
}
