package cli

import (
	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "start <order-id>",
		Short:         "Mark a delivery as started",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				if err := a.StartDelivery(args[0]); err != nil {
					return failure(f, err)
				}
				return f.Success("Delivery started.")
			})
		},
	}
	return cmd
}

// NewArriveCommand creates the arrive command.
func NewArriveCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "arrive <order-id>",
		Short:         "Mark arrival at the customer",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				if err := a.MarkArrived(args[0]); err != nil {
					return failure(f, err)
				}
				return f.Success("Arrival marked.")
			})
		},
	}
	return cmd
}

// NewCollectCommand creates the collect command, confirming cash
// collection for an order that requires it.
func NewCollectCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "collect <order-id>",
		Short:         "Confirm cash collection for an order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				if err := a.ConfirmCollection(cmd.Context(), args[0]); err != nil {
					return failure(f, err)
				}
				return f.Success("Collection confirmed.")
			})
		},
	}
	return cmd
}

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Code string
}

// NewVerifyCommand creates the verify command, completing a delivery
// with the customer's OTP.
func NewVerifyCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <order-id>",
		Short: "Verify a delivery with the customer's OTP",
		Long: `Verify a delivery with the customer's one-time code.

The order must be marked arrived first, and any due cash collection
confirmed.

Example:
  ridersync verify ord-123 --code 123456`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				if err := a.VerifyDelivery(cmd.Context(), args[0], opts.Code); err != nil {
					return failure(f, err)
				}
				return f.Success("Delivery verified.")
			})
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "6-digit OTP from the customer")

	return cmd
}
