package cli

import (
	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
)

// NewQueueCommand creates the queue command, which lists the cached
// dispatch queue without touching the network.
func NewQueueCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "queue",
		Short:         "List the cached dispatch queue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				orders, err := a.Orders(cmd.Context())
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(orders)
				}
				renderOrders(f.Writer, orders)
				return nil
			})
		},
	}
	return cmd
}

// NewRefreshCommand creates the refresh command, which pulls the remote
// queue into the cache.
func NewRefreshCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "refresh",
		Short:         "Pull the dispatch queue from the server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				orders, err := a.Refresh(cmd.Context())
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(orders)
				}
				renderOrders(f.Writer, orders)
				return nil
			})
		},
	}
	return cmd
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "metrics",
		Short:         "Show today's delivery performance",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				m, err := a.Metrics(cmd.Context())
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(m)
				}
				renderMetrics(f.Writer, m)
				return nil
			})
		},
	}
	return cmd
}
