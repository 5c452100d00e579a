package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unilove/ridersync/internal/app"
	"github.com/unilove/ridersync/internal/model"
)

// IncidentReportOptions holds flags for incident report.
type IncidentReportOptions struct {
	*RootOptions
	OrderID  string
	Category string
	Note     string
	Location string
}

// NewIncidentCommand creates the incident command group.
func NewIncidentCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incident",
		Short: "Report and sync field incidents",
	}
	cmd.AddCommand(newIncidentReportCommand(rootOpts, factory))
	cmd.AddCommand(newIncidentListCommand(rootOpts, factory))
	cmd.AddCommand(newIncidentSyncCommand(rootOpts, factory))
	return cmd
}

func newIncidentReportCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	opts := &IncidentReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report a field incident",
		Long: `Report a field incident.

The report is recorded locally first. When the submission fails it
stays queued and syncs automatically on the next opportunity.

Example:
  ridersync incident report --category MOTOR_BREAKDOWN --note "Chain snapped"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				draft := model.IncidentDraft{
					OrderID:  opts.OrderID,
					Category: model.ParseIncidentCategory(opts.Category),
					Note:     opts.Note,
					Location: opts.Location,
				}
				rec, err := a.ReportIncident(cmd.Context(), draft)
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(map[string]any{
						"id":       rec.ID,
						"category": rec.Category,
						"sync":     rec.SyncStatus,
					})
				}
				fmt.Fprintf(f.Writer, "Incident reported (%s).\n", rec.Category)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.OrderID, "order", "", "related order ID")
	cmd.Flags().StringVar(&opts.Category, "category", "OTHER", "incident category")
	cmd.Flags().StringVar(&opts.Note, "note", "", "what happened")
	cmd.Flags().StringVar(&opts.Location, "location", "", "lat,lng if known")

	return cmd
}

func newIncidentListCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "Show the incident log, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				recs, err := a.IncidentHistory(cmd.Context())
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(recs)
				}
				renderIncidents(f.Writer, recs)
				return nil
			})
		},
	}
	return cmd
}

func newIncidentSyncCommand(rootOpts *RootOptions, factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sync",
		Short:         "Replay incidents saved offline",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(rootOpts, factory, cmd, func(a *app.App, f *OutputFormatter) error {
				n, err := a.SyncIncidents(cmd.Context())
				if err != nil {
					return failure(f, err)
				}
				if f.Format == "json" {
					return f.Success(map[string]int{"flushed": n})
				}
				return f.Success(printer.Sprintf("%d incident(s) synced.", n))
			})
		},
	}
	return cmd
}
