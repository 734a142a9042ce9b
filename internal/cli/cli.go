// Package cli assembles the cobra command tree the operator drives the
// simulation through (spec §6): start, pause, resume, stop, status,
// list-avns, pay-avn, query-airline. Command usage mirrors the pack's
// cobra-based repos (confirmed dependency in
// other_examples/manifests/davidkohl-gobelix and
// other_examples/manifests/inference-sim-inference-sim).
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/atcsim/atcsim/internal/control"
)

// NewRootCommand builds the top-level `atcsim` command, wired against an
// already-constructed Controller and writing operator output to out.
// gatherer is the metrics source for the status command's --metrics flag;
// it may be nil if no metrics registry was wired (--metrics then fails
// with an explanatory error rather than panicking).
func NewRootCommand(ctrl *control.Controller, logger *slog.Logger, out io.Writer, gatherer prometheus.Gatherer) *cobra.Command {
	root := &cobra.Command{
		Use:   "atcsim",
		Short: "Automated air traffic control simulation core",
		SilenceUsage: true,
	}

	root.AddCommand(
		newStartCommand(ctrl, out),
		newPauseCommand(ctrl, out),
		newResumeCommand(ctrl, out),
		newStopCommand(ctrl, out),
		newStatusCommand(ctrl, out, gatherer),
		newListAVNsCommand(ctrl, out),
		newPayAVNCommand(ctrl, out),
		newQueryAirlineCommand(ctrl, out),
	)
	return root
}

func newStartCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the simulation clock and worker tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctrl.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "simulation started: session=%s\n", ctrl.SessionID())
			return nil
		},
	}
}

func newPauseCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause all worker tasks at their next loop boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl.Pause()
			fmt.Fprintln(out, "simulation paused")
			return nil
		},
	}
}

func newResumeCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl.Resume()
			fmt.Fprintln(out, "simulation resumed")
			return nil
		},
	}
}

func newStopCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulation and wait for all workers to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl.Stop()
			fmt.Fprintln(out, "simulation stopped")
			return nil
		},
	}
}

func newStatusCommand(ctrl *control.Controller, out io.Writer, gatherer prometheus.Gatherer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a snapshot of the simulation's current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ctrl.Status()
			fmt.Fprintf(out, "session=%s running=%t elapsed=%s remaining=%s\n", s.SessionID, s.Running, s.CurrentTime, s.RemainingTime)
			fmt.Fprintf(out, "flights active=%d cargo=%d denied=%d violations=%d\n", s.ActiveFlights, s.ActiveCargoFlights, s.DeniedFlights, s.TotalViolations)
			for runwayID, status := range s.RunwayOccupancy {
				fmt.Fprintf(out, "  runway %s: %s\n", runwayID, status)
			}

			showMetrics, err := cmd.Flags().GetBool("metrics")
			if err != nil || !showMetrics {
				return err
			}
			if gatherer == nil {
				return fmt.Errorf("cli: --metrics requested but no metrics registry is wired")
			}
			families, err := gatherer.Gather()
			if err != nil {
				return fmt.Errorf("cli: gather metrics: %w", err)
			}
			for _, mf := range families {
				if err := expfmt.MetricFamilyToText(out, mf); err != nil {
					return fmt.Errorf("cli: format metrics: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("metrics", false, "include the full Prometheus metrics exposition in the status output")
	return cmd
}

func newListAVNsCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list-avns",
		Short: "List every unpaid AVN",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, avn := range ctrl.ListUnpaidAVNs() {
				fmt.Fprintf(out, "#%d %s/%s %s total=%.2f status=%s due=%s\n",
					avn.ID, avn.AirlineName, avn.FlightID, avn.Kind, avn.Total, avn.Status, avn.DueAt.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	}
}

func newPayAVNCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "pay-avn <id> <amount>",
		Short: "Submit a payment request for the given AVN id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("cli: invalid avn id %q: %w", args[0], err)
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("cli: invalid amount %q: %w", args[1], err)
			}
			if err := ctrl.RequestPayment(id, amount); err != nil {
				return err
			}
			fmt.Fprintf(out, "payment request submitted for AVN #%d\n", id)
			return nil
		},
	}
}

func newQueryAirlineCommand(ctrl *control.Controller, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "query-airline <name>",
		Short: "List every AVN issued against the named airline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			avns, err := ctrl.QueryAirline(args[0])
			if err != nil {
				return err
			}
			for _, avn := range avns {
				fmt.Fprintf(out, "#%d %s %s total=%.2f status=%s\n", avn.ID, avn.FlightID, avn.Kind, avn.Total, avn.Status)
			}
			return nil
		},
	}
}

// Execute runs root against args, returning the process exit code: 0 on a
// clean run, 1 on any command error (spec §6).
func Execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}
