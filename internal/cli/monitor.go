package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/reap/internal/supervise"
	"github.com/Paintersrp/reap/internal/tui"
)

func newMonitorCmd(ctx *context) *cobra.Command {
	var interval time.Duration
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Periodically snapshot target processes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, cfg, err := ctx.newSupervisor(cmd)
			if err != nil {
				return err
			}

			cadence := cfg.Monitor.Interval.Duration
			if cmd.Flags().Changed("interval") {
				cadence = interval
			}

			if useTUI && term.IsTerminal(int(os.Stdout.Fd())) {
				return runMonitorTUI(cmd, sup, cadence)
			}

			out := cmd.OutOrStdout()
			sup.MonitorWait(cmd.Context(), cadence, func(snap supervise.Snapshot) {
				fmt.Fprintf(out, "[%s] %d target process(es)\n", snap.Taken.Format(time.TimeOnly), len(snap.Targets))
				for _, rec := range snap.Targets {
					fmt.Fprintf(out, "  pid %d  %s\n", rec.PID, rec.Command)
				}
			})
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", supervise.DefaultInterval, "Snapshot cadence")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render snapshots in an interactive table (requires a TTY)")
	return cmd
}

func runMonitorTUI(cmd *cobra.Command, sup *supervise.Supervisor, cadence time.Duration) error {
	ui := tui.New()
	session := sup.Monitor(cmd.Context(), cadence, func(snap supervise.Snapshot) {
		select {
		case ui.SnapshotSink() <- snap:
		default:
			// The UI repaints on the next snapshot; dropping one under
			// backpressure is harmless.
		}
	})
	defer session.Cancel()
	return ui.Run(cmd.Context())
}
