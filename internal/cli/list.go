package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reap/internal/inspect"
)

func newListCmd(ctx *context) *cobra.Command {
	var testsOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Display the current process snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, _, err := ctx.newSupervisor(cmd)
			if err != nil {
				return err
			}

			records := sup.List(cmd.Context(), testsOnly)
			writeProcessTable(cmd, records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&testsOnly, "tests-only", false, "Show only target (test-harness) processes")
	return cmd
}

func writeProcessTable(cmd *cobra.Command, records []inspect.Record) {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tPPID\tSTARTED\tTARGET\tCOMMAND")
	for _, rec := range records {
		started := "-"
		if !rec.StartedAt.IsZero() {
			started = rec.StartedAt.Format(time.DateTime)
		}
		target := "no"
		if rec.Target {
			target = "yes"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", rec.PID, rec.ParentPID, started, target, rec.Command)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d process(es)\n", len(records))
}
