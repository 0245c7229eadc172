package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reap/internal/escalate"
)

func newKillAllCmd(ctx *context) *cobra.Command {
	var signalName string

	cmd := &cobra.Command{
		Use:   "kill-all",
		Short: "Kill every target process, one at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, cfg, err := ctx.newSupervisor(cmd)
			if err != nil {
				return err
			}

			sig := cfg.DefaultSignal()
			if signalName != "" {
				if sig, err = escalate.ParseSignal(signalName); err != nil {
					return err
				}
			}

			results := sup.KillAllTargets(cmd.Context(), sig)
			failed := 0
			for _, res := range results {
				switch res.State {
				case escalate.StateTerminated, escalate.StateNotFound:
					// A target that vanished between the listing and the
					// signal already satisfied the intent.
				default:
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d target process(es) not terminated", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&signalName, "signal", "", "Signal to deliver (SIGTERM, SIGKILL, SIGINT, SIGHUP)")
	return cmd
}
