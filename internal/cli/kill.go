package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reap/internal/escalate"
)

func newKillCmd(ctx *context) *cobra.Command {
	var signalName string

	cmd := &cobra.Command{
		Use:   "kill <pid>",
		Short: "Send a single termination signal and verify the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

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

			res := sup.Kill(cmd.Context(), pid, sig)
			return killError(res)
		},
	}
	cmd.Flags().StringVar(&signalName, "signal", "", "Signal to deliver (SIGTERM, SIGKILL, SIGINT, SIGHUP)")
	return cmd
}

// killError maps a resolved kill outcome onto the CLI's error contract.
// Anything but a confirmed termination is a non-zero exit.
func killError(res escalate.Result) error {
	switch res.State {
	case escalate.StateTerminated:
		return nil
	case escalate.StateNotFound:
		return fmt.Errorf("pid %d: no such process", res.PID)
	case escalate.StateStillRunning:
		return fmt.Errorf("pid %d: still running", res.PID)
	default:
		if res.Reason != nil {
			return res.Reason
		}
		return fmt.Errorf("pid %d: kill failed", res.PID)
	}
}
