package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newGracefulCmd(ctx *context) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "graceful <pid>",
		Short: "Terminate gracefully, escalating to SIGKILL after the timeout",
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

			budget := cfg.Shutdown.GracefulTimeout.Duration
			if cmd.Flags().Changed("timeout") {
				budget = timeout
			}

			res := sup.GracefulShutdown(cmd.Context(), pid, budget)
			return killError(res)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Grace budget before the forced kill")
	return cmd
}
