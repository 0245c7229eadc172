package cli

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/reap/internal/classify"
	"github.com/Paintersrp/reap/internal/cliutil"
	"github.com/Paintersrp/reap/internal/config"
	"github.com/Paintersrp/reap/internal/escalate"
	"github.com/Paintersrp/reap/internal/identity"
	"github.com/Paintersrp/reap/internal/inspect"
	"github.com/Paintersrp/reap/internal/supervise"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var configFile string
	var jsonOut bool

	root := &cobra.Command{
		Use:   "reap",
		Short: "Process lifecycle supervisor for test-harness processes",
	}

	root.PersistentFlags().
		StringVarP(&configFile, "file", "f", "reap.yaml", "Path to reap configuration")
	root.PersistentFlags().
		BoolVar(&jsonOut, "json", false, "Emit progress as JSON records")

	ctx := &context{root: root, configFile: &configFile, jsonOut: &jsonOut}
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newGracefulCmd(ctx))
	root.AddCommand(newKillAllCmd(ctx))
	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newMonitorCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint. Exit-code translation happens here and
// nowhere deeper: the supervisor core never terminates the process.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	root       *cobra.Command
	configFile *string
	jsonOut    *bool

	// newInspector is swapped by tests to avoid touching the real process
	// table.
	newInspector func(classifier inspect.Classifier) inspect.Inspector
}

func (c *context) loadConfig() (*config.Config, error) {
	required := c.root.PersistentFlags().Changed("file")
	return config.Load(*c.configFile, required)
}

// newSupervisor assembles the component stack for one command invocation:
// classifier, platform inspector, identity verifier, escalator, supervisor.
func (c *context) newSupervisor(cmd *cobra.Command) (*supervise.Supervisor, *config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	classifier, err := classify.New(cfg.Targets.Patterns)
	if err != nil {
		return nil, nil, err
	}

	build := c.newInspector
	if build == nil {
		build = inspect.New
	}
	inspector := build(classifier)

	verifier := identity.New(inspector, cfg.Identity.Tolerance.Duration)
	escalator := escalate.New(inspector, verifier,
		escalate.WithGraceWait(cfg.Shutdown.GraceWait.Duration),
		escalate.WithPollInterval(cfg.Shutdown.PollInterval.Duration),
	)

	sup := supervise.New(inspector, escalator, supervise.WithEmitter(c.emitter(cmd)))
	return sup, cfg, nil
}

func (c *context) emitter(cmd *cobra.Command) func(supervise.Event) {
	if *c.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		return func(event supervise.Event) {
			cliutil.EncodeEvent(enc, cmd.ErrOrStderr(), event)
		}
	}
	return func(event supervise.Event) {
		fmt.Fprintln(cmd.OutOrStdout(), cliutil.FormatEvent(event))
	}
}

// parsePID validates the positional pid argument.
func parsePID(arg string) (int, error) {
	pid, err := strconv.Atoi(arg)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q: expected a positive integer", arg)
	}
	return pid, nil
}
