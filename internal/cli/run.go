package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ui"
)

var runDetach bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deploy the composition",
	Long: `run builds every component's image if needed, starts each phase
in dependency order, and waits for every component of a phase to be
Running (and, if probed, healthy) before starting the next phase.

By default run blocks and tears the deployment down gracefully on
SIGINT/SIGTERM. Pass -d to deploy and return immediately, leaving the
containers running; a later invocation of stop or another run's
shutdown is responsible for tearing them down.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "deploy and return immediately instead of blocking")
}

func runRun(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	g, err := resolveGraph(entry)
	if err != nil {
		return err
	}
	engine, err := newEngine(entry)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Deploy(ctx, g); err != nil {
		return err
	}
	ui.Success("deployment running")

	if runDetach {
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh

	ui.Info("shutting down")
	return engine.Shutdown(context.Background(), g, false)
}
