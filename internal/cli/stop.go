package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ui"
)

var stopForce bool

var stopCmd = &cobra.Command{
	Use:   "stop [refs...]",
	Short: "Stop containers",
	Long: `stop tears down the containers named by refs (id, name, or an
unambiguous id prefix of at least 8 characters). With no refs, every
container the composition's phases name is torn down in reverse phase
order. --force skips the graceful-termination grace period.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "skip the graceful-termination grace period")
}

func runStop(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	engine, err := newEngine(entry)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	if len(args) == 0 {
		g, err := resolveGraph(entry)
		if err != nil {
			return err
		}
		if err := engine.Shutdown(ctx, g, stopForce); err != nil {
			return err
		}
		ui.Success("stopped")
		return nil
	}

	for _, ref := range args {
		if err := engine.Stop(ctx, ref, stopForce); err != nil {
			return err
		}
		ui.Success("stopped %s", ref)
	}
	return nil
}
