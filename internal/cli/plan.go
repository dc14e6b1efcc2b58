package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the deployment-phase ordering without starting anything",
	Long: `plan loads and type-checks the composition and prints the
phases run would execute components in, left to right. Running plan
twice on the same composition always prints byte-identical output.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	g, err := resolveGraph(entry)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(g.Plan)
	}

	if len(g.Plan.Phases) == 0 {
		ui.Info("empty composition: nothing to deploy")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tCOMPONENTS")
	for i, phase := range g.Plan.Phases {
		fmt.Fprintf(w, "%d\t%s\n", i+1, joinNames(phase.Components))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(g.Plan.Exposed) > 0 {
		fmt.Println()
		fmt.Println("Exposed ports:")
		for _, exp := range g.Plan.Exposed {
			fmt.Printf("  %s: %d -> %d\n", exp.Component, exp.HostPort, exp.CtrPort)
		}
	}
	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
