package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/state"
	"github.com/containust/containust/internal/ui"
)

var (
	psShowAll bool
	psTUI     bool
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers tracked in the project's state index",
	Long: `ps reads the project's state index directly; it does not probe
the isolation backend, so it reflects the last state any ctst invocation
observed. By default only created and running containers are shown; --all includes
stopped and failed ones too.`,
	RunE: runPs,
}

func init() {
	psCmd.Flags().BoolVarP(&psShowAll, "all", "a", false, "include stopped and failed containers")
	psCmd.Flags().BoolVar(&psTUI, "tui", false, "interactive dashboard (not available in this build; falls back to the table)")
}

func runPs(cmd *cobra.Command, args []string) error {
	if psTUI {
		ui.Warning("--tui is not available in this build; showing the table instead")
	}
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	index := state.OpenIndex(resolveStateFilePath(entry))
	records, err := index.List()
	if err != nil {
		return err
	}

	if !psShowAll {
		filtered := records[:0]
		for _, r := range records {
			if r.State == state.StateRunning || r.State == state.StateCreated {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return renderPsTable(records)
}

func renderPsTable(records []state.Record) error {
	if len(records) == 0 {
		ui.Info("no containers tracked")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tPID\tIMAGE")
	for _, r := range records {
		id := r.ID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", id, r.Name, ui.StateColor(string(r.State)), r.PID, r.Image)
	}
	return w.Flush()
}
