package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/ui"
)

var imagesRemove string

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List or remove cached image layers",
	Long: `images lists every layer materialised in the local cache along
with how many images currently reference it. Pass --remove <hash> to
evict a layer; removal is refused while its reference count is above
zero.`,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().StringVar(&imagesRemove, "remove", "", "content hash of a cached layer to remove")
}

func runImages(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	engine, err := newEngine(entry)
	if err != nil {
		return err
	}
	defer engine.Close()

	if imagesRemove != "" {
		if err := engine.RemoveImage(imagesRemove); err != nil {
			return err
		}
		ui.Success("removed %s", imagesRemove)
		return nil
	}

	layers, err := engine.Images()
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(layers)
	}
	return renderImagesTable(layers)
}

func renderImagesTable(layers []imagestore.CachedLayer) error {
	if len(layers) == 0 {
		ui.Info("no layers cached")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tSIZE\tREFS\tPATH")
	for _, l := range layers {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", l.Hash.String(), l.Size, l.RefCount, l.Path)
	}
	return w.Flush()
}
