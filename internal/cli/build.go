package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve every component's image and populate the layer cache",
	Long: `build loads the composition, resolves every component's image
source to its layer set, and materialises each layer into the local
cache without creating or starting any container.

This is the only command besides run that may need network access (for
https:// image sources); pass --offline to forbid it.`,
	RunE: runBuildCmd,
}

func runBuildCmd(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	g, err := resolveGraph(entry)
	if err != nil {
		return err
	}

	cache, err := cacheDir()
	if err != nil {
		return err
	}
	store, err := imagestore.Open(cache, offline)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, comp := range g.Composition.Components {
		spinner := ui.StartSpinner(fmt.Sprintf("resolving %s (%s)", comp.Name, comp.ImageURI))
		layers, err := store.Resolve(comp.ImageURI, "")
		if err != nil {
			spinner.Fail(fmt.Sprintf("%s: %v", comp.Name, err))
			return err
		}
		if err := store.Release(layers); err != nil {
			spinner.Fail(fmt.Sprintf("%s: %v", comp.Name, err))
			return err
		}
		spinner.Success(fmt.Sprintf("%s: %d layer(s) cached", comp.Name, len(layers)))
	}

	ui.Success("build complete")
	return nil
}
