// Package cli implements containust's command-line interface: a thin
// cobra shell over internal/ctst. No deployment logic lives here — every
// command resolves flags and environment and delegates: run, exec, stop,
// images and logs to an internal/ctst.Engine, plan to a graph resolver,
// build to internal/imagestore, and ps to the internal/state index.
package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ui"
	"github.com/containust/containust/internal/version"
)

// Global flags, shared by every subcommand via rootCmd's persistent flags.
var (
	entryPath     string
	stateFilePath string
	offline       bool
	jsonOutput    bool
	noColor       bool
	quiet         bool
	verboseOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "ctst",
	Short: "A daemon-less single-node container engine",
	Long: `ctst builds, plans, and runs compositions of isolated containers
described in .ctst files, without a background daemon: every invocation
loads the project's state index, acts, and exits. Already-running
containers persist across invocations and are re-observed on the next
one.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity := ui.VerbosityNormal
		if quiet {
			verbosity = ui.VerbosityQuiet
		} else if verboseOutput {
			verbosity = ui.VerbosityVerbose
		}
		ui.Configure(ui.Config{
			Verbosity: verbosity,
			NoColor:   noColor,
			Writer:    os.Stdout,
			ErrWriter: os.Stderr,
		})

		if !offline {
			offline = isTruthy(os.Getenv("CONTAINUST_OFFLINE"))
		}
		if stateFilePath == "" {
			stateFilePath = os.Getenv("CONTAINUST_STATE_FILE")
		}
		return nil
	},
}

// Execute runs the root command. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&entryPath, "file", "f", "", "path to the .ctst composition file (default: auto-detect in the current directory)")
	rootCmd.PersistentFlags().StringVar(&stateFilePath, "state-file", "", "path to the project state index (default: .ctst/state.json, or $CONTAINUST_STATE_FILE)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "forbid any network fetch for https:// imports or images")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON where supported")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verboseOutput, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(logsCmd)
}

func isTruthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
