package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ctsterr"
)

var execCmd = &cobra.Command{
	Use:   "exec <ref> -- <command> [args...]",
	Short: "Run a command inside a running container",
	Long: `exec runs command inside the container named by ref (id, name,
or an unambiguous id prefix of at least 8 characters), attached to the
host terminal in raw mode when stdin is a TTY.

Example:
  ctst exec web -- /bin/sh -c "echo hi"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"usage: ctst exec <ref> -- <command> [args...]")
	}
	ref := args[:dash]
	command := args[dash:]
	if len(ref) != 1 || len(command) == 0 {
		return ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"usage: ctst exec <ref> -- <command> [args...]")
	}

	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	engine, err := newEngine(entry)
	if err != nil {
		return err
	}
	defer engine.Close()

	if g, gerr := resolveGraph(entry); gerr == nil {
		engine.PrimeSecrets(resolvableSecrets(g.Composition, entry))
	}

	code, err := engine.Exec(context.Background(), ref[0], command)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
