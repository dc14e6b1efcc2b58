package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/secrets"
)

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs <ref>",
	Short: "Print a container's captured stdout/stderr",
	Long: `logs prints the container named by ref (id, name, or an
unambiguous id prefix of at least 8 characters) its full captured
output and exits. --follow keeps the process running and prints new
output as the container produces it, until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep streaming new output instead of exiting after the current contents")
}

func runLogs(cmd *cobra.Command, args []string) error {
	entry, err := resolveEntryPath()
	if err != nil {
		return err
	}
	engine, err := newEngine(entry)
	if err != nil {
		return err
	}
	defer engine.Close()

	out := io.Writer(os.Stdout)
	if g, gerr := resolveGraph(entry); gerr == nil {
		out = secrets.NewMaskingWriter(os.Stdout, resolvableSecrets(g.Composition, entry))
	}

	ctx := context.Background()
	reader, err := engine.Logs(ctx, args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}

	followCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return followLogs(followCtx, reader, out)
}

// resolvableSecrets resolves every secret name comp's components reference
// through interpolation, best-effort: a secret no longer set by the time
// `logs` runs (e.g. an env var only exported for the `run` process's own
// lifetime) is simply left unmasked rather than failing the whole command.
func resolvableSecrets(comp *ctstlang.Composition, entry string) []secrets.Secret {
	resolver := secrets.NewResolver(secretsDir(entry))
	names := ctstlang.ReferencedSecrets(comp)
	out := make([]secrets.Secret, 0, len(names))
	for _, name := range names {
		if s, err := resolver.Resolve(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// followLogs polls reader for bytes appended after the initial copy in
// runLogs drained it. The backend hands back a plain opened file rather
// than a push stream, so following means re-reading it on an interval
// until the command is interrupted.
func followLogs(ctx context.Context, reader io.Reader, out io.Writer) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(out, reader); err != nil && err != io.EOF {
				return err
			}
		}
	}
}
