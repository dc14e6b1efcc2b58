package runtime

import (
	"context"
	"io"
	"os"

	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/secrets"
	"golang.org/x/term"
)

// Exec runs cmd inside id and returns its exit code, streaming through the
// given streams without any terminal handling. Use ExecInteractive for a
// host-terminal-attached session. stdout/stderr are wrapped in a
// secrets.MaskingWriter over every secret value resolved so far, so a
// command that echoes back an env var sourced from `${secret.x}` (e.g.
// `env`, or a crash message) does not leak it into the caller's stream.
func (e *Engine) Exec(ctx context.Context, id string, cmd []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	known := e.secretSnapshot()
	return e.backend.Exec(ctx, id, cmd, isolation.ExecIO{
		Stdin:  stdin,
		Stdout: secrets.NewMaskingWriter(stdout, known),
		Stderr: secrets.NewMaskingWriter(stderr, known),
	})
}

// ExecInteractive runs cmd inside id attached to the calling process's own
// stdin/stdout/stderr, requesting a TTY from the backend when the host's
// stdin is itself a terminal. The backend (native: the runc-style runtime
// spec's Terminal flag; vm: the guest agent) owns the actual pty allocated
// inside the container; here on the host side the only responsibility is
// putting the controlling terminal into raw mode for the duration of the
// session so the remote program sees unprocessed keystrokes, matching how
// a direct docker/ssh TTY session behaves.
func (e *Engine) ExecInteractive(ctx context.Context, id string, cmd []string) (int, error) {
	fd := int(os.Stdin.Fd())
	isTTY := term.IsTerminal(fd)

	if !isTTY {
		return e.Exec(ctx, id, cmd, os.Stdin, os.Stdout, os.Stderr)
	}

	prevState, err := term.MakeRaw(fd)
	if err != nil {
		return e.Exec(ctx, id, cmd, os.Stdin, os.Stdout, os.Stderr)
	}
	defer term.Restore(fd, prevState)

	known := e.secretSnapshot()
	return e.backend.Exec(ctx, id, cmd, isolation.ExecIO{
		Stdin:  os.Stdin,
		Stdout: secrets.NewMaskingWriter(os.Stdout, known),
		Stderr: secrets.NewMaskingWriter(os.Stderr, known),
		TTY:    true,
	})
}
