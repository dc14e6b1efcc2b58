// Package native implements internal/isolation.Backend directly on top of
// Linux namespaces, cgroups, and an overlay root filesystem. It is the
// primary backend on Linux hosts.
package native

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
	"golang.org/x/sys/unix"
)

// Backend assembles and supervises containers as raw Linux processes in
// fresh namespaces, with no daemon process mediating between calls: every
// method operates directly on the host's /proc and the container's state
// directory.
type Backend struct {
	// stateDir holds one subdirectory per container: its overlay upper/work
	// dirs, merged mountpoint, and log file.
	stateDir string

	mu         sync.Mutex
	containers map[string]*container
}

// container is the backend's in-memory record for one container, backing
// Start/Stop/Exec/Remove/List between calls. Restarting the containust
// process loses this map, and nothing rebuilds it from internal/state's
// durable index: a new process only knows the containers it created.
type container struct {
	id       string
	cfg      isolation.Config
	merged   string
	cmd      *cmdHandle
	logPath  string
	forwards []io.Closer
}

// New returns a Backend rooted at stateDir. It does not create the
// directory; IsAvailable and Create do.
func New(stateDir string) *Backend {
	return &Backend{stateDir: stateDir, containers: make(map[string]*container)}
}

// IsAvailable reports whether this host can create the namespaces
// containust needs: stateDir can be created, and either the process runs
// as root or the kernel exposes user namespaces under /proc. No namespace
// is actually created to probe this.
func (b *Backend) IsAvailable() bool {
	if err := os.MkdirAll(b.stateDir, 0o755); err != nil {
		return false
	}
	return unix.Geteuid() == 0 || userNamespacesAvailable()
}

func (b *Backend) containerDir(id string) string {
	return filepath.Join(b.stateDir, id)
}

// Create assembles the overlay root filesystem and resource-control group
// for cfg, but does not start the entry process.
func (b *Backend) Create(ctx context.Context, cfg isolation.Config) (string, error) {
	dir := b.containerDir(cfg.ID)
	upper := filepath.Join(dir, "upper")
	work := filepath.Join(dir, "work")
	merged := filepath.Join(dir, "merged")

	for _, d := range []string{upper, work, merged} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return "", ctsterr.IOFailure(d, err)
		}
	}

	if err := mountOverlay(cfg.RootfsLayers, upper, work, merged, cfg.Writable); err != nil {
		return "", err
	}

	if err := createCgroup(cfg.ID, cfg.Resources); err != nil {
		return "", err
	}

	if err := writeRuntimeSpec(dir, cfg, merged); err != nil {
		return "", err
	}

	b.mu.Lock()
	b.containers[cfg.ID] = &container{id: cfg.ID, cfg: cfg, merged: merged, logPath: filepath.Join(dir, "log")}
	b.mu.Unlock()

	return cfg.ID, nil
}

// Start launches the entry process in fresh PID, mount, network, UTS, and
// IPC namespaces (plus a user namespace when not running as root), pivots
// into the overlay root, mounts the essential pseudo-filesystems, applies
// bind mounts, drops capabilities down to the allowlist, and execs the
// declared command.
func (b *Backend) Start(ctx context.Context, id string) (int, error) {
	b.mu.Lock()
	c, ok := b.containers[id]
	b.mu.Unlock()
	if !ok {
		return 0, ctsterr.ContainerNotFound(id)
	}

	logFile, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, ctsterr.IOFailure(c.logPath, err)
	}

	handle, err := spawnInNamespaces(c.cfg, c.merged, logFile)
	if err != nil {
		logFile.Close()
		return 0, err
	}

	b.mu.Lock()
	c.cmd = handle
	b.mu.Unlock()

	// Reap the entry process as soon as it exits, regardless of whether
	// anyone calls Stop/Remove, so List can report a real exit code to the
	// restart-policy monitor instead of just "no longer running".
	go handle.wait()

	if err := joinCgroup(id, handle.pid); err != nil {
		return 0, err
	}
	forwards, err := forwardPorts(handle.pid, c.cfg.Ports)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	c.forwards = forwards
	b.mu.Unlock()

	return handle.pid, nil
}

// Stop sends SIGTERM and waits up to timeout before escalating to SIGKILL.
func (b *Backend) Stop(ctx context.Context, id string, timeout time.Duration) error {
	b.mu.Lock()
	c, ok := b.containers[id]
	b.mu.Unlock()
	if !ok {
		return ctsterr.ContainerNotFound(id)
	}
	closeForwards(c.forwards)
	if c.cmd == nil {
		return nil
	}

	if err := unix.Kill(c.cmd.pid, syscall.SIGTERM); err != nil && err != unix.ESRCH {
		return ctsterr.Wrapf(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to signal container %s", id)
	}

	done := make(chan struct{})
	go func() {
		c.cmd.wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		_ = unix.Kill(c.cmd.pid, syscall.SIGKILL)
		<-done
		return nil
	}
}

// Exec runs cmd inside the container's namespaces by joining them via
// setns on the running entry process's /proc/<pid>/ns/* handles.
func (b *Backend) Exec(ctx context.Context, id string, cmd []string, streams isolation.ExecIO) (int, error) {
	b.mu.Lock()
	c, ok := b.containers[id]
	b.mu.Unlock()
	if !ok {
		return -1, ctsterr.ContainerNotFound(id)
	}
	if c.cmd == nil {
		return -1, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeInvalidTransition, "container is not running")
	}
	return execInNamespaces(c.cmd.pid, cmd, streams)
}

// Remove stops the container if still running, unmounts its overlay, and
// removes its resource-control group and state directory.
func (b *Backend) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	c, ok := b.containers[id]
	delete(b.containers, id)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	closeForwards(c.forwards)
	if c.cmd != nil {
		_ = unix.Kill(c.cmd.pid, syscall.SIGKILL)
		c.cmd.wait()
	}

	_ = unmountOverlay(c.merged)
	_ = removeCgroup(id)

	if err := os.RemoveAll(b.containerDir(id)); err != nil {
		return ctsterr.IOFailure(b.containerDir(id), err)
	}
	return nil
}

// Logs returns the container's captured stdout/stderr.
func (b *Backend) Logs(ctx context.Context, id string) (io.ReadCloser, error) {
	b.mu.Lock()
	c, ok := b.containers[id]
	b.mu.Unlock()
	if !ok {
		return nil, ctsterr.ContainerNotFound(id)
	}
	f, err := os.Open(c.logPath)
	if err != nil {
		return nil, ctsterr.IOFailure(c.logPath, err)
	}
	return f, nil
}

// List returns every container this backend instance currently tracks.
func (b *Backend) List(ctx context.Context) ([]isolation.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]isolation.Record, 0, len(b.containers))
	for _, c := range b.containers {
		rec := isolation.Record{ID: c.id}
		if c.cmd != nil {
			rec.PID = c.cmd.pid
			code, done := c.cmd.exitStatus()
			rec.Running = !done && processAlive(c.cmd.pid)
			if done {
				ec := code
				rec.ExitCode = &ec
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// Stats satisfies isolation.StatsProvider by reading id's cgroup v2
// accounting files directly, the same way createCgroup/joinCgroup write
// them.
func (b *Backend) Stats(ctx context.Context, id string) (isolation.Stats, error) {
	b.mu.Lock()
	_, ok := b.containers[id]
	b.mu.Unlock()
	if !ok {
		return isolation.Stats{}, ctsterr.ContainerNotFound(id)
	}
	return readCgroupStats(id), nil
}
