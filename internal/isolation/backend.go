// Package isolation defines the abstract container backend contract that
// internal/runtime drives, and is implemented by internal/isolation/native
// (fresh Linux namespaces) and internal/isolation/vm (a JSON-RPC agent
// inside a disposable guest, for non-Linux hosts).
package isolation

import (
	"context"
	"io"
	"time"
)

// Mount is one bind mount applied inside the container, sourced from a
// declared volume.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// PortForward is one EXPOSE record: a host port forwarded to a container
// port.
type PortForward struct {
	HostPort      int
	ContainerPort int
}

// Resources holds the resource-control-group limits applied to a
// container.
type Resources struct {
	// CPUWeight is the cgroup v2 cpu.weight value (1-10000); zero means
	// unset (cgroup default).
	CPUWeight uint64
	// MemoryLimitBytes is the cgroup v2 memory.max value; zero means
	// unlimited.
	MemoryLimitBytes int64
	// IOWeight is the cgroup v2 io.weight value; zero means unset.
	IOWeight uint64
}

// Config describes everything a backend needs to create one container.
type Config struct {
	ID         string
	Hostname   string
	Command    []string
	Env        []string
	WorkingDir string
	User       string

	// RootfsLayers is the ordered overlay stack, base layer first, as
	// resolved by internal/imagestore.
	RootfsLayers []string
	// Writable selects a persistent upper directory (true) or a
	// tmpfs-backed, nosuid/nodev one (false). It is the negation of the
	// composition's readonly property: Writable == !readonly.
	Writable bool

	Mounts    []Mount
	Resources Resources
	Ports     []PortForward
}

// Record is one backend-reported container's observable state, used by
// internal/runtime to reconcile against internal/state's index.
type Record struct {
	ID      string
	PID     int
	Running bool
	// ExitCode is the process's exit status once it has stopped running,
	// nil while Running is true or the backend never observed the exit
	// (e.g. the process predates this backend instance). The
	// restart-policy monitor uses it to distinguish a clean exit (0) from
	// a crash (non-zero).
	ExitCode *int
}

// ExecIO carries the stdio streams for an Exec call; nil fields mean that
// stream is not attached.
type ExecIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	TTY    bool
}

// Stats is one point-in-time resource-usage sample for a container, read
// from whatever accounting mechanism the backend has (cgroup v2 files on
// the native backend). A backend that cannot produce usage data simply does
// not implement StatsProvider; internal/runtime treats that as "no metrics
// available" rather than an error.
type Stats struct {
	CPUUsageUsec uint64
	MemoryBytes  uint64
	IOBytes      uint64
}

// StatsProvider is an optional capability a Backend may implement to
// support internal/runtime's periodic MetricsUpdate sampling. It is
// separate from Backend itself so the VM-mediated backend, which does not
// yet proxy guest accounting data over RPC, is not forced to fake one.
type StatsProvider interface {
	Stats(ctx context.Context, id string) (Stats, error)
}

// Backend is the abstract container backend interface every isolation
// implementation satisfies.
type Backend interface {
	// Create assembles the container's filesystem and isolation
	// primitives without starting its entry process.
	Create(ctx context.Context, cfg Config) (id string, err error)
	// Start launches the entry process and returns its pid (the guest
	// pid, for the VM backend).
	Start(ctx context.Context, id string) (pid int, err error)
	// Stop sends a graceful termination signal, escalating to a forced
	// kill if the container has not exited by timeout.
	Stop(ctx context.Context, id string, timeout time.Duration) error
	// Exec runs cmd inside the running container and returns its exit
	// code.
	Exec(ctx context.Context, id string, cmd []string, streams ExecIO) (exitCode int, err error)
	// Remove tears down the container's namespaces, mounts, and
	// resource-control group.
	Remove(ctx context.Context, id string) error
	// Logs returns the container's captured stdout/stderr stream.
	Logs(ctx context.Context, id string) (io.ReadCloser, error)
	// List returns every container the backend currently knows about.
	List(ctx context.Context) ([]Record, error)
	// IsAvailable reports whether this backend can be used on the current
	// host.
	IsAvailable() bool
}
