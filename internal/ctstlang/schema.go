package ctstlang

import "time"

// ResourceLimits is the optional {cpu weight, memory bytes, io weight}
// tuple. A zero field means "inherit host default".
type ResourceLimits struct {
	CPUWeight  int64
	MemoryByte int64
	IOWeight   int64
}

// HealthProbe is the optional healthcheck block, with spec.md's defaults
// (30s interval, 5s timeout, 3 retries, 0s start period) applied by the
// type-checker when the block is present but a field is omitted.
type HealthProbe struct {
	Command     []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// DefaultHealthProbe returns the spec-mandated defaults.
func DefaultHealthProbe() HealthProbe {
	return HealthProbe{
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		Retries:     3,
		StartPeriod: 0,
	}
}

// Volume is one parsed "host-path:container-path" entry.
type Volume struct {
	HostPath      string
	ContainerPath string
}

// RestartPolicy enumerates the three legal restart values.
type RestartPolicy string

const (
	RestartNever      RestartPolicy = "never"
	RestartOnFailure  RestartPolicy = "on-failure"
	RestartAlways     RestartPolicy = "always"
)

// NetworkMode enumerates the built-in network modes; any other value is
// treated as a named user network.
type NetworkMode string

const (
	NetworkBridge NetworkMode = "bridge"
	NetworkHost   NetworkMode = "host"
	NetworkNone   NetworkMode = "none"
)

// Component is one fully type-checked, merged component definition: the
// output of parsing, import resolution, and template inheritance, before
// interpolation and auto-injected env vars are resolved at deploy time.
type Component struct {
	Name        string
	ImageURI    string
	Command     []string
	Entrypoint  []string
	WorkDir     string
	User        string
	Hostname    string
	Ports       []int
	Volumes     []Volume
	Env         map[string]string
	ReadOnly    bool
	Restart     RestartPolicy
	Network     NetworkMode
	Limits      ResourceLimits
	Health      *HealthProbe
}

// ConnectionEdge is a resolved `CONNECT source -> target` statement.
type ConnectionEdge struct {
	Source string
	Target string
}

// ExposedPort is a resolved `EXPOSE` record: a host-to-container port
// mapping that affects neither ordering nor auto-injection.
type ExposedPort struct {
	Component string
	HostPort  int
	CtrPort   int
}

// Composition is the fully resolved output of Load: every component across
// the entry file and its imports, merged and type-checked, plus the raw
// connection/expose statements internal/graph turns into phases.
type Composition struct {
	EntryPath  string
	Components []Component
	Connects   []ConnectionEdge
	Exposes    []ExposedPort
}

// ByName returns the component named n, or false if none exists.
func (c *Composition) ByName(n string) (Component, bool) {
	for _, comp := range c.Components {
		if comp.Name == n {
			return comp, true
		}
	}
	return Component{}, false
}
