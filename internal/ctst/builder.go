// Package ctst is containust's public programmatic interface: the
// container builder, composition graph resolver, and deployment event
// stream spec.md §6 names as the surface consumed by embedding code.
// cmd/ctst is a thin CLI shell over this package; no business logic lives
// in cmd/.
package ctst

import (
	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/ctstlang"
)

// Container is a fully validated, not-yet-deployed component
// configuration, produced by Builder.Build.
type Container struct {
	component ctstlang.Component
}

// Component exposes the underlying resolved component for callers that
// feed a Container into a GraphResolver-produced deployment (e.g. to run
// a single ad hoc container outside a composition file).
func (c *Container) Component() ctstlang.Component { return c.component }

// Builder assembles one container's configuration with fluent setters,
// mirroring the composition language's own COMPONENT block so a
// programmatic caller and a `.ctst` file produce identical component
// values.
type Builder struct {
	c ctstlang.Component
}

// NewBuilder starts a Builder pre-populated with the same defaults
// typecheckComponent applies to a `.ctst` COMPONENT block that omits the
// field: read-only root filesystem, bridge networking, and no restarts.
// An explicit setter call always overrides these.
func NewBuilder() *Builder {
	return &Builder{c: ctstlang.Component{
		ReadOnly: true,
		Restart:  ctstlang.RestartNever,
		Network:  ctstlang.NetworkBridge,
		Env:      make(map[string]string),
	}}
}

func (b *Builder) Name(name string) *Builder {
	b.c.Name = name
	return b
}

func (b *Builder) Image(uri string) *Builder {
	b.c.ImageURI = uri
	return b
}

func (b *Builder) Command(cmd ...string) *Builder {
	b.c.Command = cmd
	return b
}

func (b *Builder) Entrypoint(cmd ...string) *Builder {
	b.c.Entrypoint = cmd
	return b
}

func (b *Builder) WorkDir(dir string) *Builder {
	b.c.WorkDir = dir
	return b
}

func (b *Builder) User(user string) *Builder {
	b.c.User = user
	return b
}

func (b *Builder) Hostname(hostname string) *Builder {
	b.c.Hostname = hostname
	return b
}

func (b *Builder) Port(port int) *Builder {
	b.c.Ports = append(b.c.Ports, port)
	return b
}

func (b *Builder) Env(key, value string) *Builder {
	if b.c.Env == nil {
		b.c.Env = make(map[string]string)
	}
	b.c.Env[key] = value
	return b
}

func (b *Builder) Volume(hostPath, containerPath string) *Builder {
	b.c.Volumes = append(b.c.Volumes, ctstlang.Volume{HostPath: hostPath, ContainerPath: containerPath})
	return b
}

func (b *Builder) ReadOnly(readOnly bool) *Builder {
	b.c.ReadOnly = readOnly
	return b
}

func (b *Builder) Restart(policy ctstlang.RestartPolicy) *Builder {
	b.c.Restart = policy
	return b
}

func (b *Builder) Network(mode ctstlang.NetworkMode) *Builder {
	b.c.Network = mode
	return b
}

func (b *Builder) Limits(limits ctstlang.ResourceLimits) *Builder {
	b.c.Limits = limits
	return b
}

func (b *Builder) Health(probe ctstlang.HealthProbe) *Builder {
	b.c.Health = &probe
	return b
}

// Build validates the accumulated configuration and returns a prepared
// Container. Name and ImageURI are required; everything else defaults the
// same way a `.ctst` COMPONENT block with the field omitted would.
func (b *Builder) Build() (*Container, error) {
	if b.c.Name == "" {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"container builder requires a name")
	}
	if b.c.ImageURI == "" {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
			"container builder requires an image")
	}
	return &Container{component: b.c}, nil
}
