package native

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// writeRuntimeSpec renders cfg as an OCI runtime-spec document and writes
// it to dir/config.json, the same bundle-inspection convention runc uses:
// an operator can read a container's isolation surface
// without containust itself exposing a parallel, ad-hoc config format.
func writeRuntimeSpec(dir string, cfg isolation.Config, merged string) error {
	spec := buildRuntimeSpec(cfg, merged)

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return ctsterr.Wrap(err, ctsterr.CategorySerialization, ctsterr.CodeStateWrite,
			"failed to encode runtime spec")
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ctsterr.IOFailure(path, err)
	}
	return nil
}

func buildRuntimeSpec(cfg isolation.Config, merged string) *specs.Spec {
	mounts := make([]specs.Mount, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		opts := []string{"bind"}
		if m.ReadOnly {
			opts = append(opts, "ro")
		}
		mounts = append(mounts, specs.Mount{
			Destination: m.Target,
			Source:      m.Source,
			Type:        "bind",
			Options:     opts,
		})
	}

	namespaces := []specs.LinuxNamespace{
		{Type: specs.PIDNamespace},
		{Type: specs.MountNamespace},
		{Type: specs.NetworkNamespace},
		{Type: specs.UTSNamespace},
		{Type: specs.IPCNamespace},
	}

	cwd := cfg.WorkingDir
	if cwd == "" {
		cwd = "/"
	}

	var resources *specs.LinuxResources
	if cfg.Resources.CPUWeight != 0 || cfg.Resources.MemoryLimitBytes != 0 || cfg.Resources.IOWeight != 0 {
		resources = &specs.LinuxResources{}
		if cfg.Resources.CPUWeight != 0 {
			shares := cfg.Resources.CPUWeight
			resources.CPU = &specs.LinuxCPU{Shares: &shares}
		}
		if cfg.Resources.MemoryLimitBytes != 0 {
			limit := cfg.Resources.MemoryLimitBytes
			resources.Memory = &specs.LinuxMemory{Limit: &limit}
		}
		if cfg.Resources.IOWeight != 0 {
			weight := uint16(cfg.Resources.IOWeight)
			resources.BlockIO = &specs.LinuxBlockIO{Weight: &weight}
		}
	}

	return &specs.Spec{
		Version:  specs.Version,
		Hostname: cfg.Hostname,
		Process: &specs.Process{
			Args: cfg.Command,
			Env:  cfg.Env,
			Cwd:  cwd,
		},
		Root: &specs.Root{
			Path:     merged,
			Readonly: !cfg.Writable,
		},
		Mounts: mounts,
		Linux: &specs.Linux{
			Namespaces: namespaces,
			Resources:  resources,
		},
	}
}
