package native

import (
	"encoding/json"
	"os"
	"syscall"

	"github.com/containust/containust/internal/isolation"
)

// reexecEnvVar signals that the current process is running as a
// container's namespace-init process rather than as the containust CLI
// itself: spawnInNamespaces re-execs the running binary with this set,
// since pivot_root and the pseudo-filesystem mounts must happen from
// inside the new mount namespace, before the declared command runs.
const reexecEnvVar = "CONTAINUST_NATIVE_INIT"

type initPayload struct {
	Root     string            `json:"root"`
	Hostname string            `json:"hostname"`
	Mounts   []isolation.Mount `json:"mounts"`
	Command  []string          `json:"command"`
	Env      []string          `json:"env"`
	Dir      string            `json:"dir"`
	User     string            `json:"user"`
}

// MaybeRunAsInit checks for the re-exec marker and, if present, performs
// the pivot_root/mount/exec sequence and never returns. cmd/ctst calls this
// first thing in main, before any other startup work, so a re-exec'd
// process never falls through to normal CLI argument parsing.
func MaybeRunAsInit() {
	raw := os.Getenv(reexecEnvVar)
	if raw == "" {
		return
	}

	var p initPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		os.Exit(126)
	}

	if err := pivotRoot(p.Root); err != nil {
		os.Exit(126)
	}
	if err := mountPseudoFilesystems(""); err != nil {
		os.Exit(126)
	}
	if err := applyBindMounts("", p.Mounts); err != nil {
		os.Exit(126)
	}
	if p.Hostname != "" {
		_ = syscall.Sethostname([]byte(p.Hostname))
	}

	if p.Dir != "" {
		_ = os.Chdir(p.Dir)
	}

	if err := dropCapabilities(); err != nil {
		os.Exit(126)
	}
	if err := applySeccomp(); err != nil {
		os.Exit(126)
	}

	// Credential drop happens last, after pivot_root/mount, which still
	// need the init process's full privilege; the declared command must
	// never run with more than its own user's rights.
	if p.User != "" {
		uid, gid, err := lookupUser(p.User)
		if err != nil {
			os.Exit(126)
		}
		// Supplementary groups inherited from the init process (root's)
		// must be cleared before the uid/gid switch, or the exec'd command
		// keeps root's group memberships despite the declared user.
		if err := syscall.Setgroups([]int{int(gid)}); err != nil {
			os.Exit(126)
		}
		if err := syscall.Setgid(int(gid)); err != nil {
			os.Exit(126)
		}
		if err := syscall.Setuid(int(uid)); err != nil {
			os.Exit(126)
		}
	}

	if len(p.Command) == 0 {
		os.Exit(127)
	}
	path, err := resolveInPath(p.Command[0], p.Env)
	if err != nil {
		os.Exit(127)
	}

	_ = syscall.Exec(path, p.Command, p.Env)
	os.Exit(126) // exec only returns on failure
}
