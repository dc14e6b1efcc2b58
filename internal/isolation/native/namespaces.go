package native

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// cmdHandle wraps a running container entry process.
type cmdHandle struct {
	cmd *exec.Cmd
	pid int

	waitOnce sync.Once
	mu       sync.Mutex
	exitCode int
	waited   bool
}

// wait blocks until the process exits, recording its exit code. cmd.Wait()
// may only run once on a given *exec.Cmd, so concurrent callers (Stop's
// escalation timer, Remove, the restart-policy reaper) share one call via
// waitOnce and all observe the same result through exitStatus.
func (h *cmdHandle) wait() {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		h.mu.Lock()
		h.exitCode = code
		h.waited = true
		h.mu.Unlock()
	})
}

// exitStatus reports the process's exit code and whether wait has observed
// it exit yet.
func (h *cmdHandle) exitStatus() (code int, done bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.waited
}

// userNamespacesAvailable reports whether the kernel exposes user
// namespaces, the capability containust's unprivileged install path needs
// to create the remaining namespace types without CAP_SYS_ADMIN on the
// host.
func userNamespacesAvailable() bool {
	_, err := os.Stat("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil {
		return true
	}
	_, err = os.Stat("/proc/self/ns/user")
	return err == nil
}

// spawnInNamespaces re-execs the containust binary itself in fresh PID,
// mount, network, UTS, and IPC namespaces (plus a user namespace unless
// running as root). The re-exec'd process is picked up by MaybeRunAsInit,
// which performs pivot_root and the pseudo-filesystem mounts before
// finally exec'ing cfg.Command: those syscalls must run from inside the
// new mount namespace, which os/exec's Chroot alone cannot arrange.
func spawnInNamespaces(cfg isolation.Config, merged string, logFile *os.File) (*cmdHandle, error) {
	if len(cfg.Command) == 0 {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty, "container has no command")
	}

	self, err := os.Executable()
	if err != nil {
		return nil, ctsterr.Wrapf(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
			"failed to resolve containust binary path: %s", err)
	}

	payload, err := json.Marshal(initPayload{
		Root:     merged,
		Hostname: cfg.Hostname,
		Mounts:   cfg.Mounts,
		Command:  cfg.Command,
		Env:      cfg.Env,
		Dir:      cfg.WorkingDir,
		User:     cfg.User,
	})
	if err != nil {
		return nil, ctsterr.Wrap(err, ctsterr.CategorySerialization, ctsterr.CodeStateWrite,
			"failed to encode namespace init payload")
	}

	cmd := exec.Command(self)
	cmd.Env = append(append([]string{}, cfg.Env...), reexecEnvVar+"="+string(payload))
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	flags := unix.CLONE_NEWPID | unix.CLONE_NEWNS | unix.CLONE_NEWNET | unix.CLONE_NEWUTS | unix.CLONE_NEWIPC
	if unix.Geteuid() != 0 {
		flags |= unix.CLONE_NEWUSER
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: uintptr(flags),
	}

	if err := cmd.Start(); err != nil {
		return nil, ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
			"failed to start container process: %s", err)
	}

	return &cmdHandle{cmd: cmd, pid: cmd.Process.Pid}, nil
}

// execInNamespaces runs cmd inside the namespaces of the process at
// targetPID by joining them via setns before forking the exec'd command,
// streaming the declared I/O.
func execInNamespaces(targetPID int, cmdline []string, streams isolation.ExecIO) (int, error) {
	if len(cmdline) == 0 {
		return -1, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty, "exec requires a command")
	}

	nsenter := exec.Command("nsenter",
		append([]string{"-t", strconv.Itoa(targetPID), "-m", "-u", "-i", "-n", "-p", "--"}, cmdline...)...)

	if !streams.TTY {
		nsenter.Stdin = streams.Stdin
		nsenter.Stdout = streams.Stdout
		nsenter.Stderr = streams.Stderr

		if err := nsenter.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return exitErr.ExitCode(), nil
			}
			return -1, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "exec failed")
		}
		return 0, nil
	}

	ptmx, err := pty.Start(nsenter)
	if err != nil {
		return -1, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to allocate pty for exec")
	}
	defer ptmx.Close()

	if streams.Stdin != nil {
		go io.Copy(ptmx, streams.Stdin)
	}
	if streams.Stdout != nil {
		go io.Copy(streams.Stdout, ptmx)
	}

	if err := nsenter.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "exec failed")
	}
	return 0, nil
}
