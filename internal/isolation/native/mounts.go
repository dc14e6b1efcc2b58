package native

import (
	"strings"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
	"golang.org/x/sys/unix"
)

// mountOverlay assembles the overlay root filesystem: layers (base first)
// as lowerdir, upper as the writable layer, work as overlayfs's required
// scratch directory, mounted at merged. When writable is false the upper
// directory is tmpfs-backed and mounted with nosuid/nodev, so writes never
// reach the host filesystem or persist past container removal.
func mountOverlay(layers []string, upper, work, merged string, writable bool) error {
	if !writable {
		if err := unix.Mount("tmpfs", upper, "tmpfs", unix.MS_NOSUID|unix.MS_NODEV, "mode=0755"); err != nil {
			return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
				"failed to mount tmpfs upper dir: %s", err)
		}
	}

	opts := "lowerdir=" + strings.Join(reverse(layers), ":") + ",upperdir=" + upper + ",workdir=" + work
	if err := unix.Mount("overlay", merged, "overlay", 0, opts); err != nil {
		return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
			"failed to mount overlay root: %s", err)
	}
	return nil
}

func unmountOverlay(merged string) error {
	return unix.Unmount(merged, unix.MNT_DETACH)
}

// reverse returns layers in overlayfs's lowerdir order: overlayfs reads
// lowerdir entries left-to-right as highest-to-lowest priority, but
// RootfsLayers is recorded base-first, so the topmost (most overriding)
// layer must come first in the option string.
func reverse(layers []string) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[len(layers)-1-i] = l
	}
	return out
}

// mountPseudoFilesystems mounts /proc, /sys (read-only), /dev (minimal),
// and /dev/pts inside root, called by the namespace's init process
// immediately after pivot_root.
func mountPseudoFilesystems(root string) error {
	mounts := []struct {
		target, fstype, data string
		flags                uintptr
	}{
		{root + "/proc", "proc", "", 0},
		{root + "/sys", "sysfs", "", unix.MS_RDONLY},
		{root + "/dev", "tmpfs", "mode=0755", unix.MS_NOSUID},
		{root + "/dev/pts", "devpts", "newinstance,ptmxmode=0666", 0},
	}
	for _, m := range mounts {
		if err := unix.Mount(m.fstype, m.target, m.fstype, m.flags, m.data); err != nil {
			return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
				"failed to mount %s: %s", m.target, err)
		}
	}
	return nil
}

// pivotRoot performs the pivot_root/unmount-old-root sequence so the
// container's process tree can never traverse back to the host
// filesystem.
func pivotRoot(newRoot string) error {
	oldRoot := newRoot + "/.old_root"
	if err := unix.Mount(newRoot, newRoot, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return err
	}
	if err := unix.Mkdir(oldRoot, 0o700); err != nil {
		return err
	}
	if err := unix.PivotRoot(newRoot, oldRoot); err != nil {
		return err
	}
	if err := unix.Chdir("/"); err != nil {
		return err
	}
	if err := unix.Unmount("/.old_root", unix.MNT_DETACH); err != nil {
		return err
	}
	return unix.Rmdir("/.old_root")
}

// applyBindMounts applies a container's declared volume bind mounts.
func applyBindMounts(root string, mounts []isolation.Mount) error {
	for _, m := range mounts {
		target := root + m.Target
		flags := uintptr(unix.MS_BIND)
		if err := unix.Mount(m.Source, target, "", flags, ""); err != nil {
			return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
				"failed to bind mount %s: %s", m.Source, err)
		}
		if m.ReadOnly {
			if err := unix.Mount("", target, "", flags|unix.MS_REMOUNT|unix.MS_RDONLY, ""); err != nil {
				return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
					"failed to remount %s read-only: %s", target, err)
			}
		}
	}
	return nil
}
