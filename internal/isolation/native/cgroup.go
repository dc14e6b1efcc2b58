package native

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
)

// cgroupRoot is containust's private parent under the host's cgroup v2
// hierarchy; every container gets its own leaf cgroup beneath it.
const cgroupRoot = "/sys/fs/cgroup/containust"

func cgroupPath(id string) string {
	return filepath.Join(cgroupRoot, id)
}

// createCgroup makes a leaf cgroup for id and applies its resource limits.
// Controllers that were never set in res are left at the cgroup default.
func createCgroup(id string, res isolation.Resources) error {
	dir := cgroupPath(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ctsterr.IOFailure(dir, err)
	}

	if res.CPUWeight != 0 {
		if err := writeCgroupFile(dir, "cpu.weight", strconv.FormatUint(res.CPUWeight, 10)); err != nil {
			return err
		}
	}
	if res.MemoryLimitBytes != 0 {
		if err := writeCgroupFile(dir, "memory.max", strconv.FormatInt(res.MemoryLimitBytes, 10)); err != nil {
			return err
		}
	}
	if res.IOWeight != 0 {
		if err := writeCgroupFile(dir, "io.weight", strconv.FormatUint(res.IOWeight, 10)); err != nil {
			return err
		}
	}
	return nil
}

// joinCgroup moves pid into id's cgroup by writing it to cgroup.procs.
func joinCgroup(id string, pid int) error {
	return writeCgroupFile(cgroupPath(id), "cgroup.procs", strconv.Itoa(pid))
}

// removeCgroup deletes id's leaf cgroup. It is a no-op if the cgroup was
// never created or the host has no cgroup v2 hierarchy mounted.
func removeCgroup(id string) error {
	if err := os.Remove(cgroupPath(id)); err != nil && !os.IsNotExist(err) {
		return ctsterr.IOFailure(cgroupPath(id), err)
	}
	return nil
}

// readCgroupStats reads id's cgroup.v2 accounting files into a Stats value.
// A missing cgroup (container never created, or host has no cgroup v2
// hierarchy) is reported as a zero Stats rather than an error, since
// sampling is best-effort.
func readCgroupStats(id string) isolation.Stats {
	dir := cgroupPath(id)
	var s isolation.Stats

	if cpuStat, err := os.ReadFile(filepath.Join(dir, "cpu.stat")); err == nil {
		for _, line := range strings.Split(string(cpuStat), "\n") {
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[0] == "usage_usec" {
				s.CPUUsageUsec, _ = strconv.ParseUint(fields[1], 10, 64)
			}
		}
	}

	if mem, err := os.ReadFile(filepath.Join(dir, "memory.current")); err == nil {
		s.MemoryBytes, _ = strconv.ParseUint(strings.TrimSpace(string(mem)), 10, 64)
	}

	if ioStat, err := os.ReadFile(filepath.Join(dir, "io.stat")); err == nil {
		for _, line := range strings.Split(string(ioStat), "\n") {
			for _, field := range strings.Fields(line) {
				if v, ok := strings.CutPrefix(field, "rbytes="); ok {
					n, _ := strconv.ParseUint(v, 10, 64)
					s.IOBytes += n
				}
				if v, ok := strings.CutPrefix(field, "wbytes="); ok {
					n, _ := strconv.ParseUint(v, 10, 64)
					s.IOBytes += n
				}
			}
		}
	}

	return s
}

func writeCgroupFile(dir, name, value string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return ctsterr.Wrapf(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
			"failed to write %s: %s", path, err)
	}
	return nil
}
