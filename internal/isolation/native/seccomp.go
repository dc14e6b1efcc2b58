package native

import (
	"unsafe"

	"github.com/containust/containust/internal/ctsterr"
	"golang.org/x/sys/unix"
)

// deniedSyscalls is the historically dangerous subset a containerised
// process is denied, regardless of its capability set: these let a
// process escape or reconfigure the kernel in ways namespaces and
// capability dropping alone don't prevent.
var deniedSyscalls = []uint32{
	unix.SYS_PTRACE,
	unix.SYS_MOUNT,
	unix.SYS_UMOUNT2,
	unix.SYS_PIVOT_ROOT,
	unix.SYS_REBOOT,
	unix.SYS_SWAPON,
	unix.SYS_SWAPOFF,
	unix.SYS_INIT_MODULE,
	unix.SYS_DELETE_MODULE,
	unix.SYS_KEXEC_LOAD,
	unix.SYS_SETNS,
	unix.SYS_UNSHARE,
}

// seccompDataNROffset is offsetof(struct seccomp_data, nr): the syscall
// number is the struct's first 4-byte field.
const seccompDataNROffset = 0

// applySeccomp installs a classic-BPF seccomp filter in the calling
// process that returns EPERM for deniedSyscalls and allows everything
// else. Called from MaybeRunAsInit after the capability drop, so it
// applies to the exact process tree that will run the declared command.
func applySeccomp() error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return ctsterr.Wrap(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
			"failed to set no_new_privs")
	}

	prog := buildSeccompProgram(deniedSyscalls)
	fprog := unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}
	if err := unix.Prctl(unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&fprog)), 0, 0); err != nil {
		return ctsterr.Wrap(err, ctsterr.CategoryPermissionDenied, ctsterr.CodePermissionDenied,
			"failed to install seccomp filter")
	}
	return nil
}

// buildSeccompProgram assembles a BPF program loading the syscall number,
// comparing it against each denied syscall (return EPERM on match), and
// falling through to SECCOMP_RET_ALLOW.
func buildSeccompProgram(denied []uint32) []unix.SockFilter {
	prog := []unix.SockFilter{
		{Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS, K: seccompDataNROffset},
	}
	for _, nr := range denied {
		// Jump 0 insns (fall through to the errno return) on match, 1 insn
		// (over it, to the next comparison) on mismatch; the final ALLOW
		// return sits right after the last pair.
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			K:    nr,
			Jt:   0,
			Jf:   1,
		}, unix.SockFilter{
			Code: unix.BPF_RET | unix.BPF_K,
			K:    unix.SECCOMP_RET_ERRNO | (uint32(unix.EPERM) & unix.SECCOMP_RET_DATA),
		})
	}
	prog = append(prog, unix.SockFilter{Code: unix.BPF_RET | unix.BPF_K, K: unix.SECCOMP_RET_ALLOW})
	return prog
}
