package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBuildSeccompProgramEndsInAllow(t *testing.T) {
	t.Parallel()

	prog := buildSeccompProgram(deniedSyscalls)
	require.NotEmpty(t, prog)

	last := prog[len(prog)-1]
	assert.Equal(t, uint16(unix.BPF_RET|unix.BPF_K), last.Code)
	assert.Equal(t, uint32(unix.SECCOMP_RET_ALLOW), last.K)
}

func TestBuildSeccompProgramCoversEveryDeniedSyscall(t *testing.T) {
	t.Parallel()

	prog := buildSeccompProgram(deniedSyscalls)

	seen := map[uint32]bool{}
	for _, insn := range prog {
		if insn.Code == uint16(unix.BPF_JMP|unix.BPF_JEQ|unix.BPF_K) {
			seen[insn.K] = true
		}
	}
	for _, nr := range deniedSyscalls {
		assert.True(t, seen[nr], "syscall %d missing a comparison instruction", nr)
	}
}

func TestBuildSeccompProgramStartsByLoadingSyscallNumber(t *testing.T) {
	t.Parallel()

	prog := buildSeccompProgram(nil)
	require.NotEmpty(t, prog)
	assert.Equal(t, uint16(unix.BPF_LD|unix.BPF_W|unix.BPF_ABS), prog[0].Code)
	assert.Equal(t, uint32(seccompDataNROffset), prog[0].K)
}
