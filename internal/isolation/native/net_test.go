package native

import (
	"errors"
	"io"
	"testing"

	"github.com/containust/containust/internal/isolation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseForwardsClosesEveryListener(t *testing.T) {
	t.Parallel()

	var closed int
	closers := []io.Closer{
		closerFunc(func() error { closed++; return nil }),
		closerFunc(func() error { closed++; return errors.New("already closed") }),
	}
	closeForwards(closers)
	assert.Equal(t, 2, closed)
}

func TestForwardPortsBindsAHostListenerPerPort(t *testing.T) {
	t.Parallel()

	closers, err := forwardPorts(1, []isolation.PortForward{{HostPort: 0, ContainerPort: 80}})
	require.NoError(t, err)
	defer closeForwards(closers)
	assert.Len(t, closers, 1)
}

func TestForwardPortsNoPortsReturnsEmpty(t *testing.T) {
	t.Parallel()

	closers, err := forwardPorts(1, nil)
	require.NoError(t, err)
	assert.Empty(t, closers)
}
