package vm

import (
	"context"
	"fmt"
	"io"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
)

// hostAddr is where the guest's forwarded RPC port answers once Lima has
// brought the guest up; Lima forwards a guest port to the same port
// number on the host loopback unless it's already taken.
func hostAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", guestAgentPort)
}

func dial() (*rpc.Client, error) {
	conn, err := jsonrpc.Dial("tcp", hostAddr())
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Backend implements isolation.Backend by forwarding every call to
// cmd/ctst-guestagent over JSON-RPC, starting the Lima guest on first use.
type Backend struct {
	mu     sync.Mutex
	client *rpc.Client
}

// New returns a VM-mediated Backend. The guest is not launched until the
// first method call that needs the guest agent (any verb but IsAvailable).
func New() *Backend {
	return &Backend{}
}

// IsAvailable reports whether Lima is installed; it does not launch a
// guest, since probing availability should stay cheap.
func (b *Backend) IsAvailable() bool {
	return limaInstalled()
}

func (b *Backend) rpcClient(ctx context.Context) (*rpc.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	if err := ensureGuestRunning(ctx); err != nil {
		return nil, err
	}
	client, err := dial()
	if err != nil {
		return nil, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
			"failed to connect to guest agent")
	}
	b.client = client
	return client, nil
}

func (b *Backend) Create(ctx context.Context, cfg isolation.Config) (string, error) {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return "", err
	}
	var reply CreateReply
	if err := client.Call(ServiceName+".Create", CreateArgs{Config: cfg}, &reply); err != nil {
		return "", rpcError(err)
	}
	return reply.ID, nil
}

func (b *Backend) Start(ctx context.Context, id string) (int, error) {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return 0, err
	}
	var reply StartReply
	if err := client.Call(ServiceName+".Start", StartArgs{ID: id}, &reply); err != nil {
		return 0, rpcError(err)
	}
	return reply.PID, nil
}

func (b *Backend) Stop(ctx context.Context, id string, timeout time.Duration) error {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return err
	}
	var reply StopReply
	args := StopArgs{ID: id, TimeoutSec: timeout.Seconds()}
	if err := client.Call(ServiceName+".Stop", args, &reply); err != nil {
		return rpcError(err)
	}
	return nil
}

// Exec sends cmd and any buffered stdin in one
// request, blocking until the guest reports the command has exited, then
// writes the captured stdout/stderr to streams: see ExecArgs for why this
// trades interactive streaming for a simple request/response shape.
func (b *Backend) Exec(ctx context.Context, id string, cmd []string, streams isolation.ExecIO) (int, error) {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return -1, err
	}

	var stdin []byte
	if streams.Stdin != nil {
		stdin, err = io.ReadAll(streams.Stdin)
		if err != nil {
			return -1, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to read exec stdin")
		}
	}

	var reply ExecReply
	args := ExecArgs{ID: id, Cmd: cmd, Stdin: stdin, TTY: streams.TTY}
	if err := client.Call(ServiceName+".Exec", args, &reply); err != nil {
		return -1, rpcError(err)
	}

	if streams.Stdout != nil && len(reply.Stdout) > 0 {
		_, _ = streams.Stdout.Write(reply.Stdout)
	}
	if streams.Stderr != nil && len(reply.Stderr) > 0 {
		_, _ = streams.Stderr.Write(reply.Stderr)
	}
	return reply.ExitCode, nil
}

func (b *Backend) Remove(ctx context.Context, id string) error {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return err
	}
	var reply RemoveReply
	if err := client.Call(ServiceName+".Remove", RemoveArgs{ID: id}, &reply); err != nil {
		return rpcError(err)
	}
	return nil
}

func (b *Backend) Logs(ctx context.Context, id string) (io.ReadCloser, error) {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var reply LogsReply
	if err := client.Call(ServiceName+".Logs", LogsArgs{ID: id}, &reply); err != nil {
		return nil, rpcError(err)
	}
	return io.NopCloser(strings.NewReader(string(reply.Data))), nil
}

func (b *Backend) List(ctx context.Context) ([]isolation.Record, error) {
	client, err := b.rpcClient(ctx)
	if err != nil {
		return nil, err
	}
	var reply ListReply
	if err := client.Call(ServiceName+".List", ListArgs{}, &reply); err != nil {
		return nil, rpcError(err)
	}
	return reply.Records, nil
}

// Close tears down the RPC connection and stops the guest; containust
// calls this on process exit, not per container.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.mu.Unlock()

	if client != nil {
		_ = client.Close()
	}
	return stopGuest(ctx)
}

// rpcError wraps a transport/business error from the guest agent into
// containust's own error taxonomy; business errors returned by the guest
// arrive as plain strings through net/rpc, so both kinds become the same
// CategoryIO error. Nothing is retried here; internal/runtime owns retry
// policy.
func rpcError(err error) error {
	return ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "guest agent call failed")
}
