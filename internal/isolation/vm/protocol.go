// Package vm implements internal/isolation.Backend by forwarding every
// operation as a JSON-RPC request to cmd/ctst-guestagent, running inside a
// disposable Linux guest launched by github.com/lima-vm/lima. It is the
// fallback backend on hosts that cannot create Linux namespaces directly.
package vm

import "github.com/containust/containust/internal/isolation"

// ServiceName is the net/rpc service name cmd/ctst-guestagent registers
// its GuestAgent under; callers dial and invoke "GuestAgent.<Method>".
const ServiceName = "GuestAgent"

// CreateArgs/CreateReply and friends mirror isolation.Backend's own
// signatures almost exactly: net/rpc requires each method to take exactly
// one argument and one pointer reply, so every call here is a small
// struct wrapping the equivalent Backend parameters.

type CreateArgs struct {
	Config isolation.Config
}

type CreateReply struct {
	ID string
}

type StartArgs struct {
	ID string
}

type StartReply struct {
	PID int
}

type StopArgs struct {
	ID         string
	TimeoutSec float64
}

type StopReply struct{}

// ExecArgs carries captured stdin rather than a live stream: net/rpc has
// no notion of a long-lived duplex channel, so a guest exec call sends
// stdin whole and waits for the command to finish before returning
// whole stdout/stderr, trading interactive streaming for simplicity.
type ExecArgs struct {
	ID    string
	Cmd   []string
	Stdin []byte
	TTY   bool
}

type ExecReply struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

type RemoveArgs struct {
	ID string
}

type RemoveReply struct{}

type LogsArgs struct {
	ID string
}

type LogsReply struct {
	Data []byte
}

type ListArgs struct{}

type ListReply struct {
	Records []isolation.Record
}

type PingArgs struct{}

type PingReply struct {
	OK bool
}
