// Package guestagent implements cmd/ctst-guestagent: a JSON-RPC server
// that runs inside a containust VM-mediated backend's Lima guest and
// drives the real native Linux backend on the guest's behalf, since the
// guest is itself an ordinary Linux host once it's running.
package guestagent

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"time"

	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/isolation/native"
	"github.com/containust/containust/internal/isolation/vm"
)

// GuestAgent exposes isolation.Backend over net/rpc, one method per
// Backend verb, using vm.ServiceName as its registered name so the host
// side's *rpc.Client.Call("GuestAgent.<Method>", ...) calls resolve.
type GuestAgent struct {
	backend isolation.Backend
}

func newGuestAgent(stateDir string) *GuestAgent {
	return newGuestAgentWithBackend(native.New(stateDir))
}

func newGuestAgentWithBackend(backend isolation.Backend) *GuestAgent {
	return &GuestAgent{backend: backend}
}

func (g *GuestAgent) Create(args vm.CreateArgs, reply *vm.CreateReply) error {
	id, err := g.backend.Create(context.Background(), args.Config)
	if err != nil {
		return err
	}
	reply.ID = id
	return nil
}

func (g *GuestAgent) Start(args vm.StartArgs, reply *vm.StartReply) error {
	pid, err := g.backend.Start(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.PID = pid
	return nil
}

func (g *GuestAgent) Stop(args vm.StopArgs, reply *vm.StopReply) error {
	timeout := time.Duration(args.TimeoutSec * float64(time.Second))
	return g.backend.Stop(context.Background(), args.ID, timeout)
}

func (g *GuestAgent) Exec(args vm.ExecArgs, reply *vm.ExecReply) error {
	var stdout, stderr bytes.Buffer
	streams := isolation.ExecIO{
		Stdout: &stdout,
		Stderr: &stderr,
		TTY:    args.TTY,
	}
	if len(args.Stdin) > 0 {
		streams.Stdin = bytes.NewReader(args.Stdin)
	}

	code, err := g.backend.Exec(context.Background(), args.ID, args.Cmd, streams)
	if err != nil {
		return err
	}
	reply.ExitCode = code
	reply.Stdout = stdout.Bytes()
	reply.Stderr = stderr.Bytes()
	return nil
}

func (g *GuestAgent) Remove(args vm.RemoveArgs, reply *vm.RemoveReply) error {
	return g.backend.Remove(context.Background(), args.ID)
}

func (g *GuestAgent) Logs(args vm.LogsArgs, reply *vm.LogsReply) error {
	rc, err := g.backend.Logs(context.Background(), args.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

func (g *GuestAgent) List(args vm.ListArgs, reply *vm.ListReply) error {
	records, err := g.backend.List(context.Background())
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

func (g *GuestAgent) Ping(args vm.PingArgs, reply *vm.PingReply) error {
	reply.OK = true
	return nil
}

// Execute parses flags and serves the guest agent until the process is
// killed: it returns only if listening or registration fails, and an
// Accept error is logged and the loop continues. cmd/ctst-guestagent's main is nothing
// but a call to this, mirroring the teacher's own thin agent entry point.
func Execute() error {
	port := flag.Int("port", 9771, "TCP port to listen on")
	stateDir := flag.String("state-dir", "/var/lib/containust", "container state root inside the guest")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", *port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", *port, err)
	}
	logger.Info("guest agent listening", "port", *port)

	server := rpc.NewServer()
	if err := server.RegisterName(vm.ServiceName, newGuestAgent(*stateDir)); err != nil {
		return fmt.Errorf("failed to register guest agent service: %w", err)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Error("accept failed", "error", err)
			continue
		}
		go server.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}
