package native

import (
	"fmt"
	"io"
	"net"
	"runtime"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
	"github.com/vishvananda/netns"
)

// forwardPorts opens a host listener for each declared EXPOSE record and
// proxies accepted connections into the container's network namespace,
// since CLONE_NEWNET otherwise leaves the container reachable only from
// its own loopback. Returns the listeners so Stop/Remove can tear them
// down as part of container cleanup.
func forwardPorts(pid int, ports []isolation.PortForward) ([]io.Closer, error) {
	closers := make([]io.Closer, 0, len(ports))
	for _, p := range ports {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p.HostPort))
		if err != nil {
			closeForwards(closers)
			return nil, ctsterr.Wrapf(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
				"failed to bind host port %d: %s", p.HostPort, err)
		}
		go acceptForward(ln, pid, p.ContainerPort)
		closers = append(closers, ln)
	}
	return closers, nil
}

func closeForwards(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

func acceptForward(ln net.Listener, pid, containerPort int) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go proxyIntoNamespace(conn, pid, containerPort)
	}
}

// proxyIntoNamespace dials the container's loopback from inside its
// network namespace and splices bytes in both directions. Entering a
// namespace is thread-scoped, so the dial happens on a locked OS thread
// that restores the host's namespace before returning.
func proxyIntoNamespace(conn net.Conn, pid, containerPort int) {
	defer conn.Close()

	target, err := dialInNamespace(pid, containerPort)
	if err != nil {
		return
	}
	defer target.Close()

	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(target, conn); done <- struct{}{} }()
	go func() { _, _ = io.Copy(conn, target); done <- struct{}{} }()
	<-done
}

func dialInNamespace(pid, containerPort int) (net.Conn, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hostNS, err := netns.Get()
	if err != nil {
		return nil, err
	}
	defer hostNS.Close()

	targetNS, err := netns.GetFromPid(pid)
	if err != nil {
		return nil, err
	}
	defer targetNS.Close()

	if err := netns.Set(targetNS); err != nil {
		return nil, err
	}
	defer netns.Set(hostNS)

	return net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", containerPort))
}
