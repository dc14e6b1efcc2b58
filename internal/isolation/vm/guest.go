package vm

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/lima-vm/lima/pkg/instance"
	"github.com/lima-vm/lima/pkg/limayaml"
	"github.com/lima-vm/lima/pkg/store"
)

// instanceName is the single Lima instance containust reuses across
// invocations; there is one guest per host, not one per container.
const instanceName = "containust"

// guestAgentPort is the TCP port cmd/ctst-guestagent listens on inside
// the guest; Lima forwards it to the same port number on the host
// loopback, which is where hostAddr dials.
const guestAgentPort = 9771

// limaInstalled reports whether the limactl binary this package drives
// is on PATH, the same check cuemby-warren's embedded Lima manager makes
// before attempting anything else.
func limaInstalled() bool {
	_, err := exec.LookPath("limactl")
	return err == nil
}

// ensureGuestRunning inspects the containust Lima instance, creating and
// starting it if absent, or starting it if stopped, then waits for the
// guest agent's forwarded port to answer.
func ensureGuestRunning(ctx context.Context) error {
	inst, err := store.Inspect(instanceName)
	if err != nil {
		if err := createInstance(ctx); err != nil {
			return err
		}
		inst, err = store.Inspect(instanceName)
		if err != nil {
			return ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
				"failed to inspect newly created guest instance")
		}
	}

	if inst.Status != store.StatusRunning {
		if err := instance.Start(ctx, inst, "", false); err != nil {
			return ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
				"failed to start guest instance")
		}
	}

	return waitForAgent(ctx)
}

// stopGuest gracefully stops the guest, forcing a stop if it doesn't
// respond in time. Called when containust's process exits, not per
// container: the guest persists across container lifecycles.
func stopGuest(ctx context.Context) error {
	inst, err := store.Inspect(instanceName)
	if err != nil {
		return nil
	}
	if err := instance.StopGracefully(ctx, inst, false); err != nil {
		slog.Default().Warn("graceful guest stop failed, forcing", "error", err)
		instance.StopForcibly(inst)
	}
	return nil
}

func createInstance(ctx context.Context) error {
	cfg := guestConfig()
	yamlBytes, err := limayaml.Marshal(&cfg, false)
	if err != nil {
		return ctsterr.Wrap(err, ctsterr.CategorySerialization, ctsterr.CodeStateWrite,
			"failed to encode guest configuration")
	}
	if _, err := instance.Create(ctx, instanceName, yamlBytes, false); err != nil {
		return ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure,
			"failed to create guest instance")
	}
	return nil
}

// guestConfig describes a minimal guest whose only job is to run
// cmd/ctst-guestagent and forward its RPC port to the host.
func guestConfig() limayaml.LimaYAML {
	cpus := 2
	memory := "2GiB"
	disk := "10GiB"

	return limayaml.LimaYAML{
		CPUs:   &cpus,
		Memory: &memory,
		Disk:   &disk,
		PortForwards: []limayaml.PortForward{
			{GuestPort: guestAgentPort},
		},
		Provision: []limayaml.Provision{
			{
				Mode: limayaml.ProvisionModeSystem,
				Script: fmt.Sprintf(
					"#!/bin/sh\nset -eux\n"+
						"if [ -x /usr/local/bin/ctst-guestagent ]; then\n"+
						"  /usr/local/bin/ctst-guestagent -port %d &\n"+
						"fi\n", guestAgentPort),
			},
		},
		Message: "containust guest — runs cmd/ctst-guestagent only",
	}
}

func waitForAgent(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctsterr.New(ctsterr.CategoryIO, ctsterr.CodeIOFailure,
				"timed out waiting for guest agent to become reachable")
		case <-ticker.C:
			if _, err := dial(); err == nil {
				return nil
			}
		}
	}
}
