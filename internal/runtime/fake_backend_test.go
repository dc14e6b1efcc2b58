package runtime

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/containust/containust/internal/isolation"
)

// fakeBackend is a thread-safe in-memory isolation.Backend stand-in for
// exercising internal/runtime without real namespaces, mirroring
// internal/guestagent's own fakeBackend.
type fakeBackend struct {
	mu sync.Mutex

	created map[string]isolation.Config
	running map[string]bool
	exitCode map[string]*int
	execCode  int
	execErr   error
	createErr error
	startErr  error

	execCalls  []string
	execOutput string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		created:  make(map[string]isolation.Config),
		running:  make(map[string]bool),
		exitCode: make(map[string]*int),
	}
}

func (f *fakeBackend) Create(_ context.Context, cfg isolation.Config) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created[cfg.ID] = cfg
	return cfg.ID, nil
}

func (f *fakeBackend) Start(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.running[id] = true
	f.exitCode[id] = nil
	return 1234, nil
}

func (f *fakeBackend) Stop(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[id] = false
	return nil
}

func (f *fakeBackend) Exec(_ context.Context, id string, cmd []string, execIO isolation.ExecIO) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls = append(f.execCalls, id+":"+strings.Join(cmd, " "))
	if f.execOutput != "" && execIO.Stdout != nil {
		_, _ = execIO.Stdout.Write([]byte(f.execOutput))
	}
	return f.execCode, f.execErr
}

func (f *fakeBackend) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.created, id)
	delete(f.running, id)
	delete(f.exitCode, id)
	return nil
}

func (f *fakeBackend) Logs(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeBackend) List(context.Context) ([]isolation.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []isolation.Record
	for id, running := range f.running {
		out = append(out, isolation.Record{ID: id, Running: running, ExitCode: f.exitCode[id]})
	}
	return out, nil
}

func (f *fakeBackend) IsAvailable() bool { return true }

// setExited marks id as no longer running with the given exit code,
// simulating the native backend's reaper having observed its exit.
func (f *fakeBackend) setExited(id string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[id] = false
	c := code
	f.exitCode[id] = &c
}
