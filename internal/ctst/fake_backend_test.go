package ctst

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/containust/containust/internal/isolation"
)

// fakeBackend is a minimal thread-safe isolation.Backend stand-in, mirroring
// internal/runtime's own test fake, scoped down to what Engine's thin
// delegation needs exercised.
type fakeBackend struct {
	mu      sync.Mutex
	created map[string]isolation.Config
	running map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		created: make(map[string]isolation.Config),
		running: make(map[string]bool),
	}
}

func (f *fakeBackend) Create(_ context.Context, cfg isolation.Config) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[cfg.ID] = cfg
	return cfg.ID, nil
}

func (f *fakeBackend) Start(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[id] = true
	return 1234, nil
}

func (f *fakeBackend) Stop(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[id] = false
	return nil
}

func (f *fakeBackend) Exec(_ context.Context, _ string, _ []string, _ isolation.ExecIO) (int, error) {
	return 0, nil
}

func (f *fakeBackend) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.created, id)
	delete(f.running, id)
	return nil
}

func (f *fakeBackend) Logs(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func (f *fakeBackend) List(_ context.Context) ([]isolation.Record, error) {
	return nil, nil
}

func (f *fakeBackend) IsAvailable() bool { return true }
