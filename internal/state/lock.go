package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/containust/containust/internal/ctsterr"
)

// Lock is an advisory, PID-holder lock file guarding one project's index.
// Acquire is create-exclusive; a lock held by a pid no longer present under
// /proc is considered stale and reclaimed after a short grace delay.
type Lock struct {
	path string
}

// NewLock returns a Lock for the file at path (conventionally
// "<index>.lock", sibling to the index JSON file it guards).
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire blocks with back-off until the lock is held or timeout elapses.
func (l *Lock) Acquire(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		err := l.tryCreate()
		if err == nil {
			return nil
		}
		if !os.IsExist(err) {
			return ctsterr.IOFailure(l.path, err)
		}

		if l.reclaimIfStale() {
			continue
		}

		if time.Now().After(deadline) {
			return ctsterr.New(ctsterr.CategoryIO, ctsterr.CodeIOFailure,
				fmt.Sprintf("timed out waiting for lock %s", l.path))
		}
		time.Sleep(backoff)
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}

// Release removes the lock file. It is a caller error to call Release
// without holding the lock, but Release is idempotent against an
// already-removed file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return ctsterr.IOFailure(l.path, err)
	}
	return nil
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d", os.Getpid())
	return err
}

// reclaimIfStale removes the lock file and reports true if its holder pid is
// no longer present under /proc. A short delay before the /proc check
// avoids racing a holder that has just barely created the file.
func (l *Lock) reclaimIfStale() bool {
	time.Sleep(5 * time.Millisecond)

	data, err := os.ReadFile(l.path)
	if err != nil {
		return false // file vanished (released concurrently); retry Acquire
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}

	if processAlive(pid) {
		return false
	}

	_ = os.Remove(l.path)
	return true
}

func processAlive(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}
