package runtime

import (
	"context"
	"time"

	"github.com/containust/containust/internal/backoff"
	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation"
)

// retryAttempts bounds how many times RetryBackend attempts a single call,
// the first try included, before giving up and returning the last error.
const retryAttempts = 3

// RetryBackend wraps an isolation.Backend, retrying operations that fail
// with a ctsterr.CategoryIO error using internal/backoff's default
// sequence. Only Create, Start and Remove are retried; the other verbs
// pass straight through. Only I/O-classified failures are retried: a
// config or not-found error is never transient, so retrying it would only
// delay reporting a real problem. The VM backend's errors cross a net/rpc
// connection and lose their original ctsterr category in the process
// (net/rpc only carries the error string); the VM backend wraps every
// failed guest agent call as a CategoryIO error, so for a VM backend every
// failed Create, Start or Remove is retried, whatever its cause.
type RetryBackend struct {
	isolation.Backend
}

func isRetryable(err error) bool {
	return err != nil && ctsterr.GetCategory(err) == ctsterr.CategoryIO
}

func retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		err = fn()
		if !isRetryable(err) {
			return err
		}
		delay := backoff.Default.Next(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

func (b RetryBackend) Create(ctx context.Context, cfg isolation.Config) (string, error) {
	var id string
	err := retry(ctx, func() error {
		var e error
		id, e = b.Backend.Create(ctx, cfg)
		return e
	})
	return id, err
}

func (b RetryBackend) Start(ctx context.Context, id string) (int, error) {
	var pid int
	err := retry(ctx, func() error {
		var e error
		pid, e = b.Backend.Start(ctx, id)
		return e
	})
	return pid, err
}

func (b RetryBackend) Remove(ctx context.Context, id string) error {
	return retry(ctx, func() error { return b.Backend.Remove(ctx, id) })
}
