package runtime

import (
	"context"
	"io"
)

// Logs returns id's log stream exactly as the backend produces it. The
// native backend follows the container's log file; the vm backend proxies
// it from the guest agent. Closing the returned reader stops following.
func (e *Engine) Logs(ctx context.Context, id string) (io.ReadCloser, error) {
	return e.backend.Logs(ctx, id)
}
