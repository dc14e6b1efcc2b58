package state

import (
	"time"

	"github.com/containust/containust/internal/identity"
)

// Limits mirrors the resource limits a container was created with, so
// they can be read back from the index without having to re-parse the
// composition file. A nil pointer means the limit was left unset (inherit
// the backend's default) rather than explicitly set to zero.
type Limits struct {
	MemoryBytes *int64 `json:"memory_bytes"`
	CPUShares   *int64 `json:"cpu_shares"`
}

// Record is one container's persisted entry in the project's state index.
// Image is the resolved ImageID (a content hash over the container's
// ordered layer stack), never the source image URI it was built from, so a
// record always names a previously materialised image.
type Record struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Image     identity.ImageID `json:"image"`
	State     ContainerState   `json:"state"`
	PID       int              `json:"pid,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Limits    Limits           `json:"limits"`
}
