// Package identity defines containust's validated identifier types: content
// hashes, container ids, and image ids. Values are constructed only through
// factories that reject malformed input, so a bare string never silently
// stands in for an unvalidated identifier.
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	digest "github.com/opencontainers/go-digest"
)

// ContentHash is a SHA-256 digest rendered as "sha256:<64hex>". It is the
// primary key for layers and images.
type ContentHash struct {
	d digest.Digest
}

// NewContentHash computes a ContentHash over b.
func NewContentHash(b []byte) ContentHash {
	return ContentHash{d: digest.FromBytes(b)}
}

// ParseContentHash validates s as a "sha256:<64hex>" digest string.
func ParseContentHash(s string) (ContentHash, error) {
	d, err := digest.Parse(s)
	if err != nil {
		return ContentHash{}, fmt.Errorf("invalid content hash %q: %w", s, err)
	}
	if d.Algorithm() != digest.SHA256 {
		return ContentHash{}, fmt.Errorf("invalid content hash %q: only sha256 is supported", s)
	}
	return ContentHash{d: d}, nil
}

// String renders the canonical "sha256:<64hex>" form.
func (h ContentHash) String() string { return h.d.String() }

// Hex returns the bare 64 lowercase hex characters, without the algorithm
// prefix.
func (h ContentHash) Hex() string { return h.d.Encoded() }

// IsZero reports whether h was never assigned a digest.
func (h ContentHash) IsZero() bool { return h.d == "" }

// Equal reports byte-equality of two content hashes.
func (h ContentHash) Equal(other ContentHash) bool { return h.d == other.d }

// HasPrefix reports whether the hex portion of h starts with prefix,
// case-insensitively, used for state-index prefix lookup.
func (h ContentHash) HasPrefix(prefix string) bool {
	return strings.HasPrefix(h.Hex(), strings.ToLower(prefix))
}

// MarshalText implements encoding.TextMarshaler for JSON persistence.
func (h ContentHash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler for JSON persistence.
func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ContainerID is an opaque textual identifier for a container, unique within
// the scope of one state index.
type ContainerID string

var containerIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// NewContainerID generates a random container id (UUIDv4).
func NewContainerID() ContainerID {
	return ContainerID(uuid.NewString())
}

// DerivedContainerID builds a container id from a component name, used when
// a caller wants a stable, human-recognisable id instead of a random UUID.
func DerivedContainerID(componentName string) (ContainerID, error) {
	id := ContainerID(strings.ToLower(componentName))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// ParseContainerID validates s as a container id.
func ParseContainerID(s string) (ContainerID, error) {
	id := ContainerID(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate reports whether the id is well-formed: non-empty, lowercase
// alphanumeric with '_', '.', '-' separators.
func (id ContainerID) Validate() error {
	if id == "" {
		return fmt.Errorf("container id must not be empty")
	}
	if !containerIDPattern.MatchString(string(id)) {
		return fmt.Errorf("invalid container id %q", id)
	}
	return nil
}

// String returns the underlying text.
func (id ContainerID) String() string { return string(id) }

// HasPrefix reports whether id starts with prefix, used for prefix lookup
// (unambiguous if at least 8 characters per the state index contract).
func (id ContainerID) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(id), strings.ToLower(prefix))
}

// ImageID is a ContentHash rooted at the top of an ordered layer stack: the
// content hash of the image's layer-hash list.
type ImageID struct {
	ContentHash
}

// NewImageID computes an ImageID over the ordered list of layer hashes
// (base first, overlay last), per spec.md's "hash of the ordered layer-hash
// list" definition.
func NewImageID(layers []ContentHash) ImageID {
	var sb strings.Builder
	for _, l := range layers {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	return ImageID{ContentHash: NewContentHash([]byte(sb.String()))}
}

// ParseImageID validates s as an image id ("sha256:<64hex>").
func ParseImageID(s string) (ImageID, error) {
	h, err := ParseContentHash(s)
	if err != nil {
		return ImageID{}, err
	}
	return ImageID{ContentHash: h}, nil
}
