// Package secrets resolves ${secret.name} references at deploy time and
// keeps resolved values out of logs and the state index.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/containust/containust/internal/ctsterr"
)

// Secret represents one resolved secret name/value pair. Values are never
// logged directly; use MaskingWriter/MaskString at any boundary where
// secret-bearing output could reach a log or the state index.
type Secret struct {
	Name  string
	Value []byte
}

// Resolver resolves ${secret.name} references against the process
// environment first, then a secrets directory on the host.
type Resolver struct {
	// SecretsDir may be empty, in which case only the environment-variable
	// source is consulted.
	SecretsDir string
}

// NewResolver creates a Resolver rooted at secretsDir.
func NewResolver(secretsDir string) *Resolver {
	return &Resolver{SecretsDir: secretsDir}
}

// Resolve returns the value for ${secret.name}: first from
// CONTAINUST_SECRET_<UPPER(name)>, else from <secrets-dir>/<name>. Missing
// in both places is a deploy-time error, per spec.md S4.5.
func (r *Resolver) Resolve(name string) (Secret, error) {
	envKey := "CONTAINUST_SECRET_" + strings.ToUpper(name)
	if v, ok := os.LookupEnv(envKey); ok {
		return Secret{Name: name, Value: []byte(v)}, nil
	}

	if r.SecretsDir != "" {
		path := filepath.Join(r.SecretsDir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return Secret{Name: name, Value: trimTrailingNewline(data)}, nil
		}
		if !os.IsNotExist(err) {
			return Secret{}, ctsterr.IOFailure(path, err)
		}
	}

	return Secret{}, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeConfigInvalid,
		fmt.Sprintf("secret %q is not set: define %s or create a file under the secrets directory", name, envKey))
}

// ResolveAll resolves every name in names. It stops at the first missing
// secret rather than collecting partial results — a missing secret must
// abort the deploy before any process is spawned.
func (r *Resolver) ResolveAll(names []string) ([]Secret, error) {
	out := make([]Secret, 0, len(names))
	for _, name := range names {
		s, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
