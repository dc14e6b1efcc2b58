package ctstlang

import (
	"fmt"
	"sort"
	"strings"

	"github.com/containust/containust/internal/ctstlang/lexer"
)

// InterpolationRef is one `${ns.field}` occurrence found inside a string
// value. Resolution happens at deploy time (internal/graph for
// component-name references, internal/runtime for secret/env references);
// this package only validates syntax and, for component-name references,
// that the target exists.
type InterpolationRef struct {
	Namespace string
	Field     string
}

// ExtractInterpolations scans s for `${ns.field}` forms, rejecting nested
// interpolation (`${...${...}...}`).
func ExtractInterpolations(s string) ([]InterpolationRef, error) {
	var refs []InterpolationRef
	i := 0
	for {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			return refs, nil
		}
		start += i
		end := strings.Index(s[start+2:], "}")
		if end < 0 {
			return refs, fmt.Errorf("unterminated interpolation in %q", s)
		}
		end += start + 2
		inner := s[start+2 : end]
		if strings.Contains(inner, "${") {
			return refs, fmt.Errorf("nested interpolation is forbidden: %q", s)
		}
		dot := strings.Index(inner, ".")
		if dot < 0 {
			return refs, fmt.Errorf("malformed interpolation %q, expected ns.field", inner)
		}
		refs = append(refs, InterpolationRef{Namespace: inner[:dot], Field: inner[dot+1:]})
		i = end + 1
	}
}

// ReferencedSecrets returns the deduplicated, sorted set of secret names
// every component's interpolatable fields reference (`${secret.<name>}`).
// Callers that need to know a composition's full secret surface ahead of
// deploy time — e.g. to mask them out of a log stream read back from a
// separate process invocation — use this instead of re-deriving it.
func ReferencedSecrets(comp *Composition) []string {
	seen := map[string]bool{}
	add := func(s string) {
		refs, err := ExtractInterpolations(s)
		if err != nil {
			return
		}
		for _, r := range refs {
			if r.Namespace == "secret" {
				seen[r.Field] = true
			}
		}
	}

	for _, c := range comp.Components {
		add(c.ImageURI)
		add(c.WorkDir)
		add(c.User)
		add(c.Hostname)
		for _, s := range c.Command {
			add(s)
		}
		for _, s := range c.Entrypoint {
			add(s)
		}
		for _, v := range c.Env {
			add(v)
		}
		for _, v := range c.Volumes {
			add(v.HostPath)
			add(v.ContainerPath)
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// validateInterpolations walks every string-bearing field of every resolved
// component and checks that component-name references resolve within the
// composition; secret.* and env.* references are left for deploy time.
func (l *loader) validateInterpolations(comp *Composition) {
	known := make(map[string]bool, len(comp.Components))
	for _, c := range comp.Components {
		known[c.Name] = true
	}

	check := func(s string) {
		refs, err := ExtractInterpolations(s)
		if err != nil {
			l.errf(lexer.Pos{}, "E001", "%s", err)
			return
		}
		for _, r := range refs {
			if r.Namespace == "secret" || r.Namespace == "env" {
				continue
			}
			if !known[r.Namespace] {
				l.errf(lexer.Pos{}, "E002", "interpolation references undefined component %q", r.Namespace)
			}
		}
	}

	for _, c := range comp.Components {
		check(c.ImageURI)
		check(c.WorkDir)
		check(c.User)
		check(c.Hostname)
		for _, s := range c.Command {
			check(s)
		}
		for _, s := range c.Entrypoint {
			check(s)
		}
		for _, v := range c.Env {
			check(v)
		}
		for _, v := range c.Volumes {
			check(v.HostPath)
			check(v.ContainerPath)
		}
	}
}
