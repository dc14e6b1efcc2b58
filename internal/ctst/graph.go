package ctst

import (
	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/graph"
)

// ResolvedGraph is a composition file loaded and phase-ordered: everything
// an Engine needs to Deploy or Shutdown it.
type ResolvedGraph struct {
	Composition *ctstlang.Composition
	Plan        *graph.Plan
}

// GraphResolver loads `.ctst` composition files into phase-ordered
// deployment plans.
type GraphResolver struct {
	opts ctstlang.Options
}

// NewGraphResolver creates a GraphResolver. offline forbids fetching
// https:// imports; cacheDir is where fetched imports are cached across
// resolutions. Image sources are not fetched or cached by the resolver.
func NewGraphResolver(cacheDir string, offline bool) *GraphResolver {
	return &GraphResolver{opts: ctstlang.Options{CacheDir: cacheDir, Offline: offline}}
}

// Resolve loads entryPath and every file it imports, type-checks every
// component, and computes its deployment-phase ordering. A composition
// with only warnings resolves successfully; one with any error diagnostic
// does not.
func (r *GraphResolver) Resolve(entryPath string) (*ResolvedGraph, error) {
	comp, diags := ctstlang.Load(entryPath, r.opts)
	if diags.HasErrors() {
		return nil, diags.Errors()
	}

	plan, err := graph.Build(comp)
	if err != nil {
		return nil, err
	}
	return &ResolvedGraph{Composition: comp, Plan: plan}, nil
}
