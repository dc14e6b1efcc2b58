package ctstlang

import "github.com/containust/containust/internal/ctstlang/ast"

// mergeBodies applies template inheritance merge rules: scalar properties in
// child replace parent's; map-valued properties are deep-merged (child keys
// win, parent-only keys survive); list-valued properties are replaced
// wholesale, never appended.
func mergeBodies(parent, child ast.MapValue) ast.MapValue {
	merged := ast.MapValue{At: child.At}
	seen := make(map[string]bool, len(child.Entries))

	for _, childEntry := range child.Entries {
		seen[childEntry.Key] = true
		if parentVal, ok := parent.Get(childEntry.Key); ok {
			merged.Entries = append(merged.Entries, ast.Assignment{
				Key:   childEntry.Key,
				Value: mergeValue(parentVal, childEntry.Value),
				At:    childEntry.At,
			})
			continue
		}
		merged.Entries = append(merged.Entries, childEntry)
	}

	for _, parentEntry := range parent.Entries {
		if !seen[parentEntry.Key] {
			merged.Entries = append(merged.Entries, parentEntry)
		}
	}

	return merged
}

func mergeValue(parent, child ast.Value) ast.Value {
	parentMap, parentIsMap := parent.(ast.MapValue)
	childMap, childIsMap := child.(ast.MapValue)
	if parentIsMap && childIsMap {
		return mergeBodies(parentMap, childMap)
	}
	// Lists and scalars: child always wins wholesale.
	return child
}

// resolveInheritance walks each component's FROM chain (root-first) and
// returns the fully merged body, or an error if the chain is circular.
func resolveInheritance(decls map[string]ast.ComponentDecl, name string) (ast.MapValue, error) {
	chain, err := inheritanceChain(decls, name, nil)
	if err != nil {
		return ast.MapValue{}, err
	}

	merged := decls[chain[0]].Body
	for _, n := range chain[1:] {
		merged = mergeBodies(merged, decls[n].Body)
	}
	return merged, nil
}

func inheritanceChain(decls map[string]ast.ComponentDecl, name string, visiting []string) ([]string, error) {
	for _, v := range visiting {
		if v == name {
			return nil, &cycleError{kind: "template inheritance", path: append(append([]string{}, visiting...), name)}
		}
	}
	decl, ok := decls[name]
	if !ok {
		return nil, &cycleError{kind: "undefined base component", path: []string{name}}
	}
	if decl.From == "" {
		return []string{name}, nil
	}
	base, err := inheritanceChain(decls, decl.From, append(visiting, name))
	if err != nil {
		return nil, err
	}
	return append(base, name), nil
}

type cycleError struct {
	kind string
	path []string
}

func (e *cycleError) Error() string {
	s := e.kind + ": "
	for i, p := range e.path {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}
