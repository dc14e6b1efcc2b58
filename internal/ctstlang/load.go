package ctstlang

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/containust/containust/internal/ctstlang/ast"
	"github.com/containust/containust/internal/ctstlang/lexer"
	"github.com/containust/containust/internal/ctstlang/parser"
)

// Options configures Load.
type Options struct {
	Offline  bool
	CacheDir string
}

// Load parses entryPath and every (possibly aliased) import it reaches,
// applies template inheritance, type-checks every component, and validates
// connection-edge and expose references — returning a fully resolved
// Composition and every diagnostic collected along the way. Validation runs
// to completion: a malformed component elsewhere in the file does not
// prevent diagnostics for the rest of it.
func Load(entryPath string, opts Options) (*Composition, Diagnostics) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		abs = entryPath
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, Diagnostics{{
			Code:     "E008",
			Severity: ast.SeverityError,
			Pos:      lexer.Pos{File: abs, Line: 1, Column: 1},
			Message:  fmt.Sprintf("could not read entry file: %s", err),
		}}
	}

	l := &loader{
		resolver: NewFileResolver(filepath.Dir(abs), opts.CacheDir, opts.Offline),
		decls:    map[string]Component{},
	}

	entryFile, diags := parser.Parse(abs, string(src))
	l.diags = append(l.diags, diags...)
	l.processFile(abs, entryFile, "", []string{abs})

	l.checkUnreachable()
	sort.Strings(l.order)

	comp := &Composition{EntryPath: abs, Connects: l.connects, Exposes: l.exposes}
	for _, name := range l.order {
		comp.Components = append(comp.Components, l.decls[name])
	}
	l.validateInterpolations(comp)

	return comp, l.diags
}

type loader struct {
	resolver Resolver
	diags    Diagnostics

	decls map[string]Component // namespaced name -> resolved component
	order []string             // insertion order, namespaced names

	connects []ConnectionEdge
	exposes  []ExposedPort
}

func (l *loader) errf(at lexer.Pos, code, format string, args ...interface{}) {
	l.diags = append(l.diags, ast.Diagnostic{
		Code: code, Severity: ast.SeverityError, Pos: at, Message: fmt.Sprintf(format, args...),
	})
}

func (l *loader) warnf(at lexer.Pos, code, format string, args ...interface{}) {
	l.diags = append(l.diags, ast.Diagnostic{
		Code: code, Severity: ast.SeverityWarning, Pos: at, Message: fmt.Sprintf(format, args...),
	})
}

func namespaced(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}

// processFile resolves one file's local components and recurses into its
// imports. FROM, CONNECT and EXPOSE references in a file resolve only
// against the components declared in that same file: a component brought
// in by an import, aliased or not, cannot be named by them.
func (l *loader) processFile(path string, file *ast.File, alias string, stack []string) {
	local := make(map[string]ast.ComponentDecl, len(file.Components))
	for _, decl := range file.Components {
		if _, dup := local[decl.Name]; dup {
			l.errf(decl.At, "E003", "duplicate component name %q in %s", decl.Name, path)
			continue
		}
		local[decl.Name] = decl
	}

	usedImport := make(map[int]bool)
	aliasAt := make(map[string]lexer.Pos, len(file.Imports))
	for i, imp := range file.Imports {
		if imp.Alias != "" {
			if _, dup := aliasAt[imp.Alias]; dup {
				l.errf(imp.At, "E011", "import alias %q already used in %s", imp.Alias, path)
				continue
			}
			aliasAt[imp.Alias] = imp.At
		}
		canonical, src, err := l.resolver.Resolve(path, imp.Path)
		if err != nil {
			l.errf(imp.At, "E008", "unresolved import %q: %s", imp.Path, err)
			continue
		}
		if containsStr(stack, canonical) {
			l.errf(imp.At, "E004", "cyclic import: %s -> %s", joinStr(stack), canonical)
			continue
		}
		subFile, diags := parser.Parse(canonical, src)
		l.diags = append(l.diags, diags...)
		if len(subFile.Components) > 0 {
			usedImport[i] = true
		}
		l.processFile(canonical, subFile, imp.Alias, append(stack, canonical))
	}
	for i, imp := range file.Imports {
		if !usedImport[i] {
			l.warnf(imp.At, "E009", "import %q is unused", imp.Path)
		}
	}

	for name, decl := range local {
		body, err := resolveInheritance(local, name)
		if err != nil {
			l.errf(decl.At, "E004", "%s", err)
			continue
		}
		comp := l.typecheckComponent(name, body)
		key := namespaced(alias, name)
		if _, dup := l.decls[key]; dup {
			l.errf(decl.At, "E003", "duplicate component name %q", key)
			continue
		}
		l.decls[key] = comp
		l.order = append(l.order, key)
	}

	for _, c := range file.Connects {
		if _, ok := local[c.Source]; !ok {
			l.errf(c.At, "E002", "undefined component reference %q in CONNECT", c.Source)
			continue
		}
		if _, ok := local[c.Target]; !ok {
			l.errf(c.At, "E002", "undefined component reference %q in CONNECT", c.Target)
			continue
		}
		l.connects = append(l.connects, ConnectionEdge{
			Source: namespaced(alias, c.Source),
			Target: namespaced(alias, c.Target),
		})
	}

	for _, e := range file.Exposes {
		if _, ok := local[e.Component]; !ok {
			l.errf(e.At, "E002", "undefined component reference %q in EXPOSE", e.Component)
			continue
		}
		l.exposes = append(l.exposes, ExposedPort{
			Component: namespaced(alias, e.Component),
			HostPort:  e.HostPort,
			CtrPort:   e.CtrPort,
		})
	}

	if err := detectConnectCycle(file.Connects); err != nil && len(file.Connects) > 0 {
		l.errf(file.Connects[0].At, "E004", "%s", err)
	}
}

// detectConnectCycle runs a DFS with on-stack marking over one file's local
// CONNECT edges and reports one cycle path, per E004's contract.
func detectConnectCycle(edges []ast.ConnectStmt) error {
	adj := map[string][]string{}
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	var path []string

	var visit func(n string) error
	visit = func(n string) error {
		color[n] = gray
		path = append(path, n)
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				cyclePath := append(append([]string{}, path...), next)
				return &cycleError{kind: "cyclic dependency", path: cyclePath}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return nil
	}

	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkUnreachable emits E010 warnings for components never referenced by a
// CONNECT edge or an EXPOSE statement.
func (l *loader) checkUnreachable() {
	referenced := make(map[string]bool, len(l.decls))
	for _, c := range l.connects {
		referenced[c.Source] = true
		referenced[c.Target] = true
	}
	for _, e := range l.exposes {
		referenced[e.Component] = true
	}
	for _, name := range l.order {
		if !referenced[name] {
			l.warnf(lexer.Pos{}, "E010", "component %q is unreachable: not referenced by CONNECT or EXPOSE", name)
		}
	}
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func joinStr(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " -> "
		}
		out += s
	}
	return out
}
