// Package graph builds a directed dependency graph over a resolved
// composition, orders it into concurrent startup phases, and computes the
// auto-injected connection variables every component sees at deploy time.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/ctstlang"
	"github.com/docker/go-connections/nat"
)

// Phase is a set of component names that may be started concurrently; every
// component in phase N depends only on components in phases 0..N-1.
type Phase struct {
	Components []string
}

// Plan is the output of Build: the phased startup order, per-component
// auto-injected environment variables, and the host-port exposure map.
type Plan struct {
	Phases  []Phase
	EnvVars map[string][]EnvVar // component name -> injected vars
	Exposed []ctstlang.ExposedPort
}

// EnvVar is one auto-injected `<PREFIX>_*` environment variable.
type EnvVar struct {
	Key   string
	Value string
}

// EnvForComponent returns the plan's injected vars for name merged as a map,
// for callers that want direct lookups rather than the ordered slice.
func (p *Plan) EnvForComponent(name string) map[string]string {
	out := make(map[string]string, len(p.EnvVars[name]))
	for _, ev := range p.EnvVars[name] {
		out[ev.Key] = ev.Value
	}
	return out
}

// Build computes phases by Kahn's algorithm over comp's connection edges and
// the auto-injected `<PREFIX>_HOST/_PORT/_CONNECTION_STRING` vars for every
// edge. A connection-edge cycle not already caught by internal/ctstlang's
// per-file detection (e.g. one that only forms once separately-declared
// files' edges are unioned) is rejected with E004.
func Build(comp *ctstlang.Composition) (*Plan, error) {
	byName := make(map[string]ctstlang.Component, len(comp.Components))
	for _, c := range comp.Components {
		byName[c.Name] = c
	}

	// adjacency: source depends on target, so target must start first.
	dependsOn := make(map[string][]string, len(byName))
	for name := range byName {
		dependsOn[name] = nil
	}
	for _, e := range comp.Connects {
		dependsOn[e.Source] = append(dependsOn[e.Source], e.Target)
	}

	phases, err := kahnPhases(dependsOn)
	if err != nil {
		return nil, err
	}

	envVars := make(map[string][]EnvVar, len(byName))
	for _, e := range comp.Connects {
		tgt, ok := byName[e.Target]
		if !ok {
			continue
		}
		vars, err := injectedVars(tgt)
		if err != nil {
			return nil, err
		}
		existing := byName[e.Source].Env
		for _, v := range vars {
			if _, overridden := existing[v.Key]; overridden {
				continue
			}
			envVars[e.Source] = append(envVars[e.Source], v)
		}
	}

	return &Plan{Phases: phases, EnvVars: envVars, Exposed: comp.Exposes}, nil
}

// kahnPhases runs Kahn's algorithm, grouping same-round zero-in-degree nodes
// into a single phase instead of a single flat order: phase 0 is every node
// with in-degree zero, phase 1 is every node that becomes in-degree zero
// once phase 0 is removed, and so on.
func kahnPhases(dependsOn map[string][]string) ([]Phase, error) {
	inDegree := make(map[string]int, len(dependsOn))
	dependents := make(map[string][]string, len(dependsOn)) // target -> sources depending on it
	for name := range dependsOn {
		inDegree[name] = 0
	}
	for src, deps := range dependsOn {
		inDegree[src] = len(deps)
		for _, tgt := range deps {
			dependents[tgt] = append(dependents[tgt], src)
		}
	}

	remaining := len(inDegree)
	var phases []Phase
	for remaining > 0 {
		var frontier []string
		for name, degree := range inDegree {
			if degree == 0 {
				frontier = append(frontier, name)
			}
		}
		if len(frontier) == 0 {
			return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeCyclicDependency,
				"circular CONNECT dependency across the composition")
		}
		sort.Strings(frontier)
		phases = append(phases, Phase{Components: frontier})

		for _, name := range frontier {
			delete(inDegree, name)
			remaining--
		}
		for _, name := range frontier {
			for _, dependent := range dependents[name] {
				if _, stillPending := inDegree[dependent]; stillPending {
					inDegree[dependent]--
				}
			}
		}
	}
	return phases, nil
}

// injectedVars computes the three auto-injected vars for a dependency edge
// targeting tgt, per spec: <PREFIX>_HOST, <PREFIX>_PORT (first declared
// port), <PREFIX>_CONNECTION_STRING (protocol inferred from tgt's image
// URI).
func injectedVars(tgt ctstlang.Component) ([]EnvVar, error) {
	if len(tgt.Ports) > 0 {
		if _, _, err := nat.ParsePortRange(strconv.Itoa(tgt.Ports[0])); err != nil {
			return nil, ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeTypeMismatch,
				"component %q has an out-of-range port: %s", tgt.Name, err)
		}
	}

	prefix := envPrefix(tgt.Name)
	host, port, connStr := ConnectionFields(tgt)

	vars := []EnvVar{{Key: prefix + "_HOST", Value: host}}
	if port != 0 {
		vars = append(vars, EnvVar{Key: prefix + "_PORT", Value: strconv.Itoa(port)})
	}
	vars = append(vars, EnvVar{Key: prefix + "_CONNECTION_STRING", Value: connStr})
	return vars, nil
}

// ConnectionFields computes the host, port, and protocol-qualified
// connection string a dependent sees for tgt: the same triple
// injectedVars turns into <PREFIX>_* environment variables, and the one
// internal/runtime resolves directly for `${component.host}` /
// `${component.port}` / `${component.connection_string}` interpolation
// (the component-name namespace is runtime-resolved to the live address;
// the planner only records the logical hostname, which today is the
// component's own name).
func ConnectionFields(tgt ctstlang.Component) (host string, port int, connectionString string) {
	host = tgt.Name
	if len(tgt.Ports) > 0 {
		port = tgt.Ports[0]
	}
	proto := inferProtocol(tgt.ImageURI)
	if port != 0 {
		connectionString = fmt.Sprintf("%s://%s:%d", proto, host, port)
	} else {
		connectionString = fmt.Sprintf("%s://%s", proto, host)
	}
	return host, port, connectionString
}

// envPrefix upper-cases name and replaces '-'/'.' with '_', per spec.
func envPrefix(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r == '-' || r == '.' {
			sb.WriteByte('_')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// protocolRules is ordered: the first substring match against the image URI
// wins, per spec.md S4.2.
var protocolRules = []struct {
	substrs []string
	proto   string
}{
	{[]string{"postgres"}, "postgres"},
	{[]string{"mysql", "mariadb"}, "mysql"},
	{[]string{"redis"}, "redis"},
	{[]string{"mongo"}, "mongodb"},
	{[]string{"rabbitmq", "amqp"}, "amqp"},
}

func inferProtocol(imageURI string) string {
	lower := strings.ToLower(imageURI)
	for _, rule := range protocolRules {
		for _, s := range rule.substrs {
			if strings.Contains(lower, s) {
				return rule.proto
			}
		}
	}
	return "http"
}
