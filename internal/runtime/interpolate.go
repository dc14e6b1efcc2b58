package runtime

import (
	"os"
	"strconv"
	"strings"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/graph"
)

// resolveInterpolations substitutes every `${ns.field}` occurrence in s.
// `${secret.name}` resolves through the engine's secrets.Resolver;
// `${env.name}` reads the engine process's own environment, not the
// container's, which does not exist yet at this point; any other
// namespace is resolved as a component name, exposing the same
// host/port/connection_string triple graph.ConnectionFields computes for
// auto-injected env vars. internal/ctstlang has already validated at parse
// time that component-name namespaces refer to a declared component; this
// is the deploy-time resolution ctstlang.ExtractInterpolations defers.
func (e *Engine) resolveInterpolations(s string, comp *ctstlang.Composition) (string, error) {
	if s == "" {
		return s, nil
	}
	refs, err := ctstlang.ExtractInterpolations(s)
	if err != nil {
		return "", err
	}

	out := s
	for _, r := range refs {
		token := "${" + r.Namespace + "." + r.Field + "}"
		value, err := e.resolveRef(r, comp)
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, token, value)
	}
	return out, nil
}

func (e *Engine) resolveRef(r ctstlang.InterpolationRef, comp *ctstlang.Composition) (string, error) {
	switch r.Namespace {
	case "secret":
		sec, err := e.secrets.Resolve(r.Field)
		if err != nil {
			return "", err
		}
		e.recordSecret(sec)
		return string(sec.Value), nil
	case "env":
		return os.Getenv(r.Field), nil
	default:
		return resolveComponentRef(r, comp)
	}
}

func resolveComponentRef(r ctstlang.InterpolationRef, comp *ctstlang.Composition) (string, error) {
	target, ok := comp.ByName(r.Namespace)
	if !ok {
		return "", ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeUndefinedReference,
			"interpolation references undefined component %q", r.Namespace)
	}
	host, port, connStr := graph.ConnectionFields(target)
	switch r.Field {
	case "host":
		return host, nil
	case "port":
		if port == 0 {
			return "", ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeMissingProperty,
				"component %q has no declared port for ${%s.port}", r.Namespace, r.Namespace)
		}
		return strconv.Itoa(port), nil
	case "connection_string":
		return connStr, nil
	default:
		return "", ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeUndefinedReference,
			"unknown interpolation field %q on component %q", r.Field, r.Namespace)
	}
}

// resolveStrings applies resolveInterpolations over every element of ss.
func (e *Engine) resolveStrings(ss []string, comp *ctstlang.Composition) ([]string, error) {
	out := make([]string, len(ss))
	for i, s := range ss {
		r, err := e.resolveInterpolations(s, comp)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
