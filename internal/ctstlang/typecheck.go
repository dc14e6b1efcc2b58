package ctstlang

import (
	"strconv"
	"strings"
	"time"

	"github.com/containust/containust/internal/ctstlang/ast"
)

// typecheckComponent converts a merged component body into a typed
// Component, emitting diagnostics for missing/mismatched/mutually-exclusive
// properties rather than failing on the first one.
func (l *loader) typecheckComponent(name string, body ast.MapValue) Component {
	c := Component{
		Name:     name,
		ReadOnly: true, // default true per spec.md §3
		Restart:  RestartNever,
		Network:  NetworkBridge,
		Env:      map[string]string{},
	}

	image, hasImage := l.stringProp(body, "image")
	if !hasImage {
		l.errf(body.At, "E005", "component %q is missing required property \"image\"", name)
	} else {
		c.ImageURI = image
		if !validImageScheme(image) {
			l.errf(body.At, "E007", "component %q has an invalid image URI scheme: %q", name, image)
		}
	}

	if v, ok := l.stringListProp(body, "command"); ok {
		c.Command = v
	}
	if v, ok := l.stringListProp(body, "entrypoint"); ok {
		c.Entrypoint = v
	}
	if v, ok := l.stringProp(body, "workdir"); ok {
		c.WorkDir = v
	}
	if v, ok := l.stringProp(body, "user"); ok {
		c.User = v
	}
	if v, ok := l.stringProp(body, "hostname"); ok {
		c.Hostname = v
	}

	_, hasPort := body.Get("port")
	_, hasPorts := body.Get("ports")
	if hasPort && hasPorts {
		l.errf(body.At, "E006", "component %q sets both \"port\" and \"ports\"", name)
	} else if hasPort {
		if p, ok := l.intProp(body, "port"); ok {
			c.Ports = []int{int(p)}
		}
	} else if hasPorts {
		if vs, ok := l.intListProp(body, "ports"); ok {
			c.Ports = vs
		}
	}

	_, hasVolume := body.Get("volume")
	_, hasVolumes := body.Get("volumes")
	if hasVolume && hasVolumes {
		l.errf(body.At, "E006", "component %q sets both \"volume\" and \"volumes\"", name)
	} else if hasVolume {
		if v, ok := l.stringProp(body, "volume"); ok {
			if vol, ok := parseVolume(v); ok {
				c.Volumes = []Volume{vol}
			} else {
				l.errf(body.At, "E006", "component %q has an invalid volume spec %q, expected \"host-path:container-path\"", name, v)
			}
		}
	} else if hasVolumes {
		if vs, ok := l.stringListProp(body, "volumes"); ok {
			for _, v := range vs {
				if vol, ok := parseVolume(v); ok {
					c.Volumes = append(c.Volumes, vol)
				} else {
					l.errf(body.At, "E006", "component %q has an invalid volume spec %q", name, v)
				}
			}
		}
	}

	if envVal, ok := body.Get("env"); ok {
		if m, ok := envVal.(ast.MapValue); ok {
			for _, e := range m.Entries {
				if s, ok := scalarString(e.Value); ok {
					c.Env[e.Key] = s
				} else {
					l.errf(e.At, "E006", "env.%s must be a string", e.Key)
				}
			}
		} else {
			l.errf(envVal.Pos(), "E006", "\"env\" must be a map")
		}
	}

	if v, ok := body.Get("readonly"); ok {
		if sv, ok := v.(ast.ScalarValue); ok && sv.Kind == ast.BoolKind {
			c.ReadOnly = sv.Bool
		} else {
			l.errf(v.Pos(), "E006", "\"readonly\" must be a boolean")
		}
	}

	if v, ok := l.stringProp(body, "restart"); ok {
		switch RestartPolicy(v) {
		case RestartNever, RestartOnFailure, RestartAlways:
			c.Restart = RestartPolicy(v)
		default:
			l.errf(body.At, "E006", "component %q has invalid restart policy %q", name, v)
		}
	}

	if v, ok := l.stringProp(body, "network"); ok {
		c.Network = NetworkMode(v)
	}

	if limitsVal, ok := body.Get("limits"); ok {
		if m, ok := limitsVal.(ast.MapValue); ok {
			c.Limits = l.typecheckLimits(m)
		} else {
			l.errf(limitsVal.Pos(), "E006", "\"limits\" must be a map")
		}
	}

	if hcVal, ok := body.Get("healthcheck"); ok {
		if m, ok := hcVal.(ast.MapValue); ok {
			hc := l.typecheckHealthProbe(m)
			c.Health = &hc
		} else {
			l.errf(hcVal.Pos(), "E006", "\"healthcheck\" must be a map")
		}
	}

	return c
}

func (l *loader) typecheckLimits(m ast.MapValue) ResourceLimits {
	var limits ResourceLimits
	if v, ok := scalarStringAt(m, "cpu_weight"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			l.errf(m.At, "E006", "limits.cpu_weight must be an integer, got %q", v)
		}
		limits.CPUWeight = n
	}
	if v, ok := scalarStringAt(m, "memory"); ok {
		n, err := ParseSize(v)
		if err != nil {
			l.errf(m.At, "E006", "limits.memory: %s", err)
		}
		limits.MemoryByte = n
	}
	if v, ok := scalarStringAt(m, "io_weight"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			l.errf(m.At, "E006", "limits.io_weight must be an integer, got %q", v)
		}
		limits.IOWeight = n
	}
	return limits
}

func (l *loader) typecheckHealthProbe(m ast.MapValue) HealthProbe {
	hc := DefaultHealthProbe()
	if v, ok := m.Get("command"); ok {
		if cmd, ok := stringListValue(v); ok {
			hc.Command = cmd
		} else {
			l.errf(v.Pos(), "E006", "healthcheck.command must be a list of strings")
		}
	}
	if v, ok := scalarStringAt(m, "interval"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			l.errf(m.At, "E006", "healthcheck.interval: %s", err)
		} else {
			hc.Interval = d
		}
	}
	if v, ok := scalarStringAt(m, "timeout"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			l.errf(m.At, "E006", "healthcheck.timeout: %s", err)
		} else {
			hc.Timeout = d
		}
	}
	if v, ok := m.Get("retries"); ok {
		if sv, ok := v.(ast.ScalarValue); ok && sv.Kind == ast.IntKind {
			hc.Retries = int(sv.Int)
		} else {
			l.errf(v.Pos(), "E006", "healthcheck.retries must be an integer")
		}
	}
	if v, ok := scalarStringAt(m, "start_period"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			l.errf(m.At, "E006", "healthcheck.start_period: %s", err)
		} else {
			hc.StartPeriod = d
		}
	}
	return hc
}

func validImageScheme(uri string) bool {
	return strings.HasPrefix(uri, "file://") || strings.HasPrefix(uri, "tar://") || strings.HasPrefix(uri, "https://")
}

func parseVolume(spec string) (Volume, bool) {
	idx := strings.Index(spec, ":")
	if idx < 0 {
		return Volume{}, false
	}
	host := spec[:idx]
	ctr := spec[idx+1:]
	if host == "" || ctr == "" {
		return Volume{}, false
	}
	return Volume{HostPath: host, ContainerPath: ctr}, true
}

// --- value extraction helpers ---

func scalarString(v ast.Value) (string, bool) {
	sv, ok := v.(ast.ScalarValue)
	if !ok || sv.Kind != ast.StringKind {
		return "", false
	}
	return sv.Str, true
}

func scalarStringAt(m ast.MapValue, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return scalarString(v)
}

func stringListValue(v ast.Value) ([]string, bool) {
	lv, ok := v.(ast.ListValue)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(lv.Items))
	for _, item := range lv.Items {
		s, ok := scalarString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func intListValue(v ast.Value) ([]int, bool) {
	lv, ok := v.(ast.ListValue)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(lv.Items))
	for _, item := range lv.Items {
		sv, ok := item.(ast.ScalarValue)
		if !ok || sv.Kind != ast.IntKind {
			return nil, false
		}
		out = append(out, int(sv.Int))
	}
	return out, true
}

func (l *loader) stringProp(m ast.MapValue, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := scalarString(v)
	if !ok {
		l.errf(v.Pos(), "E006", "%q must be a string", key)
	}
	return s, ok
}

func (l *loader) intProp(m ast.MapValue, key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	sv, ok := v.(ast.ScalarValue)
	if !ok || sv.Kind != ast.IntKind {
		l.errf(v.Pos(), "E006", "%q must be an integer", key)
		return 0, false
	}
	return sv.Int, true
}

func (l *loader) stringListProp(m ast.MapValue, key string) ([]string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	list, ok := stringListValue(v)
	if !ok {
		l.errf(v.Pos(), "E006", "%q must be a list of strings", key)
	}
	return list, ok
}

func (l *loader) intListProp(m ast.MapValue, key string) ([]int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	list, ok := intListValue(v)
	if !ok {
		l.errf(v.Pos(), "E006", "%q must be a list of integers", key)
	}
	return list, ok
}

// ParseSize parses a size literal with decimal (KB/MB/GB) or binary
// (KiB/MiB/GiB) suffixes into a byte count, deferred to type-check time per
// the grammar's lexical rules.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	numEnd := 0
	for numEnd < len(s) && s[numEnd] >= '0' && s[numEnd] <= '9' {
		numEnd++
	}
	if numEnd == 0 {
		return 0, &formatError{"size", s}
	}
	n, err := strconv.ParseInt(s[:numEnd], 10, 64)
	if err != nil {
		return 0, &formatError{"size", s}
	}
	switch s[numEnd:] {
	case "":
		return n, nil
	case "KB":
		return n * 1000, nil
	case "MB":
		return n * 1000 * 1000, nil
	case "GB":
		return n * 1000 * 1000 * 1000, nil
	case "KiB":
		return n * 1024, nil
	case "MiB":
		return n * 1024 * 1024, nil
	case "GiB":
		return n * 1024 * 1024 * 1024, nil
	default:
		return 0, &formatError{"size", s}
	}
}

// ParseDuration parses a duration literal with s/m/h suffixes, deferred to
// type-check time per the grammar's lexical rules.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	numEnd := 0
	for numEnd < len(s) && s[numEnd] >= '0' && s[numEnd] <= '9' {
		numEnd++
	}
	if numEnd == 0 {
		return 0, &formatError{"duration", s}
	}
	n, err := strconv.ParseInt(s[:numEnd], 10, 64)
	if err != nil {
		return 0, &formatError{"duration", s}
	}
	switch s[numEnd:] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, &formatError{"duration", s}
	}
}

type formatError struct {
	kind, value string
}

func (e *formatError) Error() string {
	return "invalid " + e.kind + " literal: " + e.value
}
