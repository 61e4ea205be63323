// Package launch turns a resolved monitor selection into processes.
package launch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/frudas24/monlaunch/internal/monitor"
)

// DefaultPlaceholder is replaced by the monitor name in every argument.
const DefaultPlaceholder = "%s"

// Template describes the command to run for a selected monitor.
type Template struct {
	Program       string
	Args          []string
	Placeholder   string
	EnvVar        string
	AllowMultiple bool
}

// ProcessSpec is an inert description of a process to launch.
type ProcessSpec struct {
	Program string
	Args    []string
	Env     map[string]string
	Monitor string
}

// Materialize builds the process specs for selection, which must already be
// in resolution order. An empty selection yields no specs.
func Materialize(t Template, selection []monitor.Monitor) []ProcessSpec {
	if len(selection) == 0 {
		return nil
	}
	if !t.AllowMultiple {
		selection = selection[:1]
	}
	placeholder := t.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	specs := make([]ProcessSpec, 0, len(selection))
	for _, m := range selection {
		spec := ProcessSpec{
			Program: t.Program,
			Args:    make([]string, len(t.Args)),
			Monitor: m.Name,
		}
		for i, arg := range t.Args {
			spec.Args[i] = strings.ReplaceAll(arg, placeholder, m.Name)
		}
		if t.EnvVar != "" {
			spec.Env = map[string]string{t.EnvVar: m.Name}
		}
		specs = append(specs, spec)
	}
	return specs
}

// String renders the spec as NAME="value" "program" "arg"..., env sorted by
// name.
func (p ProcessSpec) String() string {
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1+len(p.Args))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(p.Env[k]))
	}
	parts = append(parts, strconv.Quote(p.Program))
	for _, a := range p.Args {
		parts = append(parts, strconv.Quote(a))
	}
	return strings.Join(parts, " ")
}

// Environ returns base with the spec's variables set, replacing any
// existing entries of the same name.
func (p ProcessSpec) Environ(base []string) []string {
	if len(p.Env) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(p.Env))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, override := p.Env[name]; override {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+p.Env[k])
	}
	return out
}
