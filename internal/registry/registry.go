// Package registry maps module type names from configuration to module
// factories.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// Factory builds a module from its configuration arguments.
type Factory func(args *Args) (engine.Module, error)

// Entry describes a registered module type.
type Entry struct {
	Name        string
	Description string
	Factory     Factory
}

// Registry holds module factories by type name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a module type. Registering a name twice panics since it is
// always a programming error.
func (r *Registry) Register(name, description string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("module type %q registered twice", name))
	}
	r.entries[name] = Entry{Name: name, Description: description, Factory: f}
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Entries returns all entries sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered type names sorted.
func (r *Registry) Names() []string {
	entries := r.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Build constructs the module chain of a pipeline from its specs. A spec is
// either a bare type name or a single-key map of type name to arguments.
func (r *Registry) Build(pipeline string, specs []any) ([]engine.Module, error) {
	return r.build(pipeline, pipeline, specs)
}

func (r *Registry) build(pipeline, base string, specs []any) ([]engine.Module, error) {
	modules := make([]engine.Module, 0, len(specs))
	for i, spec := range specs {
		m, err := r.buildOne(pipeline, fmt.Sprintf("%s/%d", base, i), i, spec)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

func (r *Registry) buildOne(pipeline, path string, index int, spec any) (engine.Module, error) {
	typeName, raw, err := parseSpec(spec)
	if err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "invalid module declaration").
			WithContext("pipeline", pipeline).
			WithContext("path", path)
	}
	entry, ok := r.Lookup(typeName)
	if !ok {
		return nil, serrors.UnknownModule(pipeline, typeName, index).WithContext("path", path)
	}
	m, err := entry.Factory(&Args{registry: r, pipeline: pipeline, path: path, typeName: typeName, raw: raw})
	if err != nil {
		if se, isStructured := serrors.As(err); isStructured && se.Category == serrors.CategoryConfig {
			return nil, err
		}
		return nil, serrors.InvalidModuleArgs(typeName, err).
			WithContext("pipeline", pipeline).
			WithContext("path", path)
	}
	return engine.Named(typeName, m), nil
}

func parseSpec(spec any) (string, map[string]any, error) {
	switch s := spec.(type) {
	case string:
		return s, map[string]any{}, nil
	case map[string]any:
		if len(s) != 1 {
			return "", nil, fmt.Errorf("module declaration must have exactly one key, got %d", len(s))
		}
		for name, v := range s {
			args, err := toArgs(v)
			return name, args, err
		}
	}
	return "", nil, fmt.Errorf("unsupported module declaration %T", spec)
}

func toArgs(v any) (map[string]any, error) {
	switch a := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return a, nil
	}
	return nil, fmt.Errorf("module arguments must be a mapping, got %T", v)
}

// Args carries the arguments of one module declaration.
type Args struct {
	registry *Registry
	pipeline string
	path     string
	typeName string
	raw      map[string]any
}

// Path returns the declaration's module path, e.g. "posts/2".
func (a *Args) Path() string { return a.path }

// Raw returns the undecoded arguments.
func (a *Args) Raw() map[string]any { return a.raw }

// Decode decodes the arguments into out using mapstructure tags. Scalars are
// converted leniently; unknown keys are an error.
func (a *Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(a.raw)
}

// Modules builds a child chain from the specs under the given label. Child
// paths in error messages mirror the paths used at execution time.
func (a *Args) Modules(label string, specs []any) ([]engine.Module, error) {
	base := a.path
	if label != "" {
		base += "/" + label
	}
	return a.registry.build(a.pipeline, base, specs)
}
