// Package registry loads Python modules for inference: bundled stubs for the
// standard library plus project sources registered by the indexer.
package registry

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"pyscope/internal/pytree"
	"pyscope/internal/value"
)

//go:embed stubs/*.py
var stubFS embed.FS

// stubFiles maps importable module names to the bundled stub implementing
// them. The stubs carry just enough structure and return annotations for
// attribute and call inference.
var stubFiles = map[string]string{
	"builtins":    "stubs/builtins.py",
	"typing":      "stubs/typing.py",
	"functools":   "stubs/functools.py",
	"collections": "stubs/collections.py",
	"os":          "stubs/os.py",
	"os.path":     "stubs/os_path.py",
	"enum":        "stubs/enum.py",
	"operator":    "stubs/operator.py",
	"copy":        "stubs/copy.py",
	"random":      "stubs/random.py",
	"json":        "stubs/json.py",
	"abc":         "stubs/abc.py",
	"dataclasses": "stubs/dataclasses.py",
	"weakref":     "stubs/weakref.py",
	"_weakref":    "stubs/weakref.py",
}

// Registry resolves dotted module names to parsed module values. It keeps
// every parsed tree alive for the registry's lifetime.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*value.ModuleValue
}

// New creates an empty registry; stubs load lazily on first resolution.
func New() *Registry {
	return &Registry{modules: make(map[string]*value.ModuleValue)}
}

// AddSource registers a project module under its dotted name, replacing any
// previous registration.
func (r *Registry) AddSource(name, path string, source []byte) (*value.ModuleValue, error) {
	tree, err := pytree.Parse(context.Background(), source)
	if err != nil {
		return nil, fmt.Errorf("parse module %s: %w", name, err)
	}
	m := value.NewModuleValue(name, path, tree)
	r.mu.Lock()
	r.modules[name] = m
	r.mu.Unlock()
	return m, nil
}

// Remove drops a project module, e.g. after its file was deleted.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.modules, name)
	r.mu.Unlock()
}

// Names lists the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve implements value.ModuleResolver. Project modules shadow stubs of
// the same name.
func (r *Registry) Resolve(_ *value.Session, dotted string) (*value.ModuleValue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[dotted]; ok {
		return m, true
	}
	file, ok := stubFiles[dotted]
	if !ok {
		return nil, false
	}
	source, err := stubFS.ReadFile(file)
	if err != nil {
		slog.Warn("bundled stub missing", "module", dotted, "err", err)
		return nil, false
	}
	tree, err := pytree.Parse(context.Background(), source)
	if err != nil {
		slog.Warn("bundled stub failed to parse", "module", dotted, "err", err)
		return nil, false
	}
	m := value.NewModuleValue(dotted, "", tree)
	r.modules[dotted] = m
	return m, true
}

// Builtins resolves the builtins stub.
func (r *Registry) Builtins() (*value.ModuleValue, bool) {
	return r.Resolve(nil, "builtins")
}
