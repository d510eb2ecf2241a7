package value_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"pyscope/internal/diag"
	"pyscope/internal/registry"
	"pyscope/internal/stdlib"
	"pyscope/internal/value"
)

// newSession builds a session over a fresh registry with the bundled stubs and
// the standard patches, the way the engine does for every query.
func newSession(t *testing.T) (*value.Session, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	s := value.NewSession(diag.Discard{}, reg)
	stdlib.Install(s)
	builtins, ok := reg.Builtins()
	require.True(t, ok, "builtins stub must load")
	s.SetBuiltins(builtins)
	return s, reg
}

func loadModule(t *testing.T, reg *registry.Registry, name, source string) *value.ModuleValue {
	t.Helper()
	mod, err := reg.AddSource(name, name+".py", []byte(source))
	require.NoError(t, err)
	return mod
}

func classIn(t *testing.T, s *value.Session, mod *value.ModuleValue, name string) *value.ClassValue {
	t.Helper()
	for _, v := range mod.Attribute(s, name).Values() {
		if c, ok := v.(*value.ClassValue); ok {
			return c
		}
	}
	t.Fatalf("no class named %s in module %s", name, mod.Name())
	return nil
}

// valueNames lists the class names of a result set, sorted.
func valueNames(set value.ValueSet) []string {
	out := make([]string, 0, set.Len())
	for _, v := range set.Values() {
		out = append(out, v.Name())
	}
	sort.Strings(out)
	return out
}

func mroNames(s *value.Session, c value.ClassLike) []string {
	var out []string
	for _, m := range c.MRO(s) {
		out = append(out, m.Name())
	}
	return out
}
