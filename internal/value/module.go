package value

import (
	"pyscope/internal/pytree"
)

// ModuleValue is a parsed Python module as a value: the root of every context
// chain and the owner of the module-level scope.
type ModuleValue struct {
	name string
	path string
	tree *pytree.Tree
	root *Context
}

// NewModuleValue wraps a parsed tree as a module named by its dotted import
// name.
func NewModuleValue(name, path string, tree *pytree.Tree) *ModuleValue {
	return &ModuleValue{name: name, path: path, tree: tree}
}

func (m *ModuleValue) Kind() Kind {
	return KindModule
}

func (m *ModuleValue) Name() string {
	return m.name
}

// Path returns the file path the module was parsed from, empty for
// synthesized modules.
func (m *ModuleValue) Path() string {
	return m.path
}

// Tree returns the module's parse tree.
func (m *ModuleValue) Tree() *pytree.Tree {
	return m.tree
}

// IsBuiltins reports whether this is the builtins module, which anchors the
// universal root class.
func (m *ModuleValue) IsBuiltins() bool {
	return m.name == "builtins"
}

// RootContext returns the module-level scope context, built once.
func (m *ModuleValue) RootContext() *Context {
	if m.root == nil {
		m.root = &Context{Module: m, Owner: m, Node: m.tree.Root()}
	}
	return m.root
}

func (m *ModuleValue) Context() *Context {
	return m.RootContext()
}

func (m *ModuleValue) Class(s *Session) ValueSet {
	return s.BuiltinAttr("module")
}

func (m *ModuleValue) Call(s *Session, args Arguments) ValueSet {
	return NoValues
}

func (m *ModuleValue) Filters(s *Session, opts FilterOptions) []Filter {
	return []Filter{
		NewGlobalFilter(m.RootContext(), opts.UntilPosition, opts.OriginScope),
		DictFilter{
			"__name__": NewLazyKnown(NewStr(m.name)),
			"__file__": NewLazyKnown(NewStr(m.path)),
		},
		&submoduleFilter{module: m},
	}
}

// submoduleFilter lets `pkg.sub` attribute access reach registered
// submodules, e.g. os.path after `import os`.
type submoduleFilter struct {
	module *ModuleValue
}

func (f *submoduleFilter) Get(s *Session, name string) []Name {
	if s.Resolver == nil {
		return nil
	}
	sub, ok := s.Resolver.Resolve(s, f.module.name+"."+name)
	if !ok {
		return nil
	}
	return []Name{{Key: name, Infer: func(*Session) ValueSet {
		return NewValueSet(sub)
	}}}
}

func (f *submoduleFilter) Values(*Session) []Name {
	return nil
}

// Attribute resolves a module-level name.
func (m *ModuleValue) Attribute(s *Session, name string) ValueSet {
	return AttributeOf(s, m, name, FilterOptions{})
}
