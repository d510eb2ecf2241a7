package value

import (
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/diag"
	"pyscope/internal/pytree"
)

// ModuleResolver resolves a dotted module path to its module value. The
// file-system side of module loading lives outside this package.
type ModuleResolver interface {
	Resolve(s *Session, dotted string) (*ModuleValue, bool)
}

// ExecuteHook may intercept a call to a known value and substitute an
// idiom-aware result. The callback produces the generic result; a hook that
// wants to fall back must call it.
type ExecuteHook func(s *Session, v Value, args Arguments, callback func() ValueSet) ValueSet

// MetaclassFilterHook may contribute filters for a class whose metaclass is
// recognized (e.g. enum member synthesis).
type MetaclassFilterHook func(s *Session, c *ClassValue, metaclasses ValueSet) []Filter

// Session is one top-level inference query. All memoization is scoped to it:
// the underlying source may be re-parsed between sessions, so nothing cached
// here survives. Sessions are single-threaded by design.
type Session struct {
	Diag     diag.Sink
	Resolver ModuleResolver

	executeHook    ExecuteHook
	metaFilterHook MetaclassFilterHook

	builtins *ModuleValue

	memo      map[memoKey]*memoEntry
	classes   map[defKey]*ClassValue
	functions map[defKey]*FunctionValue
}

type memoKey struct {
	owner any
	op    string
}

type memoEntry struct {
	computing bool
	result    any
}

// defKey pins a definition to its enclosing context: the same syntax node in
// a different context is a distinct value.
type defKey struct {
	module string
	scope  pytree.NodeKey
	node   pytree.NodeKey
}

// NewSession creates a session. The sink must not be nil; use diag.Discard to
// ignore diagnostics.
func NewSession(sink diag.Sink, resolver ModuleResolver) *Session {
	return &Session{
		Diag:      sink,
		Resolver:  resolver,
		memo:      make(map[memoKey]*memoEntry),
		classes:   make(map[defKey]*ClassValue),
		functions: make(map[defKey]*FunctionValue),
	}
}

// SetExecuteHook installs the call-interception hook.
func (s *Session) SetExecuteHook(h ExecuteHook) {
	s.executeHook = h
}

// SetMetaclassFilterHook installs the metaclass filter hook.
func (s *Session) SetMetaclassFilterHook(h MetaclassFilterHook) {
	s.metaFilterHook = h
}

// SetBuiltins pins the builtins module for this session.
func (s *Session) SetBuiltins(m *ModuleValue) {
	s.builtins = m
}

// Builtins returns the builtins module, nil when none was provided.
func (s *Session) Builtins() *ModuleValue {
	return s.builtins
}

// BuiltinAttr resolves a name in the builtins module scope.
func (s *Session) BuiltinAttr(name string) ValueSet {
	if s.builtins == nil {
		return NoValues
	}
	return s.builtins.Attribute(s, name)
}

// BuiltinClass resolves a builtin class by name.
func (s *Session) BuiltinClass(name string) (*ClassValue, bool) {
	for _, v := range s.BuiltinAttr(name).Values() {
		if c, ok := v.(*ClassValue); ok {
			return c, true
		}
	}
	return nil, false
}

// Execute calls v with args, giving the installed hook the chance to
// substitute a patched result. A panicking hook is treated as "idiom not
// recognized" and falls back to the generic call.
func (s *Session) Execute(v Value, args Arguments) (result ValueSet) {
	callback := func() ValueSet { return v.Call(s, args) }
	if s.executeHook == nil {
		return callback()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("patch dispatch panicked, falling back", "value", v.Name(), "panic", r)
			result = callback()
		}
	}()
	return s.executeHook(s, v, args, callback)
}

// MetaclassFilters invokes the metaclass filter hook, if any.
func (s *Session) MetaclassFilters(c *ClassValue, metaclasses ValueSet) []Filter {
	if s.metaFilterHook == nil {
		return nil
	}
	return s.metaFilterHook(s, c, metaclasses)
}

// memoSet caches a ValueSet computation per (owner, op). Re-entering a
// computation that is still running returns the empty set: this sentinel is
// the sole cycle-breaking mechanism.
func (s *Session) memoSet(owner any, op string, compute func() ValueSet) ValueSet {
	k := memoKey{owner: owner, op: op}
	if e, ok := s.memo[k]; ok {
		if e.computing {
			return NoValues
		}
		return e.result.(ValueSet)
	}
	e := &memoEntry{computing: true}
	s.memo[k] = e
	r := compute()
	e.result = r
	e.computing = false
	return r
}

// memoValues is memoSet for ordered value sequences (e.g. MRO); re-entry
// yields an empty sequence.
func (s *Session) memoValues(owner any, op string, compute func() []Value) []Value {
	k := memoKey{owner: owner, op: op}
	if e, ok := s.memo[k]; ok {
		if e.computing {
			return nil
		}
		return e.result.([]Value)
	}
	e := &memoEntry{computing: true}
	s.memo[k] = e
	r := compute()
	e.result = r
	e.computing = false
	return r
}

// memoLazy is memoSet for lazy value sequences (e.g. bases).
func (s *Session) memoLazy(owner any, op string, compute func() []LazyValue) []LazyValue {
	k := memoKey{owner: owner, op: op}
	if e, ok := s.memo[k]; ok {
		if e.computing {
			return nil
		}
		return e.result.([]LazyValue)
	}
	e := &memoEntry{computing: true}
	s.memo[k] = e
	r := compute()
	e.result = r
	e.computing = false
	return r
}

// ClassValueFor returns the session-unique ClassValue for a class_definition
// node in a context.
func (s *Session) ClassValueFor(ctx *Context, node *sitter.Node) *ClassValue {
	k := defKey{module: ctx.Module.Name(), scope: pytree.KeyOf(ctx.Node), node: pytree.KeyOf(node)}
	if c, ok := s.classes[k]; ok {
		return c
	}
	c := &ClassValue{ctx: ctx, node: node}
	s.classes[k] = c
	return c
}

// FunctionValueFor returns the session-unique FunctionValue for a
// function_definition or lambda node in a context.
func (s *Session) FunctionValueFor(ctx *Context, node *sitter.Node) *FunctionValue {
	k := defKey{module: ctx.Module.Name(), scope: pytree.KeyOf(ctx.Node), node: pytree.KeyOf(node)}
	if f, ok := s.functions[k]; ok {
		return f
	}
	f := &FunctionValue{ctx: ctx, node: node}
	s.functions[k] = f
	return f
}
