// Package value models Python runtime objects for static inference: classes,
// instances, callables, modules and opaque builtins. Every inference query
// answers with a ValueSet of possible runtime values, and an empty set means
// "nothing could be determined", never an error.
package value

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Kind distinguishes the value variants.
type Kind int

const (
	KindClass Kind = iota
	KindInstance
	KindFunction
	KindModule
	KindCompiled
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindFunction:
		return "function"
	case KindModule:
		return "module"
	case KindCompiled:
		return "compiled"
	}
	return "unknown"
}

// Value is the capability set every possible runtime object exposes.
type Value interface {
	Kind() Kind
	Name() string
	// Context is the enclosing lexical context the value was defined in, nil
	// for detached values such as literals.
	Context() *Context
	// Class returns the class (or metaclass) of the value.
	Class(s *Session) ValueSet
	// Call infers the result of calling the value.
	Call(s *Session, args Arguments) ValueSet
	// Filters yields the name-lookup views of the value, in resolution order.
	Filters(s *Session, opts FilterOptions) []Filter
}

// ClassLike is the capability of class values: anything with an inheritance
// chain. Queried by type assertion, never by probing.
type ClassLike interface {
	Value
	Bases(s *Session) []LazyValue
	MRO(s *Session) []Value
	Metaclasses(s *Session) ValueSet
}

// DescriptorGetter emulates the descriptor protocol. The second result is
// false when the value does not act as a descriptor.
type DescriptorGetter interface {
	DescriptorGet(s *Session, instance, owner Value) (ValueSet, bool)
}

// Iterable is the capability of values whose elements are statically known.
type Iterable interface {
	Iterate(s *Session) []LazyValue
}

// StrLiteral is implemented by values carrying a known literal string.
type StrLiteral interface {
	StrValue() (string, bool)
}

// SignatureProvider is implemented by callables that can describe their
// parameter list for call tips.
type SignatureProvider interface {
	Signatures(s *Session) []Signature
}

// identityKeyer lets a value supply a semantic identity for ValueSet
// deduplication. Values without it dedup by pointer identity.
type identityKeyer interface {
	IdentityKey() any
}

func identityOf(v Value) any {
	if ik, ok := v.(identityKeyer); ok {
		return ik.IdentityKey()
	}
	return v
}

// FilterOptions selects which name views Filters yields.
type FilterOptions struct {
	// SearchGlobal asks for the lexical (non-member) scope filter instead of
	// member filters.
	SearchGlobal bool
	// UntilPosition restricts visible names to those declared before it.
	UntilPosition *sitter.Point
	// OriginScope is the scope the access originates from, for name-mangling
	// visibility.
	OriginScope *sitter.Node
	// IsInstance selects instance-member resolution semantics.
	IsInstance bool
}

// Filter is a view over one scope mapping names to their definitions.
type Filter interface {
	Get(s *Session, name string) []Name
	Values(s *Session) []Name
}

// Name binds an identifier to its defining context; Infer re-resolves against
// that context, not the requesting one.
type Name struct {
	Key string
	// Node is the defining identifier node, nil for synthesized names.
	Node  *sitter.Node
	Infer func(s *Session) ValueSet
}

// ValueSet is the universal inference result: immutable, insertion-ordered
// and deduplicated by semantic identity.
type ValueSet struct {
	values []Value
}

// NoValues is the empty result.
var NoValues = ValueSet{}

// NewValueSet builds a deduplicated set preserving first-occurrence order.
func NewValueSet(vals ...Value) ValueSet {
	return NoValues.With(vals...)
}

// FromSets unions several sets.
func FromSets(sets ...ValueSet) ValueSet {
	out := NoValues
	for _, s := range sets {
		out = out.Union(s)
	}
	return out
}

// With returns a new set with vals added.
func (vs ValueSet) With(vals ...Value) ValueSet {
	if len(vals) == 0 {
		return vs
	}
	seen := make(map[any]bool, len(vs.values)+len(vals))
	out := make([]Value, 0, len(vs.values)+len(vals))
	for _, v := range vs.values {
		seen[identityOf(v)] = true
		out = append(out, v)
	}
	for _, v := range vals {
		if v == nil {
			continue
		}
		k := identityOf(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return ValueSet{values: out}
}

// Union returns the deduplicated union of both sets.
func (vs ValueSet) Union(other ValueSet) ValueSet {
	if other.IsEmpty() {
		return vs
	}
	return vs.With(other.values...)
}

// Values returns the members in order. The slice is shared; treat it as
// read-only.
func (vs ValueSet) Values() []Value {
	return vs.values
}

func (vs ValueSet) Len() int {
	return len(vs.values)
}

func (vs ValueSet) IsEmpty() bool {
	return len(vs.values) == 0
}

// First returns the first member in insertion order.
func (vs ValueSet) First() (Value, bool) {
	if len(vs.values) == 0 {
		return nil, false
	}
	return vs.values[0], true
}

// Filter keeps the members satisfying pred.
func (vs ValueSet) Filter(pred func(Value) bool) ValueSet {
	var kept []Value
	for _, v := range vs.values {
		if pred(v) {
			kept = append(kept, v)
		}
	}
	return ValueSet{values: kept}
}

// Classes keeps only class-like members.
func (vs ValueSet) Classes() ValueSet {
	return vs.Filter(func(v Value) bool {
		_, ok := v.(ClassLike)
		return ok
	})
}

func (vs ValueSet) String() string {
	parts := make([]string, 0, len(vs.values))
	for _, v := range vs.values {
		parts = append(parts, v.Kind().String()+" "+v.Name())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// AttributeOf resolves name on v the way attribute access does: the first
// filter that knows the name wins, and all its definitions are inferred.
func AttributeOf(s *Session, v Value, name string, opts FilterOptions) ValueSet {
	for _, f := range v.Filters(s, opts) {
		names := f.Get(s, name)
		if len(names) == 0 {
			continue
		}
		out := NoValues
		for _, n := range names {
			out = out.Union(n.Infer(s))
		}
		return out
	}
	return NoValues
}

// Attribute resolves name across every member of the set.
func (vs ValueSet) Attribute(s *Session, name string) ValueSet {
	out := NoValues
	for _, v := range vs.values {
		out = out.Union(AttributeOf(s, v, name, FilterOptions{}))
	}
	return out
}

// Execute calls every member with args through the session's patch dispatch.
func (vs ValueSet) Execute(s *Session, args Arguments) ValueSet {
	out := NoValues
	for _, v := range vs.values {
		out = out.Union(s.Execute(v, args))
	}
	return out
}
