package value

import (
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// ClassValue represents a class definition as a value. It holds a back
// reference into the shared read-only parse tree and the context it was
// defined in; the same definition in a different context is a distinct
// ClassValue. It is never mutated after construction: generic substitution
// and similar operations return wrapper values.
type ClassValue struct {
	ctx  *Context
	node *sitter.Node
}

func (c *ClassValue) Kind() Kind {
	return KindClass
}

func (c *ClassValue) Name() string {
	if n := c.node.ChildByFieldName("name"); n != nil {
		return n.Content(c.ctx.Source())
	}
	return ""
}

func (c *ClassValue) Context() *Context {
	return c.ctx
}

// Node returns the class_definition node.
func (c *ClassValue) Node() *sitter.Node {
	return c.node
}

// BodyContext returns the context of the class body scope.
func (c *ClassValue) BodyContext() *Context {
	return c.ctx.ChildContext(c, c.node)
}

// Docstring returns the class docstring.
func (c *ClassValue) Docstring() string {
	return pytree.Docstring(c.node, c.ctx.Source())
}

func (c *ClassValue) superArglist() *sitter.Node {
	return c.node.ChildByFieldName("superclasses")
}

// Class returns the metaclass when one applies, else the builtin `type`.
func (c *ClassValue) Class(s *Session) ValueSet {
	if metas := c.Metaclasses(s); !metas.IsEmpty() {
		return metas
	}
	if t, ok := s.BuiltinClass("type"); ok {
		return NewValueSet(t)
	}
	return NoValues
}

// Bases returns the declared base classes as lazy values, in declaration
// order. Keyword arguments (metaclass=...) are not bases. A class without a
// declared base defaults to the universal root `object`, except for `object`
// itself.
func (c *ClassValue) Bases(s *Session) []LazyValue {
	return s.memoLazy(c, "bases", func() []LazyValue {
		var out []LazyValue
		if arglist := c.superArglist(); arglist != nil {
			for i := 0; i < int(arglist.NamedChildCount()); i++ {
				n := arglist.NamedChild(i)
				switch n.Type() {
				case "keyword_argument", "list_splat", "dictionary_splat", "comment":
					continue
				}
				out = append(out, NewLazyTree(c.ctx, n))
			}
		}
		if len(out) > 0 {
			return out
		}
		if c.Name() == "object" && c.ctx.Module.IsBuiltins() {
			return nil
		}
		return []LazyValue{NewLazyKnownSet(s.BuiltinAttr("object"))}
	})
}

// MRO computes the method resolution order: the class itself first, then each
// base's MRO concatenated in declaration order with first-occurrence-wins
// deduplication. This is deliberately not C3 linearization; diamond edge
// cases may disagree with the runtime. Cycles terminate through the visited
// set and the session's in-progress sentinel.
func (c *ClassValue) MRO(s *Session) []Value {
	return s.memoValues(c, "mro", func() []Value {
		visited := map[any]bool{identityOf(c): true}
		mro := []Value{c}

		for _, lazyBase := range c.Bases(s) {
			base, ok := lazyBase.Infer(s).First()
			if !ok {
				continue
			}
			cl, ok := base.(ClassLike)
			if !ok {
				slog.Warn("super class is not a class", "class", c.Name(), "base", base.Name())
				continue
			}
			for _, m := range cl.MRO(s) {
				k := identityOf(m)
				if !visited[k] {
					visited[k] = true
					mro = append(mro, m)
				}
			}
		}
		return mro
	})
}

// Metaclasses returns the class's metaclass set: a local `metaclass=` keyword
// wins; otherwise the first base (in declaration order) providing one.
func (c *ClassValue) Metaclasses(s *Session) ValueSet {
	return s.memoSet(c, "metaclasses", func() ValueSet {
		if arglist := c.superArglist(); arglist != nil {
			for i := 0; i < int(arglist.NamedChildCount()); i++ {
				n := arglist.NamedChild(i)
				if n.Type() != "keyword_argument" {
					continue
				}
				if k := n.ChildByFieldName("name"); k == nil || k.Content(c.ctx.Source()) != "metaclass" {
					continue
				}
				metas := c.ctx.Infer(s, n.ChildByFieldName("value")).Classes()
				if !metas.IsEmpty() {
					return metas
				}
			}
		}

		for _, lazyBase := range c.Bases(s) {
			for _, base := range lazyBase.Infer(s).Values() {
				cl, ok := base.(ClassLike)
				if !ok {
					continue
				}
				if metas := cl.Metaclasses(s); !metas.IsEmpty() {
					return metas
				}
			}
		}
		return NoValues
	})
}

// TypeVars lists the unresolved generic parameters appearing in the base
// argument list, first-seen order, deduplicated. Starred forwarding
// arguments are not scanned.
func (c *ClassValue) TypeVars(s *Session) []string {
	set := s.memoSet(c, "typevars", func() ValueSet {
		arglist := c.superArglist()
		if arglist == nil {
			return NoValues
		}
		seen := map[string]bool{}
		var names []Value
		for i := 0; i < int(arglist.NamedChildCount()); i++ {
			n := arglist.NamedChild(i)
			switch n.Type() {
			case "keyword_argument", "list_splat", "dictionary_splat":
				continue
			}
			for _, id := range subscriptIdentifiers(n) {
				name := id.Content(c.ctx.Source())
				if seen[name] || !isTypeVar(s, c.ctx, id) {
					continue
				}
				seen[name] = true
				names = append(names, NewStr(name))
			}
		}
		return NewValueSet(names...)
	})

	var out []string
	for _, v := range set.Values() {
		if lit, ok := v.(StrLiteral); ok {
			if str, known := lit.StrValue(); known {
				out = append(out, str)
			}
		}
	}
	return out
}

// subscriptIdentifiers collects identifiers appearing inside subscript index
// expressions, e.g. T in Generic[T] or Mapping[K, V].
func subscriptIdentifiers(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "subscript" {
			valueNode := node.ChildByFieldName("value")
			for i := 0; i < int(node.NamedChildCount()); i++ {
				c := node.NamedChild(i)
				if pytree.SameNode(c, valueNode) {
					walk(c)
					continue
				}
				collectIdentifiers(c, &out)
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(n)
	return out
}

func collectIdentifiers(n *sitter.Node, out *[]*sitter.Node) {
	if n.Type() == "identifier" {
		*out = append(*out, n)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectIdentifiers(n.NamedChild(i), out)
	}
}

// isTypeVar reports whether an identifier resolves to a typing.TypeVar
// instance in the class's enclosing context.
func isTypeVar(s *Session, ctx *Context, id *sitter.Node) bool {
	for _, v := range ctx.Infer(s, id).Values() {
		inst, ok := v.(*Instance)
		if !ok {
			continue
		}
		for _, cls := range inst.Class(s).Values() {
			if cls.Name() == "TypeVar" {
				return true
			}
		}
	}
	return false
}

// DefineGenerics substitutes type variables. An empty binding returns the
// class itself, not a wrapper.
func (c *ClassValue) DefineGenerics(s *Session, binding map[string]ValueSet) ValueSet {
	if len(binding) == 0 {
		return NewValueSet(c)
	}
	generics := make(map[string]ValueSet, len(binding))
	for _, tv := range c.TypeVars(s) {
		if set, ok := binding[tv]; ok {
			generics[tv] = set
		} else {
			generics[tv] = NoValues
		}
	}
	return NewValueSet(&GenericClass{ClassValue: c, generics: generics})
}

// Call instantiates the class: exactly one new instance bound to this class
// and the given arguments. Constructor arguments are not validated against
// __init__ here; that is a signature-checking concern.
func (c *ClassValue) Call(s *Session, args Arguments) ValueSet {
	return NewValueSet(NewInstance(c, args))
}

// Filters composes the class's name-lookup views: metaclass-contributed
// filters first, then either the lexical scope filter (search-global) or one
// filter per MRO entry. Class-level access additionally sees the attributes
// of class objects themselves, via an instance of `type`, skipping the
// entries already covered by the class's own MRO filters.
func (c *ClassValue) Filters(s *Session, opts FilterOptions) []Filter {
	var out []Filter

	if metas := c.Metaclasses(s); !metas.IsEmpty() {
		out = append(out, s.MetaclassFilters(c, metas)...)
	}

	if opts.SearchGlobal {
		out = append(out, NewGlobalFilter(c.BodyContext(), opts.UntilPosition, opts.OriginScope))
		return out
	}

	for _, m := range c.MRO(s) {
		switch entry := m.(type) {
		case *ClassValue:
			out = append(out, newClassFilter(c, entry, opts.OriginScope, opts.IsInstance, nil))
		case *GenericClass:
			out = append(out, newClassFilter(c, entry.ClassValue, opts.OriginScope, opts.IsInstance, nil))
		default:
			slog.Debug("mro entry without member filter", "class", c.Name(), "entry", m.Name())
		}
	}

	if !opts.IsInstance {
		if typeCls, ok := s.BuiltinClass("type"); ok && typeCls != c {
			for _, inst := range typeCls.Call(s, NoArguments).Values() {
				fs := inst.Filters(s, FilterOptions{IsInstance: true})
				// The first two entries are the instance's own views of
				// `type`, already covered above.
				if len(fs) > 2 {
					out = append(out, fs[2])
				}
			}
		}
	}
	return out
}

// Signatures describes the constructor: __init__'s parameters minus self,
// under the class's name.
func (c *ClassValue) Signatures(s *Session) []Signature {
	var out []Signature
	for _, v := range AttributeOf(s, c, "__init__", FilterOptions{}).Values() {
		sp, ok := v.(SignatureProvider)
		if !ok {
			continue
		}
		for _, sig := range sp.Signatures(s) {
			out = append(out, sig.Bind(c))
		}
	}
	return out
}

// GenericClass is a class with type variables substituted. It delegates
// everything to the wrapped class and only adds the binding.
type GenericClass struct {
	*ClassValue
	generics map[string]ValueSet
}

// Generic resolves a bound type variable; unknown variables yield the empty
// set.
func (g *GenericClass) Generic(name string) ValueSet {
	return g.generics[name]
}
