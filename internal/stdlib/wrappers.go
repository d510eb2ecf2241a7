package stdlib

import (
	"pyscope/internal/value"
)

// staticMethodObject is the result of staticmethod(f): a descriptor that
// hands the wrapped functions back unbound on any access.
type staticMethodObject struct {
	funcs value.ValueSet
}

func (o *staticMethodObject) Kind() value.Kind { return value.KindFunction }
func (o *staticMethodObject) Name() string { return "staticmethod" }
func (o *staticMethodObject) Context() *value.Context { return nil }
func (o *staticMethodObject) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("staticmethod")
}

func (o *staticMethodObject) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return o.funcs.Execute(s, args)
}

func (o *staticMethodObject) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

func (o *staticMethodObject) DescriptorGet(s *value.Session, instance, owner value.Value) (value.ValueSet, bool) {
	return o.funcs, true
}

// classMethodObject is the result of classmethod(f): access binds the
// wrapped functions to the owning class.
type classMethodObject struct {
	funcs value.ValueSet
}

func (o *classMethodObject) Kind() value.Kind { return value.KindFunction }
func (o *classMethodObject) Name() string { return "classmethod" }
func (o *classMethodObject) Context() *value.Context { return nil }
func (o *classMethodObject) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("classmethod")
}

func (o *classMethodObject) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return o.funcs.Execute(s, args)
}

func (o *classMethodObject) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

func (o *classMethodObject) DescriptorGet(s *value.Session, instance, owner value.Value) (value.ValueSet, bool) {
	if owner == nil {
		if instance == nil {
			return o.funcs, true
		}
		owner, _ = instance.Class(s).First()
	}
	out := value.NoValues
	for _, fn := range o.funcs.Values() {
		out = out.With(&classMethodGet{fn: fn, owner: owner})
	}
	return out, true
}

// classMethodGet is a classmethod seen through a class or instance: calling
// it prepends the class.
type classMethodGet struct {
	fn    value.Value
	owner value.Value
}

func (g *classMethodGet) Kind() value.Kind { return value.KindFunction }
func (g *classMethodGet) Name() string { return g.fn.Name() }
func (g *classMethodGet) Context() *value.Context { return g.fn.Context() }
func (g *classMethodGet) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (g *classMethodGet) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return s.Execute(g.fn, value.NewPrependedArguments(args, value.NewLazyKnown(g.owner)))
}

func (g *classMethodGet) Filters(s *value.Session, opts value.FilterOptions) []value.Filter {
	return g.fn.Filters(s, opts)
}

func (g *classMethodGet) Signatures(s *value.Session) []value.Signature {
	sp, ok := g.fn.(value.SignatureProvider)
	if !ok {
		return nil
	}
	var out []value.Signature
	for _, sig := range sp.Signatures(s) {
		out = append(out, sig.DropFirst())
	}
	return out
}

// partialObject is the result of functools.partial(f, ...): a callable that
// replays the stored arguments before the new ones.
type partialObject struct {
	funcs  value.ValueSet
	stored []value.Argument
}

func (o *partialObject) Kind() value.Kind { return value.KindFunction }
func (o *partialObject) Name() string { return "partial" }
func (o *partialObject) Context() *value.Context { return nil }
func (o *partialObject) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (o *partialObject) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return o.funcs.Execute(s, &mergedArguments{stored: o.stored, rest: args})
}

func (o *partialObject) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

// Signatures subtracts the stored arguments from the wrapped signatures:
// leading positionals drop as many parameters, keywords remove theirs.
func (o *partialObject) Signatures(s *value.Session) []value.Signature {
	nPos := 0
	keywords := map[string]bool{}
	for _, a := range o.stored {
		switch {
		case a.Star != 0:
			return nil
		case a.Keyword != "":
			keywords[a.Keyword] = true
		default:
			nPos++
		}
	}

	var out []value.Signature
	for _, v := range o.funcs.Values() {
		sp, ok := v.(value.SignatureProvider)
		if !ok {
			continue
		}
		for _, sig := range sp.Signatures(s) {
			var params []value.Param
			dropped := 0
			for _, p := range sig.Params {
				if p.Star == 0 && dropped < nPos {
					dropped++
					continue
				}
				if keywords[p.Name] {
					continue
				}
				params = append(params, p)
			}
			out = append(out, value.Signature{Name: sig.Name, Params: params})
		}
	}
	return out
}

type mergedArguments struct {
	stored []value.Argument
	rest   value.Arguments
}

func (m *mergedArguments) Unpack(s *value.Session) []value.Argument {
	out := append([]value.Argument{}, m.stored...)
	if m.rest != nil {
		out = append(out, m.rest.Unpack(s)...)
	}
	return out
}

// wrapsCallable is the decorator returned by functools.wraps(original):
// applying it to a function yields a proxy carrying the original's identity.
type wrapsCallable struct {
	original value.ValueSet
}

func (w *wrapsCallable) Kind() value.Kind { return value.KindFunction }
func (w *wrapsCallable) Name() string { return "wraps" }
func (w *wrapsCallable) Context() *value.Context { return nil }
func (w *wrapsCallable) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (w *wrapsCallable) Call(s *value.Session, args value.Arguments) value.ValueSet {
	out := value.NoValues
	for _, v := range value.PositionalArg(s, args, 0).Values() {
		out = out.With(&wrappedFunction{decorated: v, original: w.original})
	}
	return out
}

func (w *wrapsCallable) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

// wrappedFunction behaves like the decorated callable but reports the
// original's name and signatures, mirroring what functools.wraps copies.
type wrappedFunction struct {
	decorated value.Value
	original  value.ValueSet
}

func (w *wrappedFunction) Kind() value.Kind { return value.KindFunction }

func (w *wrappedFunction) Name() string {
	if v, ok := w.original.First(); ok {
		return v.Name()
	}
	return w.decorated.Name()
}

func (w *wrappedFunction) Context() *value.Context { return w.decorated.Context() }

func (w *wrappedFunction) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (w *wrappedFunction) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return s.Execute(w.decorated, args)
}

func (w *wrappedFunction) Filters(s *value.Session, opts value.FilterOptions) []value.Filter {
	return w.decorated.Filters(s, opts)
}

func (w *wrappedFunction) Signatures(s *value.Session) []value.Signature {
	var out []value.Signature
	for _, v := range w.original.Values() {
		if sp, ok := v.(value.SignatureProvider); ok {
			out = append(out, sp.Signatures(s)...)
		}
	}
	return out
}

// reversedValue is the iterator returned by reversed(seq), with the known
// elements in reverse order.
type reversedValue struct {
	elems []value.LazyValue
}

func (r *reversedValue) Kind() value.Kind { return value.KindCompiled }
func (r *reversedValue) Name() string { return "reversed" }
func (r *reversedValue) Context() *value.Context { return nil }
func (r *reversedValue) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("reversed")
}

func (r *reversedValue) Call(*value.Session, value.Arguments) value.ValueSet {
	return value.NoValues
}

func (r *reversedValue) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

func (r *reversedValue) Iterate(*value.Session) []value.LazyValue {
	return r.elems
}

// itemGetterCallable is operator.itemgetter(...): calling it on a known
// sequence yields the union of the sequence's elements.
type itemGetterCallable struct{}

func (itemGetterCallable) Kind() value.Kind { return value.KindFunction }
func (itemGetterCallable) Name() string { return "itemgetter" }
func (itemGetterCallable) Context() *value.Context { return nil }
func (itemGetterCallable) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (itemGetterCallable) Call(s *value.Session, args value.Arguments) value.ValueSet {
	out := value.NoValues
	for _, v := range value.PositionalArg(s, args, 0).Values() {
		if it, ok := v.(value.Iterable); ok {
			for _, lv := range it.Iterate(s) {
				out = out.Union(lv.Infer(s))
			}
		}
	}
	return out
}

func (itemGetterCallable) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

// dataclassDecorator is @dataclass(...) called with keyword options; it waits
// for the class.
type dataclassDecorator struct{}

func (dataclassDecorator) Kind() value.Kind { return value.KindFunction }
func (dataclassDecorator) Name() string { return "dataclass" }
func (dataclassDecorator) Context() *value.Context { return nil }
func (dataclassDecorator) Class(s *value.Session) value.ValueSet {
	return s.BuiltinAttr("function")
}

func (dataclassDecorator) Call(s *value.Session, args value.Arguments) value.ValueSet {
	return wrapDataclasses(s, value.PositionalArg(s, args, 0))
}

func (dataclassDecorator) Filters(*value.Session, value.FilterOptions) []value.Filter {
	return nil
}

// dataclassValue decorates a class with a constructor signature synthesized
// from its annotated fields.
type dataclassValue struct {
	value.ClassLike
}

func wrapDataclasses(s *value.Session, classes value.ValueSet) value.ValueSet {
	out := value.NoValues
	for _, v := range classes.Values() {
		if cl, ok := v.(value.ClassLike); ok {
			out = out.With(&dataclassValue{ClassLike: cl})
		} else {
			out = out.With(v)
		}
	}
	return out
}

func (d *dataclassValue) IdentityKey() any {
	return [2]any{"dataclass", d.ClassLike}
}

// Signatures lists the annotated class-level fields, base classes first, the
// way the generated __init__ orders them.
func (d *dataclassValue) Signatures(s *value.Session) []value.Signature {
	var params []value.Param
	seen := map[string]bool{}

	mro := d.MRO(s)
	for i := len(mro) - 1; i >= 0; i-- {
		cls, ok := mro[i].(*value.ClassValue)
		if !ok || cls.Name() == "object" {
			continue
		}
		for _, f := range annotatedFields(cls) {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			params = append(params, f)
		}
	}
	return []value.Signature{{Name: d.Name(), Params: params}}
}
