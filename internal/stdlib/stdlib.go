// Package stdlib patches the semantics of standard library callables whose
// behavior a purely syntactic engine cannot see: factory functions, implicit
// class magic and descriptor helpers. Each patch may decline by falling back
// to the generic call.
package stdlib

import (
	"strings"

	"pyscope/internal/pytree"
	"pyscope/internal/value"
)

// patchContext carries one intercepted call into a handler.
type patchContext struct {
	s        *value.Session
	callee   value.Value
	args     value.Arguments
	bound    map[string]value.ValueSet
	callback func() value.ValueSet
}

type patchHandler func(pc *patchContext) value.ValueSet

// patch pairs an argument declaration with its handler. An empty clinic
// string means the handler unpacks the arguments itself.
type patch struct {
	clinic  string
	handler patchHandler
}

// patches maps module name then callable name to its patch.
var patches = map[string]map[string]patch{
	"builtins": {
		"getattr":      {"object, name[, default], /", patchGetattr},
		"type":         {"", patchType},
		"super":        {"", patchSuper},
		"reversed":     {"sequence, /", patchReversed},
		"isinstance":   {"obj, class_or_tuple, /", patchIsinstance},
		"staticmethod": {"f, /", patchStaticmethod},
		"classmethod":  {"f, /", patchClassmethod},
		"iter":         {"iterable[, default], /", patchIter},
		"next":         {"iterator[, default], /", patchNext},
	},
	"functools": {
		"partial": {"", patchPartial},
		"wraps":   {"wrapped, /", patchWraps},
	},
	"collections": {
		"namedtuple": {"typename, field_names[, rename, defaults, module]", patchNamedtuple},
	},
	"operator": {
		"itemgetter": {"*items, /", patchItemgetter},
	},
	"os.path": {
		"join":    {"", patchPathJoin},
		"dirname": {"p, /", patchDirname},
		"abspath": {"path, /", patchAbspath},
		"relpath": {"path[, start], /", patchRelpath},
	},
	"copy": {
		"copy":     {"x, /", patchIdentity("x")},
		"deepcopy": {"x[, memo], /", patchIdentity("x")},
	},
	"_weakref": {
		"proxy": {"object[, callback], /", patchIdentity("object")},
	},
	"weakref": {
		"proxy": {"object[, callback], /", patchIdentity("object")},
	},
	"abc": {
		"abstractmethod": {"funcobj, /", patchIdentity("funcobj")},
	},
	"random": {
		"choice": {"seq, /", patchChoice},
	},
	"dataclasses": {
		"dataclass": {"", patchDataclass},
	},
}

// Install wires the patch dispatch and the enum metaclass hook into a
// session.
func Install(s *value.Session) {
	s.SetExecuteHook(execute)
	s.SetMetaclassFilterHook(metaclassFilters)
}

func execute(s *value.Session, v value.Value, args value.Arguments, callback func() value.ValueSet) value.ValueSet {
	if bm, ok := v.(*value.BoundMethod); ok {
		if out, handled := propertyDispatch(s, bm, args); handled {
			return out
		}
		return callback()
	}

	mod := moduleOf(v)
	if mod == "" {
		return callback()
	}
	tbl, ok := patches[mod]
	if !ok {
		return callback()
	}
	p, ok := tbl[v.Name()]
	if !ok {
		return callback()
	}

	pc := &patchContext{s: s, callee: v, args: args, callback: callback}
	if p.clinic != "" {
		bound, ok := bindClinic(s, parseClinic(p.clinic), args)
		if !ok {
			return callback()
		}
		pc.bound = bound
	}
	return p.handler(pc)
}

// moduleOf identifies the defining module of a def or class; wrappers and
// literals have none and are never patched.
func moduleOf(v value.Value) string {
	switch v.(type) {
	case *value.FunctionValue, *value.ClassValue:
		if ctx := v.Context(); ctx != nil {
			return ctx.Module.Name()
		}
	}
	return ""
}

// propertyDispatch implements the property descriptor helpers, which operate
// on the property instance a bound method was reached through.
func propertyDispatch(s *value.Session, bm *value.BoundMethod, args value.Arguments) (value.ValueSet, bool) {
	inst, ok := bm.Instance().(*value.Instance)
	if !ok {
		return value.NoValues, false
	}
	cls := inst.ClassValue()
	if cls.Name() != "property" || moduleOf(cls) != "builtins" {
		return value.NoValues, false
	}

	switch bm.Function().Name() {
	case "__get__":
		obj := value.PositionalArg(s, args, 0)
		if onlyNone(obj) {
			// Accessed on the class: the property object itself.
			return value.NewValueSet(inst), true
		}
		fget := value.PositionalArg(s, inst.Args(), 0)
		return fget.Execute(s, value.ValuesArguments{obj}), true
	case "getter":
		fget := value.PositionalArg(s, args, 0)
		return value.NewValueSet(value.NewInstance(cls, value.ValuesArguments{fget})), true
	case "setter", "deleter":
		// The getter is unchanged; reading through the property still works.
		return value.NewValueSet(inst), true
	}
	return value.NoValues, false
}

func onlyNone(set value.ValueSet) bool {
	if set.IsEmpty() {
		return true
	}
	for _, v := range set.Values() {
		if v.Name() != "NoneType" {
			return false
		}
	}
	return true
}

// metaclassFilters synthesizes enum members: classes under an EnumMeta
// metaclass expose their body-level assignments as instances of themselves.
func metaclassFilters(s *value.Session, c *value.ClassValue, metas value.ValueSet) []value.Filter {
	for _, m := range metas.Values() {
		cl, ok := m.(value.ClassLike)
		if !ok {
			continue
		}
		for _, e := range cl.MRO(s) {
			if e.Name() == "EnumMeta" && moduleOf(e) == "enum" {
				return []value.Filter{&enumMemberFilter{class: c}}
			}
		}
	}
	return nil
}

// enumMemberFilter exposes the member names of an enum class. Underscored
// names and non-assignment bindings are not members.
type enumMemberFilter struct {
	class *value.ClassValue
}

func (f *enumMemberFilter) Get(s *value.Session, name string) []value.Name {
	for _, n := range f.memberNames(s) {
		if n.Key == name {
			return []value.Name{n}
		}
	}
	return nil
}

func (f *enumMemberFilter) Values(s *value.Session) []value.Name {
	return f.memberNames(s)
}

func (f *enumMemberFilter) memberNames(s *value.Session) []value.Name {
	scope := value.NewGlobalFilter(f.class.BodyContext(), nil, nil)
	var out []value.Name
	for _, n := range scope.Values(s) {
		if n.Node == nil || strings.HasPrefix(n.Key, "_") {
			continue
		}
		assign := n.Node.Parent()
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || !pytree.SameNode(left, n.Node) || assign.ChildByFieldName("right") == nil {
			continue
		}
		cls := f.class
		out = append(out, value.Name{Key: n.Key, Node: n.Node, Infer: func(s *value.Session) value.ValueSet {
			return value.NewValueSet(value.NewInstance(cls, value.NoArguments))
		}})
	}
	return out
}
