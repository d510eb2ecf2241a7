package stdlib

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
	"pyscope/internal/value"
)

func patchGetattr(pc *patchContext) value.ValueSet {
	objs := pc.bound["object"]
	fallback, hasDefault := pc.bound["default"]

	out := value.NoValues
	resolved := false
	for _, n := range pc.bound["name"].Values() {
		lit, ok := n.(value.StrLiteral)
		if !ok {
			// A dynamic attribute name cannot be resolved statically.
			return value.NoValues
		}
		text, known := lit.StrValue()
		if !known {
			return value.NoValues
		}
		res := objs.Attribute(pc.s, text)
		if !res.IsEmpty() {
			resolved = true
		}
		out = out.Union(res)
	}
	if hasDefault && !resolved {
		out = out.Union(fallback)
	}
	return out
}

// patchType handles the one-argument form, which queries an object's class.
// The three-argument dynamic class form falls through to the generic call.
func patchType(pc *patchContext) value.ValueSet {
	var plain []value.Argument
	for _, a := range pc.args.Unpack(pc.s) {
		if a.Star != 0 || a.Keyword != "" {
			return pc.callback()
		}
		plain = append(plain, a)
	}
	if len(plain) != 1 {
		return pc.callback()
	}
	out := value.NoValues
	for _, v := range plain[0].Value.Infer(pc.s).Values() {
		out = out.Union(v.Class(pc.s))
	}
	return out
}

// patchSuper resolves super() to an instance of the first base of the class
// the call textually sits in (or of the explicitly passed class). Only the
// first base is considered.
func patchSuper(pc *patchContext) value.ValueSet {
	var cls value.ClassLike
	for _, v := range value.PositionalArg(pc.s, pc.args, 0).Values() {
		if c, ok := v.(value.ClassLike); ok {
			cls = c
			break
		}
	}
	if cls == nil {
		ta, ok := pc.args.(*value.TreeArguments)
		if !ok {
			return pc.callback()
		}
		cls = enclosingClass(ta.Context())
	}
	if cls == nil {
		return pc.callback()
	}

	bases := cls.Bases(pc.s)
	if len(bases) == 0 {
		return pc.callback()
	}
	out := value.NoValues
	for _, b := range bases[0].Infer(pc.s).Values() {
		if bc, ok := b.(value.ClassLike); ok {
			out = out.Union(pc.s.Execute(bc, value.NoArguments))
		}
	}
	if out.IsEmpty() {
		return pc.callback()
	}
	return out
}

func enclosingClass(ctx *value.Context) value.ClassLike {
	for c := ctx; c != nil; c = c.Parent {
		if cl, ok := c.Owner.(value.ClassLike); ok {
			return cl
		}
	}
	return nil
}

func patchReversed(pc *patchContext) value.ValueSet {
	out := value.NoValues
	for _, v := range pc.bound["sequence"].Values() {
		it, ok := v.(value.Iterable)
		if !ok {
			continue
		}
		elems := it.Iterate(pc.s)
		rev := make([]value.LazyValue, 0, len(elems))
		for i := len(elems) - 1; i >= 0; i-- {
			rev = append(rev, elems[i])
		}
		out = out.With(&reversedValue{elems: rev})
	}
	if out.IsEmpty() {
		return pc.callback()
	}
	return out
}

// patchIsinstance decides statically when it can: True when a class of the
// object appears in the requested classes' MROs, False when every class is
// known and none matches, both otherwise. A second argument that is not a
// class or tuple of classes is reported to the diagnostic sink.
func patchIsinstance(pc *patchContext) value.ValueSet {
	argNode := positionalNode(pc.s, pc.args, 1)
	notClass := func(v value.Value) {
		pc.s.Diag.Report(argNode, "type-error-isinstance",
			"isinstance() arg 2 must be a class, type, or tuple of classes, not "+v.Name())
	}

	var wanted []value.Value
	for _, ci := range pc.bound["class_or_tuple"].Values() {
		if it, ok := ci.(value.Iterable); ok {
			for _, lv := range it.Iterate(pc.s) {
				for _, v := range lv.Infer(pc.s).Values() {
					if _, isClass := v.(value.ClassLike); isClass {
						wanted = append(wanted, v)
					} else {
						notClass(v)
					}
				}
			}
			continue
		}
		if _, isClass := ci.(value.ClassLike); isClass {
			wanted = append(wanted, ci)
			continue
		}
		notClass(ci)
	}
	objs := pc.bound["obj"]
	if len(wanted) == 0 || objs.IsEmpty() {
		return pc.callback()
	}

	out := value.NoValues
	for _, o := range objs.Values() {
		matched, unknown := false, false
		classes := o.Class(pc.s)
		if classes.IsEmpty() {
			unknown = true
		}
		for _, oc := range classes.Values() {
			cl, ok := oc.(value.ClassLike)
			if !ok {
				unknown = true
				continue
			}
			for _, m := range cl.MRO(pc.s) {
				for _, w := range wanted {
					if m == w {
						matched = true
					}
				}
			}
		}
		switch {
		case matched:
			out = out.With(value.NewBool(true))
		case unknown:
			out = out.With(value.NewBool(true), value.NewBool(false))
		default:
			out = out.With(value.NewBool(false))
		}
	}
	return out
}

func patchStaticmethod(pc *patchContext) value.ValueSet {
	return value.NewValueSet(&staticMethodObject{funcs: pc.bound["f"]})
}

func patchClassmethod(pc *patchContext) value.ValueSet {
	return value.NewValueSet(&classMethodObject{funcs: pc.bound["f"]})
}

func patchIter(pc *patchContext) value.ValueSet {
	out := value.NoValues
	for _, v := range pc.bound["iterable"].Values() {
		iters := value.AttributeOf(pc.s, v, "__iter__", value.FilterOptions{})
		if !iters.IsEmpty() {
			out = out.Union(iters.Execute(pc.s, value.NoArguments))
			continue
		}
		if _, ok := v.(value.Iterable); ok {
			out = out.With(v)
		}
	}
	if out.IsEmpty() {
		return pc.callback()
	}
	return out
}

func patchNext(pc *patchContext) value.ValueSet {
	out := value.NoValues
	for _, v := range pc.bound["iterator"].Values() {
		nexts := value.AttributeOf(pc.s, v, "__next__", value.FilterOptions{})
		out = out.Union(nexts.Execute(pc.s, value.NoArguments))
		if it, ok := v.(value.Iterable); ok {
			for _, lv := range it.Iterate(pc.s) {
				out = out.Union(lv.Infer(pc.s))
			}
		}
	}
	if out.IsEmpty() {
		if fallback, ok := pc.bound["default"]; ok {
			return fallback
		}
		return pc.callback()
	}
	return out
}

func patchPartial(pc *patchContext) value.ValueSet {
	var funcs value.ValueSet
	var stored []value.Argument
	found := false
	for _, a := range pc.args.Unpack(pc.s) {
		if a.Star != 0 {
			return pc.callback()
		}
		if !found && a.Keyword == "" {
			funcs = a.Value.Infer(pc.s)
			found = true
			continue
		}
		stored = append(stored, a)
	}
	if !found || funcs.IsEmpty() {
		return pc.callback()
	}
	return value.NewValueSet(&partialObject{funcs: funcs, stored: stored})
}

func patchWraps(pc *patchContext) value.ValueSet {
	return value.NewValueSet(&wrapsCallable{original: pc.bound["wrapped"]})
}

// patchNamedtuple synthesizes a class for the factory call and infers it like
// any other class definition.
func patchNamedtuple(pc *patchContext) value.ValueSet {
	typename, ok := firstStr(pc.bound["typename"])
	if !ok || !isIdent(typename) {
		return pc.callback()
	}
	fields := namedtupleFields(pc.s, pc.bound["field_names"])
	if len(fields) == 0 {
		return pc.callback()
	}
	for _, f := range fields {
		if !isIdent(f) {
			return pc.callback()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "class %s(tuple):\n", typename)
	b.WriteString("    _fields = (")
	for _, f := range fields {
		fmt.Fprintf(&b, "%q, ", f)
	}
	b.WriteString(")\n\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "    %s = None\n", f)
	}
	fmt.Fprintf(&b, "\n    def __init__(self, %s):\n        pass\n", strings.Join(fields, ", "))

	tree, err := pytree.Parse(context.Background(), []byte(b.String()))
	if err != nil {
		return pc.callback()
	}
	mod := value.NewModuleValue(typename, "", tree)
	root := mod.RootContext()
	for i := 0; i < int(tree.Root().NamedChildCount()); i++ {
		if n := tree.Root().NamedChild(i); n.Type() == "class_definition" {
			return value.NewValueSet(pc.s.ClassValueFor(root, n))
		}
	}
	return pc.callback()
}

// namedtupleFields accepts the factory's two spellings: a single space or
// comma separated string, or a sequence of field name strings.
func namedtupleFields(s *value.Session, set value.ValueSet) []string {
	var out []string
	for _, v := range set.Values() {
		if lit, ok := v.(value.StrLiteral); ok {
			if text, known := lit.StrValue(); known {
				out = append(out, strings.FieldsFunc(text, func(r rune) bool {
					return r == ' ' || r == ','
				})...)
			}
			continue
		}
		if it, ok := v.(value.Iterable); ok {
			for _, lv := range it.Iterate(s) {
				if f, ok := firstStr(lv.Infer(s)); ok {
					out = append(out, f)
				}
			}
		}
	}
	return out
}

func patchItemgetter(pc *patchContext) value.ValueSet {
	return value.NewValueSet(itemGetterCallable{})
}

// patchPathJoin concatenates fully known literal segments with Python's
// semantics: an absolute segment restarts the result.
func patchPathJoin(pc *patchContext) value.ValueSet {
	var parts []string
	for _, a := range pc.args.Unpack(pc.s) {
		if a.Star != 0 || a.Keyword != "" {
			return pc.callback()
		}
		p, ok := onlyStr(a.Value.Infer(pc.s))
		if !ok {
			return pc.callback()
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return pc.callback()
	}

	result := parts[0]
	for _, p := range parts[1:] {
		switch {
		case strings.HasPrefix(p, "/"):
			result = p
		case result == "" || strings.HasSuffix(result, "/"):
			result += p
		default:
			result += "/" + p
		}
	}
	return value.NewValueSet(value.NewStr(result))
}

func patchDirname(pc *patchContext) value.ValueSet {
	p, ok := firstStr(pc.bound["p"])
	if !ok {
		return pc.callback()
	}
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return value.NewValueSet(value.NewStr(""))
	}
	head := p[:i+1]
	if strings.Trim(head, "/") != "" {
		head = strings.TrimRight(head, "/")
	}
	return value.NewValueSet(value.NewStr(head))
}

func patchAbspath(pc *patchContext) value.ValueSet {
	p, ok := firstStr(pc.bound["path"])
	if !ok || !strings.HasPrefix(p, "/") {
		// A relative path needs the working directory, which is not static.
		return pc.callback()
	}
	return value.NewValueSet(value.NewStr(path.Clean(p)))
}

func patchRelpath(pc *patchContext) value.ValueSet {
	p, okPath := firstStr(pc.bound["path"])
	start, okStart := firstStr(pc.bound["start"])
	if !okPath || !okStart {
		return pc.callback()
	}
	rel, err := filepath.Rel(start, p)
	if err != nil {
		return pc.callback()
	}
	return value.NewValueSet(value.NewStr(rel))
}

// patchIdentity returns the first argument unchanged, for wrappers that do
// not alter their argument's type (copy, weakref.proxy, abstractmethod).
func patchIdentity(name string) patchHandler {
	return func(pc *patchContext) value.ValueSet {
		out := pc.bound[name]
		if out.IsEmpty() {
			return pc.callback()
		}
		return out
	}
}

func patchChoice(pc *patchContext) value.ValueSet {
	out := value.NoValues
	for _, v := range pc.bound["seq"].Values() {
		if it, ok := v.(value.Iterable); ok {
			for _, lv := range it.Iterate(pc.s) {
				out = out.Union(lv.Infer(pc.s))
			}
		}
	}
	if out.IsEmpty() {
		return pc.callback()
	}
	return out
}

func patchDataclass(pc *patchContext) value.ValueSet {
	classes := value.PositionalArg(pc.s, pc.args, 0).Classes()
	if classes.IsEmpty() {
		// Called with options only; the class arrives in a second call.
		return value.NewValueSet(dataclassDecorator{})
	}
	return wrapDataclasses(pc.s, classes)
}

// annotatedFields lists a class's annotated body-level assignments as
// parameters, in source order.
func annotatedFields(cls *value.ClassValue) []value.Param {
	body := pytree.ScopeBody(cls.Node())
	if body == nil {
		return nil
	}
	src := cls.BodyContext().Source()
	var out []value.Param
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "expression_statement" {
			stmt = stmt.NamedChild(0)
		}
		if stmt == nil || stmt.Type() != "assignment" {
			continue
		}
		left := stmt.ChildByFieldName("left")
		ann := stmt.ChildByFieldName("type")
		if left == nil || ann == nil || left.Type() != "identifier" {
			continue
		}
		if strings.Contains(ann.Content(src), "ClassVar") {
			continue
		}
		p := value.Param{Name: left.Content(src), Annotation: ann.Content(src)}
		if right := stmt.ChildByFieldName("right"); right != nil {
			p.Default = right.Content(src)
		}
		out = append(out, p)
	}
	return out
}

// positionalNode returns the syntax node of the index-th positional argument,
// nil when the argument is synthesized or absent.
func positionalNode(s *value.Session, args value.Arguments, index int) *sitter.Node {
	i := 0
	for _, a := range args.Unpack(s) {
		if a.Keyword != "" || a.Star != 0 {
			continue
		}
		if i == index {
			return a.Node
		}
		i++
	}
	return nil
}

// onlyStr accepts a set that is exactly one known string literal; an
// ambiguous or unknown value makes the caller fall back.
func onlyStr(set value.ValueSet) (string, bool) {
	if set.Len() != 1 {
		return "", false
	}
	return firstStr(set)
}

func firstStr(set value.ValueSet) (string, bool) {
	for _, v := range set.Values() {
		if lit, ok := v.(value.StrLiteral); ok {
			if text, known := lit.StrValue(); known {
				return text, true
			}
		}
	}
	return "", false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
