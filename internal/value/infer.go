package value

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// Infer evaluates an expression node in this context and returns the set of
// possible values. Unsupported constructs yield the empty set.
func (c *Context) Infer(s *Session, node *sitter.Node) ValueSet {
	if node == nil {
		return NoValues
	}
	src := c.Source()

	switch node.Type() {
	case "identifier":
		pos := node.StartPoint()
		return c.ResolveName(s, node.Content(src), &pos)

	case "attribute":
		obj := c.Infer(s, node.ChildByFieldName("object"))
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return NoValues
		}
		name := attr.Content(src)
		out := NoValues
		for _, v := range obj.Values() {
			out = out.Union(AttributeOf(s, v, name, FilterOptions{OriginScope: node}))
		}
		return out

	case "call":
		fn := c.Infer(s, node.ChildByFieldName("function"))
		args := NewTreeArguments(c, node.ChildByFieldName("arguments"))
		return fn.Execute(s, args)

	case "string":
		if text, ok := pytree.DecodeString(node, src); ok {
			return NewValueSet(NewStr(text))
		}
		return NewValueSet(NewStrUnknown())

	case "concatenated_string":
		var parts []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			text, ok := pytree.DecodeString(node.NamedChild(i), src)
			if !ok {
				return NewValueSet(NewStrUnknown())
			}
			parts = append(parts, text)
		}
		return NewValueSet(NewStr(strings.Join(parts, "")))

	case "integer":
		return NewValueSet(NewInt(node.Content(src)))

	case "float":
		return NewValueSet(NewFloat(node.Content(src)))

	case "true":
		return NewValueSet(NewBool(true))

	case "false":
		return NewValueSet(NewBool(false))

	case "none":
		return NewValueSet(NewNone())

	case "parenthesized_expression", "expression_statement", "await":
		return c.Infer(s, node.NamedChild(0))

	case "type":
		// The grammar wraps every annotation expression in a type node.
		return c.Infer(s, node.NamedChild(0))

	case "tuple", "list", "set":
		var elems []LazyValue
		for i := 0; i < int(node.NamedChildCount()); i++ {
			elems = append(elems, NewLazyTree(c, node.NamedChild(i)))
		}
		return NewValueSet(NewSequence(node.Type(), elems))

	case "dictionary":
		return NewValueSet(NewSequence("dict", nil))

	case "binary_operator", "boolean_operator":
		left := c.Infer(s, node.ChildByFieldName("left"))
		right := c.Infer(s, node.ChildByFieldName("right"))
		return left.Union(right)

	case "comparison_operator", "not_operator":
		return NewValueSet(NewBool(true), NewBool(false))

	case "conditional_expression":
		// value if cond else other: the condition contributes nothing.
		out := NoValues
		if node.NamedChildCount() > 0 {
			out = out.Union(c.Infer(s, node.NamedChild(0)))
		}
		if n := int(node.NamedChildCount()); n > 2 {
			out = out.Union(c.Infer(s, node.NamedChild(n-1)))
		}
		return out

	case "unary_operator":
		return c.Infer(s, node.ChildByFieldName("argument"))

	case "named_expression":
		return c.Infer(s, node.ChildByFieldName("value"))

	case "keyword_argument":
		return c.Infer(s, node.ChildByFieldName("value"))

	case "lambda":
		return NewValueSet(s.FunctionValueFor(c, node))

	case "function_definition":
		return NewValueSet(s.FunctionValueFor(c, node))

	case "class_definition":
		return NewValueSet(s.ClassValueFor(c, node))

	case "subscript":
		vs := c.Infer(s, node.ChildByFieldName("value"))
		out := NoValues
		for _, v := range vs.Values() {
			switch tv := v.(type) {
			case ClassLike:
				// Generic subscription: the subscripted class stands for
				// itself; type-var binding happens via DefineGenerics.
				out = out.With(tv)
			case Iterable:
				for _, lv := range tv.Iterate(s) {
					out = out.Union(lv.Infer(s))
				}
			}
		}
		return out
	}

	return NoValues
}

// inferDefinition resolves what a binding identifier is bound to, in the
// defining context.
func inferDefinition(s *Session, ctx *Context, nameNode *sitter.Node) ValueSet {
	for p := nameNode.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "function_definition", "lambda":
			if pytree.SameNode(p.ChildByFieldName("name"), nameNode) {
				return applyDecorators(s, ctx, p, s.FunctionValueFor(ctx, p))
			}
			// A parameter of the function.
			return inferParam(s, ctx, p, nameNode)

		case "class_definition":
			if pytree.SameNode(p.ChildByFieldName("name"), nameNode) {
				return applyDecorators(s, ctx, p, s.ClassValueFor(ctx, p))
			}

		case "assignment":
			if right := p.ChildByFieldName("right"); right != nil {
				left := p.ChildByFieldName("left")
				if left != nil && left.Type() == "identifier" {
					return ctx.Infer(s, right)
				}
				// Tuple unpacking: the precise element is unknown, use the
				// union of the iterated elements.
				return iterateUnion(s, ctx.Infer(s, right))
			}
			if ann := p.ChildByFieldName("type"); ann != nil {
				return ExecuteAnnotation(s, ctx, ann)
			}
			return NoValues

		case "augmented_assignment":
			return ctx.Infer(s, p.ChildByFieldName("right"))

		case "for_statement":
			if left := p.ChildByFieldName("left"); left != nil && pytree.Contains(left, nameNode.StartPoint()) {
				return iterateUnion(s, ctx.Infer(s, p.ChildByFieldName("right")))
			}
			return NoValues

		case "as_pattern":
			// `expr as name` in with/except statements.
			expr := p.NamedChild(0)
			vs := ctx.Infer(s, expr)
			if p.Parent() != nil && p.Parent().Type() == "except_clause" {
				return executeClasses(s, vs)
			}
			return vs

		case "import_statement", "import_from_statement":
			return resolveImport(s, ctx, p, nameNode)

		case "parameters":
			fn := p.Parent()
			if fn != nil {
				return inferParam(s, ctx, fn, nameNode)
			}
			return NoValues

		case "block", "module", "expression_statement":
			return NoValues
		}
	}
	return NoValues
}

// inferParam infers a parameter's value from its annotation or default.
func inferParam(s *Session, ctx *Context, funcdef, nameNode *sitter.Node) ValueSet {
	name := nameNode.Content(ctx.Source())
	for _, p := range pytree.Params(funcdef, ctx.Source()) {
		if p.Name != name {
			continue
		}
		if p.Annotation != nil {
			outer := ctx
			if outer.Parent != nil {
				outer = outer.Parent
			}
			return ExecuteAnnotation(s, outer, p.Annotation)
		}
		if p.Default != nil {
			outer := ctx
			if outer.Parent != nil {
				outer = outer.Parent
			}
			return outer.Infer(s, p.Default)
		}
		return NoValues
	}
	return NoValues
}

// applyDecorators threads a freshly inferred def/class value through its
// decorators, innermost first. A decorator that cannot be inferred leaves the
// value untouched rather than erasing it.
func applyDecorators(s *Session, ctx *Context, defNode *sitter.Node, base Value) ValueSet {
	vals := NewValueSet(base)
	decorated := defNode.Parent()
	if decorated == nil || decorated.Type() != "decorated_definition" {
		return vals
	}

	var decorators []*sitter.Node
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		if c := decorated.NamedChild(i); c.Type() == "decorator" {
			decorators = append(decorators, c)
		}
	}

	for i := len(decorators) - 1; i >= 0; i-- {
		expr := decorators[i].NamedChild(0)
		if expr == nil {
			continue
		}
		decVals := ctx.Infer(s, expr)
		if decVals.IsEmpty() {
			slog.Debug("decorator could not be inferred", "decorator", expr.Content(ctx.Source()))
			continue
		}
		applied := decVals.Execute(s, ValuesArguments{vals})
		if !applied.IsEmpty() {
			vals = applied
		}
	}
	return vals
}

// iterateUnion unions the elements of every iterable member of vs.
func iterateUnion(s *Session, vs ValueSet) ValueSet {
	out := NoValues
	for _, v := range vs.Values() {
		if it, ok := v.(Iterable); ok {
			for _, lv := range it.Iterate(s) {
				out = out.Union(lv.Infer(s))
			}
		}
	}
	return out
}

// ExecuteAnnotation infers an annotation expression and instantiates the
// resulting classes: the annotation `x: Foo` describes an instance of Foo.
func ExecuteAnnotation(s *Session, ctx *Context, node *sitter.Node) ValueSet {
	return executeClasses(s, ctx.Infer(s, node))
}

func executeClasses(s *Session, vs ValueSet) ValueSet {
	out := NoValues
	for _, v := range vs.Values() {
		if cl, ok := v.(ClassLike); ok {
			out = out.Union(s.Execute(cl, NoArguments))
		}
	}
	return out
}

// resolveImport resolves the module value an import binding refers to.
func resolveImport(s *Session, ctx *Context, imp, nameNode *sitter.Node) ValueSet {
	if s.Resolver == nil {
		return NoValues
	}
	src := ctx.Source()

	if imp.Type() == "import_statement" {
		for i := 0; i < int(imp.NamedChildCount()); i++ {
			c := imp.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				// `import a.b` binds `a` to module a.
				if pytree.SameNode(c.NamedChild(0), nameNode) {
					if m, ok := s.Resolver.Resolve(s, c.NamedChild(0).Content(src)); ok {
						return NewValueSet(m)
					}
				}
			case "aliased_import":
				alias := c.ChildByFieldName("alias")
				if alias != nil && pytree.SameNode(alias, nameNode) {
					if name := c.ChildByFieldName("name"); name != nil {
						if m, ok := s.Resolver.Resolve(s, name.Content(src)); ok {
							return NewValueSet(m)
						}
					}
				}
			}
		}
		return NoValues
	}

	// import_from_statement
	moduleName := ""
	if mn := imp.ChildByFieldName("module_name"); mn != nil {
		moduleName = strings.TrimLeft(mn.Content(src), ".")
	}
	if moduleName == "" {
		return NoValues
	}
	mod, ok := s.Resolver.Resolve(s, moduleName)
	if !ok {
		return NoValues
	}

	imported := nameNode.Content(src)
	if p := nameNode.Parent(); p != nil && p.Type() == "aliased_import" {
		if name := p.ChildByFieldName("name"); name != nil && name.NamedChildCount() > 0 {
			imported = name.NamedChild(int(name.NamedChildCount()) - 1).Content(src)
		} else if name != nil {
			imported = name.Content(src)
		}
	}
	if vs := mod.Attribute(s, imported); !vs.IsEmpty() {
		return vs
	}
	// The imported name may itself be a submodule.
	if sub, ok := s.Resolver.Resolve(s, moduleName+"."+imported); ok {
		return NewValueSet(sub)
	}
	return NoValues
}
