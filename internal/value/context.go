package value

import (
	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// Context is a lexical scope pinned to its module: the module root, a class
// body, or a function body. Contexts form a parent chain used for name
// resolution. They are immutable after construction.
type Context struct {
	Module *ModuleValue
	Parent *Context
	// Owner is the value whose scope this is; the module value itself at the
	// root.
	Owner Value
	// Node is the scope's syntax node.
	Node *sitter.Node
}

// Tree returns the module's parse tree.
func (c *Context) Tree() *pytree.Tree {
	return c.Module.Tree()
}

// Source returns the module's source bytes.
func (c *Context) Source() []byte {
	return c.Module.Tree().Source
}

// IsClassScope reports whether this context is a class body.
func (c *Context) IsClassScope() bool {
	_, ok := c.Owner.(*ClassValue)
	return ok
}

// ChildContext builds the context of a nested scope owned by owner.
func (c *Context) ChildContext(owner Value, scopeNode *sitter.Node) *Context {
	return &Context{Module: c.Module, Parent: c, Owner: owner, Node: scopeNode}
}

// ContextAt descends from the module root to the innermost scope containing
// pos, materializing class/function values along the way.
func (m *ModuleValue) ContextAt(s *Session, pos sitter.Point) *Context {
	ctx := m.RootContext()
	for {
		inner := innerScopeAt(ctx.Node, pos)
		if inner == nil {
			return ctx
		}
		switch inner.Type() {
		case "class_definition":
			ctx = ctx.ChildContext(s.ClassValueFor(ctx, inner), inner)
		case "function_definition", "lambda":
			ctx = ctx.ChildContext(s.FunctionValueFor(ctx, inner), inner)
		default:
			return ctx
		}
	}
}

// innerScopeAt finds the closest scope node strictly below scope containing
// pos, without entering deeper scopes.
func innerScopeAt(scope *sitter.Node, pos sitter.Point) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if !pytree.Contains(c, pos) {
				continue
			}
			if pytree.IsScope(c) {
				found = c
				return
			}
			walk(c)
		}
	}
	walk(scope)
	return found
}

// ResolveName resolves a plain name through the lexical chain: the local
// scope first, then enclosing function/module scopes (enclosing class bodies
// are invisible to nested scopes, per Python), then builtins.
func (c *Context) ResolveName(s *Session, name string, until *sitter.Point) ValueSet {
	innermost := true
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.IsClassScope() && !innermost {
			innermost = false
			continue
		}
		pos := until
		if !innermost {
			pos = nil
		}
		innermost = false

		nodes := bindingsInScope(ctx.Node, ctx.Source(), name, pos)
		if len(nodes) == 0 {
			continue
		}
		out := NoValues
		for _, n := range nodes {
			out = out.Union(inferDefinition(s, ctx, n))
		}
		if !out.IsEmpty() {
			return out
		}
	}
	return s.BuiltinAttr(name)
}

// bindingsInScope collects the identifier nodes binding name directly in the
// scope: assignments, def/class statements, parameters, loop and with
// targets, and imports. Nested scopes are not entered. When name is empty,
// every binding is returned.
func bindingsInScope(scope *sitter.Node, source []byte, name string, until *sitter.Point) []*sitter.Node {
	var out []*sitter.Node
	add := func(id *sitter.Node) {
		if id == nil || id.Type() != "identifier" {
			return
		}
		if name != "" && id.Content(source) != name {
			return
		}
		if until != nil && !pytree.PointBefore(id.StartPoint(), *until) {
			return
		}
		out = append(out, id)
	}

	if scope.Type() == "function_definition" || scope.Type() == "lambda" {
		if params := scope.ChildByFieldName("parameters"); params != nil {
			collectTargets(params, source, add)
		}
	}

	body := pytree.ScopeBody(scope)
	if body == nil {
		return out
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "function_definition", "class_definition":
				add(c.ChildByFieldName("name"))
			case "decorated_definition":
				if def := c.ChildByFieldName("definition"); def != nil {
					add(def.ChildByFieldName("name"))
				}
			case "lambda":
				// Opens its own scope; nothing binds here.
			case "assignment", "augmented_assignment":
				collectTargets(c.ChildByFieldName("left"), source, add)
				walk(c)
			case "for_statement":
				collectTargets(c.ChildByFieldName("left"), source, add)
				walk(c)
			case "with_statement", "as_pattern":
				collectTargets(c, source, add)
				walk(c)
			case "import_statement", "import_from_statement":
				collectImportBindings(c, source, add)
			case "global_statement", "nonlocal_statement":
				// Rebinding declarations, not definitions.
			default:
				walk(c)
			}
		}
	}
	walk(body)
	return out
}

// collectTargets gathers the identifiers bound by an assignment/loop/with
// target, descending tuple and list patterns.
func collectTargets(n *sitter.Node, source []byte, add func(*sitter.Node)) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		add(n)
	case "tuple_pattern", "list_pattern", "pattern_list", "tuple", "list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			collectTargets(n.NamedChild(i), source, add)
		}
	case "typed_parameter", "default_parameter", "typed_default_parameter",
		"list_splat_pattern", "dictionary_splat_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "identifier" {
				add(c)
				break
			}
		}
	case "parameters":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			collectTargets(n.NamedChild(i), source, add)
		}
	case "as_pattern":
		if target := n.ChildByFieldName("alias"); target != nil && target.NamedChildCount() > 0 {
			collectTargets(target.NamedChild(0), source, add)
		}
	case "with_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "with_clause" {
				for j := 0; j < int(c.NamedChildCount()); j++ {
					if item := c.NamedChild(j); item.Type() == "with_item" {
						if v := item.ChildByFieldName("value"); v != nil && v.Type() == "as_pattern" {
							collectTargets(v, source, add)
						}
					}
				}
			}
		}
	case "as_pattern_target":
		collectTargets(n.NamedChild(0), source, add)
	}
}

// collectImportBindings gathers the local names an import statement binds.
func collectImportBindings(imp *sitter.Node, source []byte, add func(*sitter.Node)) {
	switch imp.Type() {
	case "import_statement":
		for i := 0; i < int(imp.NamedChildCount()); i++ {
			c := imp.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				// `import a.b` binds `a`.
				add(c.NamedChild(0))
			case "aliased_import":
				if alias := c.ChildByFieldName("alias"); alias != nil {
					add(alias)
				}
			}
		}
	case "import_from_statement":
		for i := 0; i < int(imp.NamedChildCount()); i++ {
			c := imp.NamedChild(i)
			if pytree.SameNode(c, imp.ChildByFieldName("module_name")) {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				// `from m import n` binds the last component.
				add(c.NamedChild(int(c.NamedChildCount()) - 1))
			case "aliased_import":
				if alias := c.ChildByFieldName("alias"); alias != nil {
					add(alias)
				}
			}
		}
	}
}
