// Package engine is the query surface over an indexed project: inference at
// a position, completion, call signatures and class linearization.
package engine

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/diag"
	"pyscope/internal/pytree"
	"pyscope/internal/registry"
	"pyscope/internal/stdlib"
	"pyscope/internal/value"
)

// Engine answers queries against the modules registered in a registry. Each
// query runs in a fresh session; nothing is cached across queries.
type Engine struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// Result is one inferred value at a position.
type Result struct {
	Kind        string
	Name        string
	Description string
}

func (e *Engine) session(sink diag.Sink) *value.Session {
	s := value.NewSession(sink, e.reg)
	stdlib.Install(s)
	if builtins, ok := e.reg.Builtins(); ok {
		s.SetBuiltins(builtins)
	}
	return s
}

func (e *Engine) moduleAt(s *value.Session, name string) (*value.ModuleValue, error) {
	mod, ok := e.reg.Resolve(s, name)
	if !ok {
		return nil, fmt.Errorf("module %q is not indexed", name)
	}
	return mod, nil
}

// Infer resolves the expression at a 1-based line and column.
func (e *Engine) Infer(moduleName string, line, col int) ([]Result, error) {
	s := e.session(diag.Discard{})
	mod, err := e.moduleAt(s, moduleName)
	if err != nil {
		return nil, err
	}
	pos := point(line, col)
	node := nodeAt(mod.Tree().Root(), pos)
	if node == nil {
		return nil, fmt.Errorf("no expression at %d:%d", line, col)
	}
	node = promoteToAttribute(node)

	ctx := mod.ContextAt(s, pos)
	vals := ctx.Infer(s, node)

	results := make([]Result, 0, vals.Len())
	for _, v := range vals.Values() {
		results = append(results, Result{
			Kind:        v.Kind().String(),
			Name:        v.Name(),
			Description: describe(s, v),
		})
	}
	return results, nil
}

// Complete lists the names available at a 1-based line and column: attribute
// members after a dot, otherwise everything visible in the lexical chain plus
// builtins. The result is sorted and deduplicated.
func (e *Engine) Complete(moduleName string, line, col int) ([]string, error) {
	s := e.session(diag.Discard{})
	mod, err := e.moduleAt(s, moduleName)
	if err != nil {
		return nil, err
	}
	pos := point(line, col)
	ctx := mod.ContextAt(s, pos)

	seen := map[string]bool{}
	add := func(names []value.Name) {
		for _, n := range names {
			seen[n.Key] = true
		}
	}

	if obj := attributeObject(mod, pos); obj != nil {
		for _, v := range ctx.Infer(s, obj).Values() {
			for _, f := range v.Filters(s, value.FilterOptions{}) {
				add(f.Values(s))
			}
		}
	} else {
		for c := ctx; c != nil; c = c.Parent {
			for _, f := range c.Owner.Filters(s, value.FilterOptions{SearchGlobal: true}) {
				add(f.Values(s))
			}
		}
		if builtins := s.Builtins(); builtins != nil {
			for _, f := range builtins.Filters(s, value.FilterOptions{}) {
				add(f.Values(s))
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Signatures describes the callable at a 1-based line and column.
func (e *Engine) Signatures(moduleName string, line, col int) ([]string, error) {
	s := e.session(diag.Discard{})
	mod, err := e.moduleAt(s, moduleName)
	if err != nil {
		return nil, err
	}
	pos := point(line, col)
	node := nodeAt(mod.Tree().Root(), pos)
	if node == nil {
		return nil, fmt.Errorf("no expression at %d:%d", line, col)
	}
	node = promoteToAttribute(node)

	var out []string
	for _, v := range mod.ContextAt(s, pos).Infer(s, node).Values() {
		sp, ok := v.(value.SignatureProvider)
		if !ok {
			continue
		}
		for _, sig := range sp.Signatures(s) {
			out = append(out, sig.String())
		}
	}
	return out, nil
}

// MRO returns the linearization of a class reachable from a module's scope.
// Dotted names descend through attributes.
func (e *Engine) MRO(moduleName, className string) ([]string, error) {
	s := e.session(diag.Discard{})
	mod, err := e.moduleAt(s, moduleName)
	if err != nil {
		return nil, err
	}

	vals := value.NewValueSet(mod)
	for _, part := range strings.Split(className, ".") {
		vals = vals.Attribute(s, part)
	}
	for _, v := range vals.Values() {
		if cl, ok := v.(value.ClassLike); ok {
			var out []string
			for _, m := range cl.MRO(s) {
				out = append(out, m.Name())
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s.%s is not a class", moduleName, className)
}

func point(line, col int) sitter.Point {
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return sitter.Point{Row: uint32(line - 1), Column: uint32(col - 1)}
}

// nodeAt descends to the smallest named node containing pos.
func nodeAt(root *sitter.Node, pos sitter.Point) *sitter.Node {
	var found *sitter.Node
	node := root
	for node != nil {
		var next *sitter.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			if pytree.Contains(c, pos) {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		found = next
		node = next
	}
	return found
}

// promoteToAttribute widens an identifier on the right side of a dot to the
// whole attribute expression, so that inference sees the access.
func promoteToAttribute(node *sitter.Node) *sitter.Node {
	if node.Type() != "identifier" {
		return node
	}
	p := node.Parent()
	if p != nil && p.Type() == "attribute" && pytree.SameNode(p.ChildByFieldName("attribute"), node) {
		return p
	}
	return node
}

// attributeObject returns the object expression when pos sits on the
// attribute side of a dotted access, nil otherwise.
func attributeObject(mod *value.ModuleValue, pos sitter.Point) *sitter.Node {
	node := nodeAt(mod.Tree().Root(), pos)
	if node == nil {
		return nil
	}
	attr := promoteToAttribute(node)
	if attr.Type() == "attribute" && !pytree.SameNode(attr, node) {
		return attr.ChildByFieldName("object")
	}
	return nil
}

func describe(s *value.Session, v value.Value) string {
	if sp, ok := v.(value.SignatureProvider); ok {
		if sigs := sp.Signatures(s); len(sigs) > 0 {
			return sigs[0].String()
		}
	}
	switch tv := v.(type) {
	case *value.ClassValue:
		if doc := tv.Docstring(); doc != "" {
			return firstLine(doc)
		}
		return "class " + tv.Name()
	case *value.ModuleValue:
		return "module " + tv.Name()
	}
	return ""
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
