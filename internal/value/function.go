package value

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// FunctionValue represents a def or lambda as a value, pinned to the context
// it was defined in.
type FunctionValue struct {
	ctx  *Context
	node *sitter.Node
}

func (f *FunctionValue) Kind() Kind {
	return KindFunction
}

func (f *FunctionValue) Name() string {
	if f.node.Type() == "lambda" {
		return "<lambda>"
	}
	if n := f.node.ChildByFieldName("name"); n != nil {
		return n.Content(f.ctx.Source())
	}
	return ""
}

func (f *FunctionValue) Context() *Context {
	return f.ctx
}

// Node returns the function_definition or lambda node.
func (f *FunctionValue) Node() *sitter.Node {
	return f.node
}

// BodyContext returns the context of the function body scope.
func (f *FunctionValue) BodyContext() *Context {
	return f.ctx.ChildContext(f, f.node)
}

// Docstring returns the function docstring.
func (f *FunctionValue) Docstring() string {
	return pytree.Docstring(f.node, f.ctx.Source())
}

func (f *FunctionValue) Class(s *Session) ValueSet {
	return s.BuiltinAttr("function")
}

// Call infers the possible return values: the union of the function's return
// expressions, or, when the body returns nothing explicit (typical for
// stubs), instances of the return annotation. Arguments are not bound to
// parameters; parameter values come from annotations and defaults instead.
func (f *FunctionValue) Call(s *Session, args Arguments) ValueSet {
	return s.memoSet(f, "returns", func() ValueSet {
		if f.node.Type() == "lambda" {
			return f.BodyContext().Infer(s, f.node.ChildByFieldName("body"))
		}

		out := NoValues
		body := f.BodyContext()
		for _, ret := range returnStatements(pytree.ScopeBody(f.node)) {
			if expr := ret.NamedChild(0); expr != nil {
				out = out.Union(body.Infer(s, expr))
			}
		}
		if !out.IsEmpty() {
			return out
		}
		if ann := f.node.ChildByFieldName("return_type"); ann != nil {
			return ExecuteAnnotation(s, f.ctx, ann)
		}
		return NoValues
	})
}

// returnStatements collects return statements in a body without entering
// nested def/class/lambda scopes.
func returnStatements(body *sitter.Node) []*sitter.Node {
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "return_statement":
				out = append(out, c)
			case "function_definition", "class_definition", "lambda":
			default:
				walk(c)
			}
		}
	}
	walk(body)
	return out
}

func (f *FunctionValue) Filters(s *Session, opts FilterOptions) []Filter {
	if opts.SearchGlobal {
		return []Filter{NewGlobalFilter(f.BodyContext(), opts.UntilPosition, opts.OriginScope)}
	}
	var out []Filter
	for _, cls := range f.Class(s).Values() {
		cv, ok := cls.(*ClassValue)
		if !ok {
			continue
		}
		for _, m := range cv.MRO(s) {
			if mc, ok := m.(*ClassValue); ok {
				out = append(out, newClassFilter(cv, mc, opts.OriginScope, true, f))
			}
		}
	}
	return out
}

func (f *FunctionValue) Signatures(s *Session) []Signature {
	src := f.ctx.Source()
	var params []Param
	for _, p := range pytree.Params(f.node, src) {
		param := Param{Name: p.Name, Star: p.Star}
		if p.Annotation != nil {
			param.Annotation = p.Annotation.Content(src)
		}
		if p.Default != nil {
			param.Default = p.Default.Content(src)
		}
		params = append(params, param)
	}
	return []Signature{{Name: f.Name(), Params: params}}
}

// BoundMethod is a function seen through an instance: calls get the instance
// prepended, signatures lose the first parameter.
type BoundMethod struct {
	instance Value
	owner    Value
	fn       *FunctionValue
}

// NewBoundMethod binds fn to instance, with owner as the class the method was
// found on.
func NewBoundMethod(instance, owner Value, fn *FunctionValue) *BoundMethod {
	return &BoundMethod{instance: instance, owner: owner, fn: fn}
}

// Instance returns the bound instance.
func (m *BoundMethod) Instance() Value { return m.instance }

// Owner returns the class the method was found on.
func (m *BoundMethod) Owner() Value { return m.owner }

// Function returns the underlying function.
func (m *BoundMethod) Function() *FunctionValue { return m.fn }

func (m *BoundMethod) Kind() Kind {
	return KindFunction
}

func (m *BoundMethod) Name() string {
	return m.fn.Name()
}

func (m *BoundMethod) Context() *Context {
	return m.fn.Context()
}

func (m *BoundMethod) Class(s *Session) ValueSet {
	return s.BuiltinAttr("function")
}

func (m *BoundMethod) Call(s *Session, args Arguments) ValueSet {
	return s.Execute(m.fn, NewPrependedArguments(args, NewLazyKnown(m.instance)))
}

func (m *BoundMethod) Filters(s *Session, opts FilterOptions) []Filter {
	return m.fn.Filters(s, opts)
}

func (m *BoundMethod) Signatures(s *Session) []Signature {
	var out []Signature
	for _, sig := range m.fn.Signatures(s) {
		out = append(out, sig.DropFirst())
	}
	return out
}

func (m *BoundMethod) IdentityKey() any {
	return [2]any{identityOf(m.instance), identityOf(m.fn)}
}

// Param is one formal parameter of a signature.
type Param struct {
	Name       string
	Annotation string
	Default    string
	Star       int // 0 plain, 1 *args, 2 **kwargs
}

func (p Param) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("*", p.Star))
	b.WriteString(p.Name)
	if p.Annotation != "" {
		b.WriteString(": ")
		b.WriteString(p.Annotation)
	}
	if p.Default != "" {
		b.WriteString("=")
		b.WriteString(p.Default)
	}
	return b.String()
}

// Signature is a callable's display signature.
type Signature struct {
	Name   string
	Params []Param
}

// DropFirst removes the leading parameter, for implicit self/cls binding.
func (sig Signature) DropFirst() Signature {
	if len(sig.Params) == 0 || sig.Params[0].Star != 0 {
		return sig
	}
	return Signature{Name: sig.Name, Params: sig.Params[1:]}
}

// Bind renames the signature to owner and removes the implicit first
// parameter, for constructor display.
func (sig Signature) Bind(owner Value) Signature {
	bound := sig.DropFirst()
	bound.Name = owner.Name()
	return bound
}

func (sig Signature) String() string {
	parts := make([]string, 0, len(sig.Params))
	for _, p := range sig.Params {
		parts = append(parts, p.String())
	}
	return sig.Name + "(" + strings.Join(parts, ", ") + ")"
}
