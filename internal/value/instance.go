package value

import (
	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// Instance is an object created by calling a class. It keeps the class and
// the constructor arguments; attributes come from `self.x = ...` assignments
// in the class's methods and from the class hierarchy.
type Instance struct {
	class ClassLike
	args  Arguments
}

// NewInstance builds an instance of class constructed with args.
func NewInstance(class ClassLike, args Arguments) *Instance {
	return &Instance{class: class, args: args}
}

func (i *Instance) Kind() Kind {
	return KindInstance
}

func (i *Instance) Name() string {
	return i.class.Name()
}

func (i *Instance) Context() *Context {
	return i.class.Context()
}

func (i *Instance) Class(s *Session) ValueSet {
	return NewValueSet(i.class)
}

// ClassValue returns the instantiated class.
func (i *Instance) ClassValue() ClassLike {
	return i.class
}

// Args returns the constructor arguments.
func (i *Instance) Args() Arguments {
	return i.args
}

// Call invokes the instance through its __call__ member, when one exists.
func (i *Instance) Call(s *Session, args Arguments) ValueSet {
	out := NoValues
	for _, v := range AttributeOf(s, i, "__call__", FilterOptions{}).Values() {
		out = out.Union(s.Execute(v, args))
	}
	return out
}

// Filters composes the instance's lookup views: attributes assigned on self
// first, then the synthesized specials, then one member filter per MRO entry
// of the class.
func (i *Instance) Filters(s *Session, opts FilterOptions) []Filter {
	out := []Filter{
		&selfAttrFilter{instance: i},
		DictFilter{"__class__": NewLazyKnown(i.class)},
	}
	for _, m := range i.class.MRO(s) {
		switch entry := m.(type) {
		case *ClassValue:
			out = append(out, newClassFilter(i.class, entry, opts.OriginScope, true, i))
		case *GenericClass:
			out = append(out, newClassFilter(i.class, entry.ClassValue, opts.OriginScope, true, i))
		}
	}
	return out
}

// DescriptorGet runs the descriptor protocol when this instance's class
// defines __get__. A missing __get__ reports not handled, leaving the
// attribute value as-is.
func (i *Instance) DescriptorGet(s *Session, instance, owner Value) (ValueSet, bool) {
	getters := AttributeOf(s, i, "__get__", FilterOptions{})
	if getters.IsEmpty() {
		return NoValues, false
	}
	instSet := NewValueSet(NewNone())
	if instance != nil {
		instSet = NewValueSet(instance)
	}
	ownerSet := NoValues
	if owner != nil {
		ownerSet = NewValueSet(owner)
	}
	out := NoValues
	for _, g := range getters.Values() {
		out = out.Union(s.Execute(g, ValuesArguments{instSet, ownerSet}))
	}
	return out, true
}

// selfAttrFilter exposes the attributes the class's methods assign on their
// first parameter, e.g. `self.name = name` inside __init__.
type selfAttrFilter struct {
	instance *Instance
}

func (f *selfAttrFilter) Get(s *Session, name string) []Name {
	return f.names(s, name)
}

func (f *selfAttrFilter) Values(s *Session) []Name {
	return f.names(s, "")
}

func (f *selfAttrFilter) names(s *Session, name string) []Name {
	var out []Name
	seen := map[string]bool{}
	for _, m := range f.instance.class.MRO(s) {
		cls, ok := m.(*ClassValue)
		if !ok {
			if g, isGeneric := m.(*GenericClass); isGeneric {
				cls = g.ClassValue
			} else {
				continue
			}
		}
		body := cls.BodyContext()
		for _, def := range methodDefs(cls.Node()) {
			selfName := firstParamName(def, body.Source())
			if selfName == "" {
				continue
			}
			methodCtx := body.ChildContext(s.FunctionValueFor(body, def), def)
			for _, attr := range selfAssignments(def, body.Source(), selfName, name) {
				key := attr.name
				if name == "" && seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, newSelfAttrName(methodCtx, key, attr))
			}
		}
	}
	return out
}

type selfAssignment struct {
	name string
	node *sitter.Node // the attribute node on the assignment's left side
	rhs  *sitter.Node // nil for annotation-only assignments
	ann  *sitter.Node
}

func newSelfAttrName(ctx *Context, key string, a selfAssignment) Name {
	return Name{
		Key:  key,
		Node: a.node,
		Infer: func(s *Session) ValueSet {
			if a.rhs != nil {
				return ctx.Infer(s, a.rhs)
			}
			if a.ann != nil {
				return ExecuteAnnotation(s, ctx, a.ann)
			}
			return NoValues
		},
	}
}

// methodDefs lists the function definitions directly in a class body,
// unwrapping decorated definitions.
func methodDefs(classNode *sitter.Node) []*sitter.Node {
	body := pytree.ScopeBody(classNode)
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "decorated_definition" {
			if def := c.ChildByFieldName("definition"); def != nil {
				c = def
			}
		}
		if c.Type() == "function_definition" {
			out = append(out, c)
		}
	}
	return out
}

func firstParamName(def *sitter.Node, source []byte) string {
	params := pytree.Params(def, source)
	if len(params) == 0 || params[0].Star != 0 {
		return ""
	}
	return params[0].Name
}

// selfAssignments collects `self.x = ...` and `self.x: T` statements in a
// method body, without entering nested scopes. When name is non-empty only
// matching attributes are returned.
func selfAssignments(def *sitter.Node, source []byte, selfName, name string) []selfAssignment {
	body := pytree.ScopeBody(def)
	if body == nil {
		return nil
	}
	var out []selfAssignment
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "function_definition", "class_definition", "lambda":
				continue
			case "assignment":
				left := c.ChildByFieldName("left")
				if left == nil || left.Type() != "attribute" {
					walk(c)
					continue
				}
				obj := left.ChildByFieldName("object")
				attr := left.ChildByFieldName("attribute")
				if obj == nil || attr == nil || obj.Type() != "identifier" || obj.Content(source) != selfName {
					walk(c)
					continue
				}
				key := attr.Content(source)
				if name != "" && key != name {
					continue
				}
				out = append(out, selfAssignment{
					name: key,
					node: attr,
					rhs:  c.ChildByFieldName("right"),
					ann:  c.ChildByFieldName("type"),
				})
			default:
				walk(c)
			}
		}
	}
	walk(body)
	return out
}
