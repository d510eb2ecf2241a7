package value

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pyscope/internal/pytree"
)

// GlobalFilter exposes the names bound directly in one lexical scope. In the
// innermost scope lookups can be limited to bindings before a position, which
// keeps flow-insensitive resolution from seeing later rebindings.
type GlobalFilter struct {
	ctx    *Context
	until  *sitter.Point
	origin *sitter.Node
}

// NewGlobalFilter builds the lexical filter over ctx's scope.
func NewGlobalFilter(ctx *Context, until *sitter.Point, origin *sitter.Node) *GlobalFilter {
	return &GlobalFilter{ctx: ctx, until: until, origin: origin}
}

func (f *GlobalFilter) Get(s *Session, name string) []Name {
	return f.names(name)
}

func (f *GlobalFilter) Values(s *Session) []Name {
	return f.names("")
}

func (f *GlobalFilter) names(name string) []Name {
	nodes := bindingsInScope(f.ctx.Node, f.ctx.Source(), name, f.until)
	out := make([]Name, 0, len(nodes))
	seen := map[string]bool{}
	for _, n := range nodes {
		key := n.Content(f.ctx.Source())
		if name == "" {
			// Enumeration keeps one entry per name, the first binding.
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, newTreeName(f.ctx, key, n))
	}
	return out
}

// newTreeName wraps a binding identifier as a resolvable Name.
func newTreeName(ctx *Context, key string, node *sitter.Node) Name {
	return Name{
		Key:  key,
		Node: node,
		Infer: func(s *Session) ValueSet {
			return inferDefinition(s, ctx, node)
		},
	}
}

// ClassFilter exposes the names defined directly in one class body, applying
// the access rules of attribute lookup: name mangling and the distinction
// between class-level and instance-level annotations.
type ClassFilter struct {
	// owner is the class the lookup started on; descriptors see it as the
	// owner argument.
	owner ClassLike
	// class is the MRO entry whose body is searched.
	class *ClassValue
	// origin is the syntax node the access happens at, for mangling.
	origin *sitter.Node
	// isInstance marks lookups through an instance rather than the class.
	isInstance bool
	// instance is the accessing instance, nil on class access.
	instance Value
}

func newClassFilter(owner ClassLike, class *ClassValue, origin *sitter.Node, isInstance bool, instance Value) *ClassFilter {
	return &ClassFilter{
		owner:      owner,
		class:      class,
		origin:     origin,
		isInstance: isInstance,
		instance:   instance,
	}
}

func (f *ClassFilter) Get(s *Session, name string) []Name {
	if !f.accessPossible(name) {
		return nil
	}
	return f.names(name)
}

func (f *ClassFilter) Values(s *Session) []Name {
	var out []Name
	for _, n := range f.names("") {
		if f.accessPossible(n.Key) {
			out = append(out, n)
		}
	}
	return out
}

func (f *ClassFilter) names(name string) []Name {
	body := f.class.BodyContext()
	nodes := bindingsInScope(f.class.Node(), body.Source(), name, nil)
	out := make([]Name, 0, len(nodes))
	seen := map[string]bool{}
	for _, n := range nodes {
		if !f.isInstance && instanceOnlyAnnotation(n, body.Source()) {
			continue
		}
		key := n.Content(body.Source())
		if name == "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, f.memberName(body, key, n))
	}
	return out
}

// accessPossible applies name mangling: a __name without trailing underscores
// is only visible from code lexically inside the defining class.
func (f *ClassFilter) accessPossible(name string) bool {
	if !strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") {
		return true
	}
	return f.originInsideClass()
}

func (f *ClassFilter) originInsideClass() bool {
	classNode := f.class.Node()
	for n := f.origin; n != nil; n = n.Parent() {
		if pytree.SameNode(n, classNode) {
			return true
		}
	}
	return false
}

// instanceOnlyAnnotation reports whether the binding is an annotation without
// a value and without a ClassVar marker, e.g. `x: int` in a class body. Such
// names exist on instances only.
func instanceOnlyAnnotation(nameNode *sitter.Node, source []byte) bool {
	assign := nameNode.Parent()
	if assign == nil || assign.Type() != "assignment" {
		return false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || !pytree.SameNode(left, nameNode) {
		return false
	}
	if assign.ChildByFieldName("right") != nil {
		return false
	}
	ann := assign.ChildByFieldName("type")
	if ann == nil {
		return false
	}
	return !strings.Contains(ann.Content(source), "ClassVar")
}

// memberName resolves a class member and applies the binding step of
// attribute access: descriptors run their protocol, plain functions bind to
// the accessing instance.
func (f *ClassFilter) memberName(body *Context, key string, node *sitter.Node) Name {
	return Name{
		Key:  key,
		Node: node,
		Infer: func(s *Session) ValueSet {
			raw := inferDefinition(s, body, node)
			out := NoValues
			for _, v := range raw.Values() {
				if dg, ok := v.(DescriptorGetter); ok {
					if got, handled := dg.DescriptorGet(s, f.instance, f.owner); handled {
						out = out.Union(got)
						continue
					}
				}
				if f.instance != nil {
					if fn, ok := v.(*FunctionValue); ok {
						out = out.With(NewBoundMethod(f.instance, f.owner, fn))
						continue
					}
				}
				out = out.With(v)
			}
			return out
		},
	}
}

// DictFilter serves a fixed name table, used for synthesized members such as
// an instance's __class__ or patched module attributes.
type DictFilter map[string]LazyValue

func (f DictFilter) Get(s *Session, name string) []Name {
	lv, ok := f[name]
	if !ok {
		return nil
	}
	return []Name{{Key: name, Infer: lv.Infer}}
}

func (f DictFilter) Values(s *Session) []Name {
	out := make([]Name, 0, len(f))
	for name, lv := range f {
		out = append(out, Name{Key: name, Infer: lv.Infer})
	}
	return out
}
