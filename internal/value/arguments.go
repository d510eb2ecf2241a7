package value

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Argument is one actual parameter of a call: a keyword (empty for
// positional), a star marker for forwarded argument packs, and the lazily
// inferred value. Node anchors diagnostics to the argument expression; it is
// nil for synthesized arguments.
type Argument struct {
	Keyword string
	Star    int // 0 plain, 1 *args, 2 **kwargs
	Value   LazyValue
	Node    *sitter.Node
}

// Arguments abstracts a call's actual parameters, polymorphic over
// tree-derived, synthesized and wrapping variants.
type Arguments interface {
	Unpack(s *Session) []Argument
}

// NoArguments is an empty argument list.
var NoArguments Arguments = ValuesArguments{}

// TreeArguments wraps an argument_list syntax node; values are inferred
// lazily in the enclosing context.
type TreeArguments struct {
	ctx     *Context
	arglist *sitter.Node
}

// NewTreeArguments builds Arguments over an argument_list node. A nil arglist
// is an empty call.
func NewTreeArguments(ctx *Context, arglist *sitter.Node) *TreeArguments {
	return &TreeArguments{ctx: ctx, arglist: arglist}
}

// Context returns the context the call site lives in.
func (a *TreeArguments) Context() *Context {
	return a.ctx
}

func (a *TreeArguments) Unpack(*Session) []Argument {
	if a.arglist == nil {
		return nil
	}
	var out []Argument
	for i := 0; i < int(a.arglist.NamedChildCount()); i++ {
		n := a.arglist.NamedChild(i)
		switch n.Type() {
		case "keyword_argument":
			kw := ""
			if k := n.ChildByFieldName("name"); k != nil {
				kw = k.Content(a.ctx.Source())
			}
			val := n.ChildByFieldName("value")
			out = append(out, Argument{
				Keyword: kw,
				Value:   NewLazyTree(a.ctx, val),
				Node:    val,
			})
		case "list_splat":
			out = append(out, Argument{Star: 1, Value: NewLazyTree(a.ctx, n), Node: n})
		case "dictionary_splat":
			out = append(out, Argument{Star: 2, Value: NewLazyTree(a.ctx, n), Node: n})
		case "comment":
		default:
			out = append(out, Argument{Value: NewLazyTree(a.ctx, n), Node: n})
		}
	}
	return out
}

// ValuesArguments synthesizes arguments from already-known value sets, used
// when a patch re-invokes inference machinery.
type ValuesArguments []ValueSet

func (a ValuesArguments) Unpack(*Session) []Argument {
	out := make([]Argument, 0, len(a))
	for _, set := range a {
		out = append(out, Argument{Value: NewLazyKnownSet(set)})
	}
	return out
}

// PrependedArguments injects implicit leading positional arguments (e.g. a
// classmethod's class, or a bound method's instance) before the wrapped
// arguments.
type PrependedArguments struct {
	first   []LazyValue
	wrapped Arguments
}

// NewPrependedArguments prepends the given values to args.
func NewPrependedArguments(args Arguments, first ...LazyValue) *PrependedArguments {
	return &PrependedArguments{first: first, wrapped: args}
}

func (a *PrependedArguments) Unpack(s *Session) []Argument {
	out := make([]Argument, 0, len(a.first))
	for _, lv := range a.first {
		out = append(out, Argument{Value: lv})
	}
	if a.wrapped != nil {
		out = append(out, a.wrapped.Unpack(s)...)
	}
	return out
}

// PositionalArg returns the index-th positional argument's inferred values.
func PositionalArg(s *Session, args Arguments, index int) ValueSet {
	i := 0
	for _, a := range args.Unpack(s) {
		if a.Keyword != "" || a.Star != 0 {
			continue
		}
		if i == index {
			return a.Value.Infer(s)
		}
		i++
	}
	return NoValues
}
