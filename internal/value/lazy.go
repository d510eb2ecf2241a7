package value

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// LazyValue defers inference until Infer is called. It either wraps a syntax
// node plus its context, or values that are already known.
type LazyValue interface {
	Infer(s *Session) ValueSet
	// TreeNode returns the deferred syntax node, nil for known values.
	TreeNode() *sitter.Node
}

// LazyTreeValue defers inference of a syntax node in a context.
type LazyTreeValue struct {
	ctx  *Context
	node *sitter.Node
}

// NewLazyTree wraps a node for deferred inference in ctx.
func NewLazyTree(ctx *Context, node *sitter.Node) *LazyTreeValue {
	return &LazyTreeValue{ctx: ctx, node: node}
}

func (l *LazyTreeValue) Infer(s *Session) ValueSet {
	return l.ctx.Infer(s, l.node)
}

func (l *LazyTreeValue) TreeNode() *sitter.Node {
	return l.node
}

// Context returns the enclosing context of the deferred node.
func (l *LazyTreeValue) Context() *Context {
	return l.ctx
}

// LazyKnownValue wraps an already-inferred result.
type LazyKnownValue struct {
	set ValueSet
}

// NewLazyKnown wraps single values.
func NewLazyKnown(vals ...Value) *LazyKnownValue {
	return &LazyKnownValue{set: NewValueSet(vals...)}
}

// NewLazyKnownSet wraps a whole set.
func NewLazyKnownSet(set ValueSet) *LazyKnownValue {
	return &LazyKnownValue{set: set}
}

func (l *LazyKnownValue) Infer(*Session) ValueSet {
	return l.set
}

func (l *LazyKnownValue) TreeNode() *sitter.Node {
	return nil
}
