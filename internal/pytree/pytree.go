package pytree

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Tree is a parsed Python source file. The underlying tree-sitter tree and the
// source bytes are read-only after Parse returns; consumers share them freely.
type Tree struct {
	Source []byte
	ts     *sitter.Tree
}

// Parse parses Python source into a Tree. The parse is error-tolerant: a tree
// is returned even for syntactically broken input.
func Parse(ctx context.Context, source []byte) (*Tree, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("source is not valid UTF-8")
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	ts, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return &Tree{Source: source, ts: ts}, nil
}

// Root returns the module node.
func (t *Tree) Root() *sitter.Node {
	return t.ts.RootNode()
}

// Content returns the source text of a node.
func (t *Tree) Content(n *sitter.Node) string {
	return n.Content(t.Source)
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.ts != nil {
		t.ts.Close()
	}
}

// Language exposes the grammar, for building queries against this tree.
func Language() *sitter.Language {
	return python.GetLanguage()
}

// SameNode reports whether two nodes refer to the same syntax node. Tree-sitter
// hands out distinct cursor structs for one node, so identity is span-based.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// NodeKey is a comparable identity for a node within one tree, usable as a
// cache key.
type NodeKey struct {
	Start, End uint32
	Type       string
}

// KeyOf returns the identity key of a node.
func KeyOf(n *sitter.Node) NodeKey {
	return NodeKey{Start: n.StartByte(), End: n.EndByte(), Type: n.Type()}
}

// PointBefore reports a < b in document order.
func PointBefore(a, b sitter.Point) bool {
	return a.Row < b.Row || (a.Row == b.Row && a.Column < b.Column)
}

// PointBeforeEq reports a <= b in document order.
func PointBeforeEq(a, b sitter.Point) bool {
	return !PointBefore(b, a)
}

// Contains reports whether pos lies within n's span (inclusive on both ends).
func Contains(n *sitter.Node, pos sitter.Point) bool {
	return PointBeforeEq(n.StartPoint(), pos) && PointBeforeEq(pos, n.EndPoint())
}

// ContainsStrictStart reports start < pos <= end, the containment rule flow
// branch lookup uses: the introducing keyword itself is not "inside" a branch.
func ContainsStrictStart(n *sitter.Node, pos sitter.Point) bool {
	return PointBefore(n.StartPoint(), pos) && PointBeforeEq(pos, n.EndPoint())
}

// Children returns all direct children of n, including anonymous tokens.
func Children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildren returns the named children of n.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// FirstLeaf returns the first leaf node under n, or n itself when n has no
// children.
func FirstLeaf(n *sitter.Node) *sitter.Node {
	for n.ChildCount() > 0 {
		n = n.Child(0)
	}
	return n
}
