package pytree

import (
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrOutsideFlow is returned by BranchKeyword when the inner node does not lie
// within the compound statement's span.
var ErrOutsideFlow = errors.New("node is not part of the flow statement")

// Node type groups mirroring the Python grammar.
var (
	// containerTypes are wrappers StatementAt descends through instead of
	// returning: they are not independently evaluable units themselves.
	containerTypes = map[string]bool{
		"module":                true,
		"block":                 true,
		"decorated_definition":  true,
		"if_statement":          true,
		"elif_clause":           true,
		"else_clause":           true,
		"for_statement":         true,
		"while_statement":       true,
		"try_statement":         true,
		"except_clause":         true,
		"finally_clause":        true,
		"with_statement":        true,
		"match_statement":       true,
		"case_clause":           true,
		"class_definition":      true,
		"function_definition":   true,
	}

	// executableTypes are expressions that static analysis feeds to inference
	// independently.
	executableTypes = map[string]bool{
		"function_definition":      true,
		"class_definition":         true,
		"import_statement":         true,
		"import_from_statement":    true,
		"boolean_operator":         true,
		"not_operator":             true,
		"comparison_operator":      true,
		"binary_operator":          true,
		"unary_operator":           true,
		"conditional_expression":   true,
		"call":                     true,
		"attribute":                true,
		"subscript":                true,
		"parenthesized_expression": true,
		"tuple":                    true,
		"list":                     true,
		"set":                      true,
		"dictionary":               true,
		"await":                    true,
	}

	flowKeywords = map[string]bool{
		"if": true, "elif": true, "else": true, "try": true, "except": true,
		"finally": true, "for": true, "while": true, "with": true,
	}

	scopeTypes = map[string]bool{
		"module":              true,
		"class_definition":    true,
		"function_definition": true,
		"lambda":              true,
	}
)

// StatementAt returns the innermost statement enclosing pos: descending stops
// at the first node that is an evaluable unit rather than a suite, decorated
// wrapper or compound statement body. Returns nil when pos is outside every
// statement.
func StatementAt(node *sitter.Node, pos sitter.Point) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if !Contains(c, pos) {
			continue
		}
		if !c.IsNamed() {
			continue
		}
		if containerTypes[c.Type()] {
			if inner := StatementAt(c, pos); inner != nil {
				return inner
			}
			continue
		}
		if c.Type() == "comment" {
			continue
		}
		return c
	}
	return nil
}

// ExecutableSubnodes returns the ordered sub-expressions of a statement that
// should be fed to inference independently. A bare name directly followed by
// `=` is a binding target, not a read, and is excluded.
func ExecutableSubnodes(node *sitter.Node, source []byte) []*sitter.Node {
	return executableNodes(node, source, false)
}

func executableNodes(node *sitter.Node, source []byte, lastAdded bool) []*sitter.Node {
	var result []*sitter.Node

	switch node.Type() {
	case "identifier":
		if lastAdded {
			return nil
		}
		if p := node.Parent(); p != nil {
			switch p.Type() {
			case "parameters", "typed_parameter", "default_parameter", "typed_default_parameter":
				return nil
			}
		}
		if next := node.NextSibling(); next != nil && next.Content(source) == "=" {
			return nil
		}
		result = append(result, node)
	case "assignment", "augmented_assignment":
		// Evaluating both sides of the statement is enough for analysis.
		result = append(result, node)
		for i := 0; i < int(node.ChildCount()); i++ {
			result = append(result, executableNodes(node.Child(i), source, true)...)
		}
	case "decorator":
		// The decorator expression minus its own call parentheses.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			expr := node.NamedChild(i)
			if expr.Type() == "call" {
				if fn := expr.ChildByFieldName("function"); fn != nil {
					result = append(result, executableNodes(fn, source, false)...)
				}
				if args := expr.ChildByFieldName("arguments"); args != nil {
					for j := 0; j < int(args.NamedChildCount()); j++ {
						result = append(result, executableNodes(args.NamedChild(j), source, false)...)
					}
				}
			} else {
				result = append(result, executableNodes(expr, source, false)...)
			}
		}
	default:
		if executableTypes[node.Type()] && !lastAdded {
			result = append(result, node)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			result = append(result, executableNodes(node.Child(i), source, lastAdded)...)
		}
	}
	return result
}

// BranchKeyword returns the clause keyword (if/elif/else/except/finally/for/
// while/with/try) introducing the branch of flow that contains inner. The
// keyword leaf itself does not belong to any branch.
func BranchKeyword(flow, inner *sitter.Node, source []byte) (string, error) {
	pos := inner.StartPoint()
	if !ContainsStrictStart(flow, pos) {
		return "", ErrOutsideFlow
	}

	keyword := ""
	for i := 0; i < int(flow.ChildCount()); i++ {
		c := flow.Child(i)
		if PointBefore(pos, c.StartPoint()) {
			return keyword, nil
		}
		switch c.Type() {
		case "elif_clause", "else_clause", "except_clause", "finally_clause":
			if ContainsStrictStart(c, pos) {
				first := FirstLeaf(c).Content(source)
				if flowKeywords[first] {
					return first, nil
				}
			}
			first := FirstLeaf(c).Content(source)
			if flowKeywords[first] {
				keyword = first
			}
		default:
			if c.ChildCount() == 0 && flowKeywords[c.Content(source)] {
				keyword = c.Content(source)
			}
		}
	}
	return keyword, nil
}

// IsScope reports whether node opens a new lexical scope.
func IsScope(node *sitter.Node) bool {
	return scopeTypes[node.Type()]
}

// EnclosingScope returns the nearest scope node strictly above node, or nil
// for the module root itself.
func EnclosingScope(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if IsScope(p) {
			return p
		}
	}
	return nil
}

// ScopeBody returns the statement list of a scope node: the module itself, or
// the body block of a class/function.
func ScopeBody(scope *sitter.Node) *sitter.Node {
	switch scope.Type() {
	case "module":
		return scope
	case "class_definition", "function_definition":
		return scope.ChildByFieldName("body")
	case "lambda":
		return scope.ChildByFieldName("body")
	}
	return nil
}

// DefinitionName returns the name identifier of a class or function
// definition, unwrapping decorated definitions.
func DefinitionName(def *sitter.Node) *sitter.Node {
	if def.Type() == "decorated_definition" {
		if d := def.ChildByFieldName("definition"); d != nil {
			def = d
		}
	}
	return def.ChildByFieldName("name")
}
