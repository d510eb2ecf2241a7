package pytree

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// CallSignature renders `name(param, param, ...)` for a function definition,
// folded to width columns. Lambdas have no name and render as `<lambda>`.
func CallSignature(funcdef *sitter.Node, source []byte, width int) string {
	name := "<lambda>"
	params := ""

	switch funcdef.Type() {
	case "function_definition":
		if n := funcdef.ChildByFieldName("name"); n != nil {
			name = n.Content(source)
		}
		if p := funcdef.ChildByFieldName("parameters"); p != nil {
			params = p.Content(source)
		}
	case "lambda":
		if p := funcdef.ChildByFieldName("parameters"); p != nil {
			params = "(" + p.Content(source) + ")"
		} else {
			params = "()"
		}
	default:
		return ""
	}

	return wrapText(name+params, width)
}

// wrapText greedily folds text at spaces so no line exceeds width columns.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	words := strings.Split(text, " ")
	var lines []string
	line := ""
	for _, w := range words {
		switch {
		case line == "":
			line = w
		case len(line)+1+len(w) <= width:
			line += " " + w
		default:
			lines = append(lines, line)
			line = w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Docstring extracts the dedented docstring of a module, class or function
// scope. Formatted string literals are unsupported and yield "".
func Docstring(scope *sitter.Node, source []byte) string {
	body := ScopeBody(scope)
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return ""
		}
		str := stmt.NamedChild(0)
		if str.Type() != "string" {
			return ""
		}
		text, ok := DecodeString(str, source)
		if !ok {
			return ""
		}
		return Dedent(text)
	}
	return ""
}

// DecodeString strips the prefix and quotes from a string literal and returns
// its raw text. The second result is false for f-strings, whose value cannot
// be known statically.
func DecodeString(str *sitter.Node, source []byte) (string, bool) {
	text := str.Content(source)

	i := 0
	for i < len(text) && text[i] != '\'' && text[i] != '"' {
		i++
	}
	prefix := strings.ToLower(text[:i])
	if strings.Contains(prefix, "f") {
		return "", false
	}
	text = text[i:]

	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			return text[len(q) : len(text)-len(q)], true
		}
	}
	return text, true
}

// StringLiteralValue resolves a node to its literal string content when the
// node is a plain string literal.
func StringLiteralValue(n *sitter.Node, source []byte) (string, bool) {
	if n.Type() != "string" {
		return "", false
	}
	return DecodeString(n, source)
}

// Dedent normalizes a docstring the way inspect.cleandoc does: the first line
// is trimmed, and the common leading whitespace of all following lines is
// removed.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimSpace(lines[0])
	if len(lines) == 1 {
		return first
	}

	margin := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	out := []string{first}
	for _, line := range lines[1:] {
		if margin > 0 && len(line) >= margin {
			line = line[margin:]
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ParamInfo is a parameter of a function definition.
type ParamInfo struct {
	Name       string
	Annotation *sitter.Node
	Default    *sitter.Node
	Star       int // 0 plain, 1 *args, 2 **kwargs
}

// Params lists the parameters of a function_definition or lambda in
// declaration order.
func Params(funcdef *sitter.Node, source []byte) []ParamInfo {
	params := funcdef.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []ParamInfo
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, ParamInfo{Name: p.Content(source)})
		case "typed_parameter":
			info := ParamInfo{Annotation: p.ChildByFieldName("type")}
			if id := p.NamedChild(0); id != nil && id.Type() == "identifier" {
				info.Name = id.Content(source)
			}
			out = append(out, info)
		case "default_parameter", "typed_default_parameter":
			info := ParamInfo{
				Annotation: p.ChildByFieldName("type"),
				Default:    p.ChildByFieldName("value"),
			}
			if n := p.ChildByFieldName("name"); n != nil {
				info.Name = n.Content(source)
			}
			out = append(out, info)
		case "list_splat_pattern":
			info := ParamInfo{Star: 1}
			if id := p.NamedChild(0); id != nil {
				info.Name = id.Content(source)
			}
			out = append(out, info)
		case "dictionary_splat_pattern":
			info := ParamInfo{Star: 2}
			if id := p.NamedChild(0); id != nil {
				info.Name = id.Content(source)
			}
			out = append(out, info)
		}
	}
	return out
}
