// Package diag collects non-fatal static-analysis findings. Inference never
// fails because of a diagnostic; it records the finding and continues with a
// best-effort result.
package diag

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Diagnostic is a single user-facing finding, anchored to a syntax node.
type Diagnostic struct {
	Kind    string
	Message string
	Line    int // 1-based
	Column  int // 0-based
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d %s: %s", d.Line, d.Column, d.Kind, d.Message)
}

// Sink receives diagnostics during inference.
type Sink interface {
	Report(node *sitter.Node, kind, message string)
}

// Collector is a Sink that accumulates diagnostics in order.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(node *sitter.Node, kind, message string) {
	d := Diagnostic{Kind: kind, Message: message}
	if node != nil {
		d.Line = int(node.StartPoint().Row) + 1
		d.Column = int(node.StartPoint().Column)
	}
	c.Diagnostics = append(c.Diagnostics, d)
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Report(*sitter.Node, string, string) {}
