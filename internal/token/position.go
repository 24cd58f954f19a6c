// Package token defines the lexical token vocabulary shared by the lexer,
// parser, and diagnostics machinery.
package token

import "fmt"

// Position identifies a single point in source code.
//
// Column counts Unicode code points (runes), not bytes or display cells,
// from the start of the line — so a multi-byte rune such as an emoji or a
// combining character counts as exactly one column, the same way the
// lexer's own scan position does.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsZero reports whether this is an unset position.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.Offset == 0
}
