package parser

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/token"
)

// parseTypeExpr parses a type annotation: a primitive/class name or `def`,
// followed by any number of `[]` array suffixes and an optional trailing
// `?` marking it nilable.
func (p *Parser) parseTypeExpr() ast.TypeExpression {
	pos := p.cur.Pos
	var name string
	if p.curIs(token.DEF) {
		name = "def"
		p.next()
	} else {
		name = p.parseDottedName()
	}

	var te ast.TypeExpression = &ast.TypeExpr{TokenPos: pos, Name: name}
	for p.curIs(token.LEFT_SQUARE) && p.peekIs(token.RIGHT_SQUARE) {
		p.next()
		p.next()
		te = &ast.ArrayTypeExpr{TokenPos: pos, Elem: te}
	}
	if p.curIs(token.QUESTION) {
		if simple, ok := te.(*ast.TypeExpr); ok {
			simple.Nilable = true
			p.next()
		}
	}
	return te
}
