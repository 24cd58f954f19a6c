package parser

import (
	"strings"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/token"
)

// parseClassDecl parses a class declaration, recursing into nested
// classes through parseClassMember. The enclosing-class name stack gives
// nested classes their dotted fully-qualified name.
func (p *Parser) parseClassDecl() *ast.ClassDecl {
	pos := p.cur.Pos
	p.next() // 'class'
	name := p.expect(token.IDENT).Chars
	p.className = append(p.className, name)
	fq := strings.Join(p.className, ".")

	var extends string
	var implements []string
	if p.curIs(token.EXTENDS) {
		p.next()
		extends = p.parseDottedName()
	}
	if p.curIs(token.IMPLEMENTS) {
		p.next()
		implements = append(implements, p.parseDottedName())
		for p.curIs(token.COMMA) {
			p.next()
			implements = append(implements, p.parseDottedName())
		}
	}
	p.skipEOLs()
	p.expect(token.LEFT_BRACE)
	p.skipEOLs()

	decl := &ast.ClassDecl{
		StmtBase:   ast.StmtBase{At: pos},
		Name:       name,
		FQName:     fq,
		Extends:    extends,
		Implements: implements,
	}

	for !p.curIs(token.RIGHT_BRACE) && !p.curIs(token.EOF) {
		p.parseClassMember(decl)
		p.skipEOLs()
	}
	p.expect(token.RIGHT_BRACE)
	p.className = p.className[:len(p.className)-1]
	return decl
}

// parseClassMember parses one field, method, or nested class declaration,
// appending it to decl.
func (p *Parser) parseClassMember(decl *ast.ClassDecl) {
	var isStatic, isFinal, isConst, isSealed bool
	for {
		switch p.cur.Kind {
		case token.STATIC:
			isStatic = true
			p.next()
			continue
		case token.FINAL:
			isFinal = true
			p.next()
			continue
		case token.CONST:
			isConst = true
			p.next()
			continue
		case token.SEALED:
			isSealed = true
			p.next()
			continue
		}
		break
	}

	if p.curIs(token.CLASS) {
		inner := p.parseClassDecl()
		inner.IsSealed = isSealed
		decl.InnerClasses = append(decl.InnerClasses, inner)
		return
	}

	pos := p.cur.Pos
	var te ast.TypeExpression
	if p.curIs(token.DEF) || (p.curIs(token.IDENT) && p.peekIs(token.IDENT)) {
		te = p.parseTypeExpr()
	} else if p.curIs(token.VAR) {
		p.next()
	}
	name := p.expect(token.IDENT).Chars

	if p.curIs(token.LEFT_PAREN) {
		fn := p.parseFunTail(pos, name, te, isStatic)
		fn.IsFinal = isFinal
		fn.DeclaringClass = decl.FQName
		decl.Methods = append(decl.Methods, fn)
		return
	}

	decl.Fields = append(decl.Fields, p.parseFieldTail(pos, name, te, isConst, isStatic, isFinal))
	for p.curIs(token.COMMA) {
		p.next()
		fpos := p.cur.Pos
		fname := p.expect(token.IDENT).Chars
		decl.Fields = append(decl.Fields, p.parseFieldTail(fpos, fname, te, isConst, isStatic, isFinal))
	}
	p.endStatement()
}

func (p *Parser) parseFieldTail(pos token.Position, name string, te ast.TypeExpression, isConst, isStatic, isFinal bool) *ast.FieldDecl {
	var def ast.Expr
	if p.curIs(token.EQUAL) {
		p.next()
		def = p.parseAssignment()
	}
	return &ast.FieldDecl{Name: name, TypeExpr: te, Default: def, IsConst: isConst, IsStatic: isStatic, IsFinal: isFinal, Pos: pos}
}

// parseFunTail parses the `(params) { body }` tail of a function or method
// declaration whose name and return type the caller already consumed.
func (p *Parser) parseFunTail(pos token.Position, name string, retType ast.TypeExpression, isStatic bool) *ast.FunDecl {
	params := p.parseParamList()
	p.skipEOLs()
	body := p.parseBlock()
	return &ast.FunDecl{
		ExprBase:   ast.ExprBase{At: pos},
		Name:       name,
		Params:     params,
		ReturnType: retType,
		Body:       body,
		IsStatic:   isStatic,
	}
}

// parseParamList parses a formal parameter list. A parameter may carry an
// explicit type (`int x`), be left dynamically typed (`def x` or bare
// `x`), and may have a `= default` making it optional.
func (p *Parser) parseParamList() []*ast.Param {
	p.expect(token.LEFT_PAREN)
	p.skipEOLs()
	var params []*ast.Param
	for !p.curIs(token.RIGHT_PAREN) && !p.curIs(token.EOF) {
		var te ast.TypeExpression
		if p.curIs(token.DEF) || (p.curIs(token.IDENT) && p.peekIs(token.IDENT)) {
			te = p.parseTypeExpr()
		}
		name := p.expect(token.IDENT).Chars
		var def ast.Expr
		mandatory := true
		if p.curIs(token.EQUAL) {
			p.next()
			def = p.parseAssignment()
			mandatory = false
		}
		params = append(params, &ast.Param{Name: name, TypeExpr: te, Default: def, Mandatory: mandatory})
		p.skipEOLs()
		if p.curIs(token.COMMA) {
			p.next()
			p.skipEOLs()
			continue
		}
		break
	}
	p.skipEOLs()
	p.expect(token.RIGHT_PAREN)
	return params
}
