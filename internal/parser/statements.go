package parser

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/token"
)

// parseStatement parses one statement. Control-flow keywords are handled
// directly; anything else falls through to a speculative attempt at a
// typed declaration or function declaration, and finally to a bare
// expression statement.
func (p *Parser) parseStatement() ast.Stmt {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.LEFT_BRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf(false)
	case token.UNLESS:
		return p.parseIf(true)
	case token.WHILE:
		return p.parseWhile(false)
	case token.UNTIL:
		return p.parseWhile(true)
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.SWITCH:
		return p.parseSwitch()
	case token.BREAK:
		p.next()
		p.endStatement()
		return &ast.Break{StmtBase: ast.StmtBase{At: pos}}
	case token.CONTINUE:
		p.next()
		p.endStatement()
		return &ast.Continue{StmtBase: ast.StmtBase{At: pos}}
	case token.RETURN:
		p.next()
		var v ast.Expr
		if !p.atExprTerminator() {
			v = p.ParseExpression()
		}
		p.endStatement()
		return &ast.Return{StmtBase: ast.StmtBase{At: pos}, Value: v}
	case token.TRY:
		return p.parseTry()
	case token.THROW:
		p.next()
		msg := p.ParseExpression()
		p.endStatement()
		return &ast.ThrowError{StmtBase: ast.StmtBase{At: pos}, Message: msg}
	case token.DIE:
		p.next()
		msg := p.parseUnary()
		p.endStatement()
		return &ast.ThrowError{StmtBase: ast.StmtBase{At: pos}, Message: msg, IsDie: true}
	case token.CLASS:
		return p.parseClassDecl()
	case token.VAR:
		p.next()
		return p.parseVarDeclStmt(nil)
	case token.CONST:
		p.next()
		stmt := p.parseVarDeclStmt(nil).(*ast.VarDeclStmt)
		for _, d := range stmt.Decls {
			d.IsConst = true
		}
		return stmt
	}

	if decl, ok := p.tryParseTypedDeclOrFunc(); ok {
		return decl
	}

	e := p.ParseExpression()
	if wrap, ok := e.(*ast.ExprStmtWrap); ok {
		p.endStatement()
		return wrap.Inner
	}
	p.endStatement()
	return &ast.ExprStmt{StmtBase: ast.StmtBase{At: pos}, X: e}
}

func (p *Parser) parseBlock() *ast.Block {
	pos := p.cur.Pos
	p.expect(token.LEFT_BRACE)
	p.skipEOLs()
	var stmts []ast.Stmt
	for !p.curIs(token.RIGHT_BRACE) && !p.curIs(token.EOF) {
		stmts = append(stmts, p.parseStatement())
		p.skipEOLs()
	}
	p.expect(token.RIGHT_BRACE)
	return &ast.Block{StmtBase: ast.StmtBase{At: pos}, Body: &ast.Stmts{List: stmts}}
}

func (p *Parser) parseIf(negate bool) ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LEFT_PAREN)
	cond := p.ParseExpression()
	p.expect(token.RIGHT_PAREN)
	if negate {
		cond = &ast.PrefixUnary{ExprBase: ast.ExprBase{At: pos}, Op: token.BANG, Operand: cond}
	}
	p.skipEOLs()
	thenS := p.parseStatement()
	p.skipEOLs()
	var elseS ast.Stmt
	if p.curIs(token.ELSE) {
		p.next()
		p.skipEOLs()
		elseS = p.parseStatement()
	}
	return &ast.If{StmtBase: ast.StmtBase{At: pos}, Cond: cond, Then: thenS, Else: elseS}
}

func (p *Parser) parseWhile(negate bool) ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LEFT_PAREN)
	cond := p.ParseExpression()
	p.expect(token.RIGHT_PAREN)
	if negate {
		cond = &ast.PrefixUnary{ExprBase: ast.ExprBase{At: pos}, Op: token.BANG, Operand: cond}
	}
	p.skipEOLs()
	body := p.parseStatement()
	return &ast.While{StmtBase: ast.StmtBase{At: pos}, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	pos := p.cur.Pos
	p.next() // 'do'
	p.skipEOLs()
	body := p.parseStatement()
	p.skipEOLs()
	p.expect(token.WHILE)
	p.expect(token.LEFT_PAREN)
	cond := p.ParseExpression()
	p.expect(token.RIGHT_PAREN)
	p.endStatement()
	return &ast.While{StmtBase: ast.StmtBase{At: pos}, Cond: cond, Body: body, IsDoWhile: true}
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LEFT_PAREN)
	var init ast.Stmt
	if !p.curIs(token.SEMICOLON) {
		init = p.parseForInit()
	}
	p.expect(token.SEMICOLON)
	var cond ast.Expr
	if !p.curIs(token.SEMICOLON) {
		cond = p.ParseExpression()
	}
	p.expect(token.SEMICOLON)
	var update ast.Stmt
	if !p.curIs(token.RIGHT_PAREN) {
		e := p.ParseExpression()
		update = &ast.ExprStmt{StmtBase: ast.StmtBase{At: e.Pos()}, X: e}
	}
	p.expect(token.RIGHT_PAREN)
	p.skipEOLs()
	body := p.parseStatement()
	return &ast.For{StmtBase: ast.StmtBase{At: pos}, Init: init, Cond: cond, Update: update, Body: body}
}

func (p *Parser) parseForInit() ast.Stmt {
	pos := p.cur.Pos
	if p.curIs(token.VAR) {
		p.next()
		decls := p.parseVarDecls(nil)
		return &ast.VarDeclStmt{StmtBase: ast.StmtBase{At: pos}, Decls: decls}
	}
	if p.curIs(token.DEF) || (p.curIs(token.IDENT) && p.peekIs(token.IDENT)) {
		te := p.parseTypeExpr()
		decls := p.parseVarDecls(te)
		return &ast.VarDeclStmt{StmtBase: ast.StmtBase{At: pos}, Decls: decls}
	}
	e := p.ParseExpression()
	return &ast.ExprStmt{StmtBase: ast.StmtBase{At: pos}, X: e}
}

func (p *Parser) parseSwitch() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.expect(token.LEFT_PAREN)
	subject := p.ParseExpression()
	p.expect(token.RIGHT_PAREN)
	p.skipEOLs()
	p.expect(token.LEFT_BRACE)
	p.skipEOLs()

	var cases []*ast.SwitchCase
	var def ast.Stmt
	for !p.curIs(token.RIGHT_BRACE) && !p.curIs(token.EOF) {
		switch {
		case p.curIs(token.CASE):
			cpos := p.cur.Pos
			p.next()
			pattern := p.ParseExpression()
			p.expect(token.COLON)
			p.skipEOLs()
			body := p.parseCaseBody()
			cases = append(cases, &ast.SwitchCase{StmtBase: ast.StmtBase{At: cpos}, Pattern: pattern, Body: body})
		case p.curIs(token.DEFAULT):
			p.next()
			p.expect(token.COLON)
			p.skipEOLs()
			def = p.parseCaseBody()
		default:
			p.addError("expected case or default in switch body, got " + p.cur.Kind.String())
			p.next()
		}
	}
	p.expect(token.RIGHT_BRACE)
	return &ast.Switch{StmtBase: ast.StmtBase{At: pos}, Subject: subject, Cases: cases, Default: def}
}

func (p *Parser) parseCaseBody() *ast.Stmts {
	var stmts []ast.Stmt
	for !p.curIs(token.CASE) && !p.curIs(token.DEFAULT) && !p.curIs(token.RIGHT_BRACE) && !p.curIs(token.EOF) {
		stmts = append(stmts, p.parseStatement())
		p.skipEOLs()
	}
	return &ast.Stmts{List: stmts}
}

func (p *Parser) parseTry() ast.Stmt {
	pos := p.cur.Pos
	p.next()
	p.skipEOLs()
	body := p.parseBlock()
	p.skipEOLs()
	var catches []*ast.CatchClause
	for p.curIs(token.CATCH) {
		cpos := p.cur.Pos
		p.next()
		p.expect(token.LEFT_PAREN)
		excType := p.parseDottedName()
		name := p.expect(token.IDENT).Chars
		p.expect(token.RIGHT_PAREN)
		p.skipEOLs()
		cbody := p.parseBlock()
		catches = append(catches, &ast.CatchClause{StmtBase: ast.StmtBase{At: cpos}, ExcType: excType, Name: name, Body: cbody})
		p.skipEOLs()
	}
	var fin ast.Stmt
	if p.curIs(token.FINALLY) {
		p.next()
		p.skipEOLs()
		fin = p.parseBlock()
	}
	return &ast.TryCatch{StmtBase: ast.StmtBase{At: pos}, Body: body, Catches: catches, Finally: fin}
}

// parseVarDecls parses a comma-separated list of `name [= init]` bindings
// sharing one declared type (nil means infer/def).
func (p *Parser) parseVarDecls(typeExpr ast.TypeExpression) []*ast.VarDecl {
	var decls []*ast.VarDecl
	for {
		namePos := p.cur.Pos
		name := p.expect(token.IDENT).Chars
		var init ast.Expr
		if p.curIs(token.EQUAL) {
			p.next()
			init = p.parseAssignment()
		}
		decls = append(decls, &ast.VarDecl{ExprBase: ast.ExprBase{At: namePos}, Name: name, TypeExpr: typeExpr, Init: init})
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	return decls
}

func (p *Parser) parseVarDeclStmt(typeExpr ast.TypeExpression) ast.Stmt {
	pos := p.cur.Pos
	decls := p.parseVarDecls(typeExpr)
	p.endStatement()
	return &ast.VarDeclStmt{StmtBase: ast.StmtBase{At: pos}, Decls: decls}
}

// tryParseTypedDeclOrFunc speculatively parses "Type name" or "def name"
// at statement start: a following '(' makes it a function declaration,
// anything else after the name is parsed as a variable declaration. Only
// when no name follows the type does it rewind, and the caller falls back
// to an expression statement.
func (p *Parser) tryParseTypedDeclOrFunc() (ast.Stmt, bool) {
	if !p.curIs(token.DEF) && !p.curIs(token.IDENT) {
		return nil, false
	}
	if p.curIs(token.IDENT) && !p.peekIs(token.IDENT) {
		return nil, false
	}

	save := p.lex.SaveState()
	savedCur, savedPeek, savedPrePeek := p.cur, p.peekTok, p.prePeekState
	pos := p.cur.Pos

	typeExpr := p.parseTypeExpr()
	if !p.curIs(token.IDENT) {
		p.lex.Rewind(save)
		p.cur, p.peekTok, p.prePeekState = savedCur, savedPeek, savedPrePeek
		return nil, false
	}
	name := p.cur.Chars
	if p.peekIs(token.LEFT_PAREN) {
		p.next() // consume name; cur is now '('
		fn := p.parseFunTail(pos, name, typeExpr, false)
		return &ast.FunDeclStmt{StmtBase: ast.StmtBase{At: pos}, Fun: fn}, true
	}

	decls := p.parseVarDecls(typeExpr)
	p.endStatement()
	return &ast.VarDeclStmt{StmtBase: ast.StmtBase{At: pos}, Decls: decls}, true
}
