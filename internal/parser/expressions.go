package parser

import (
	"strings"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/token"
)

// ParseExpression parses one full expression, including a possible
// top-level assignment.
func (p *Parser) ParseExpression() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseTernary()

	if assignOps[p.cur.Kind] {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.next()
		value := p.parseAssignment()
		return p.buildAssign(pos, left, op, value)
	}
	return left
}

func (p *Parser) buildAssign(pos token.Position, target ast.Expr, op token.Type, value ast.Expr) ast.Expr {
	switch t := target.(type) {
	case *ast.Identifier:
		if op == token.EQUAL {
			return &ast.VarAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Value: value}
		}
		return &ast.VarOpAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Op: op, Value: value}
	case *ast.FieldAccess:
		if op == token.EQUAL {
			return &ast.FieldAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Value: value}
		}
		return &ast.FieldOpAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Op: op, Value: value}
	case *ast.ArrayGet:
		if op == token.EQUAL {
			return &ast.FieldAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Value: value}
		}
		return &ast.FieldOpAssign{ExprBase: ast.ExprBase{At: pos}, Target: t, Op: op, Value: value}
	default:
		p.addError("invalid assignment target")
		return target
	}
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseNullCoalesce()
	if p.curIs(token.QUESTION) {
		pos := p.cur.Pos
		p.next()
		thenE := p.parseAssignment()
		p.expect(token.COLON)
		elseE := p.parseAssignment()
		return &ast.Ternary{ExprBase: ast.ExprBase{At: pos}, Cond: cond, Then: thenE, Else: elseE}
	}
	if p.curIs(token.QUESTION_COLON) {
		pos := p.cur.Pos
		p.next()
		elseE := p.parseAssignment()
		return &ast.Ternary{ExprBase: ast.ExprBase{At: pos}, Cond: cond, Else: elseE, Elvis: true}
	}
	return cond
}

func (p *Parser) parseNullCoalesce() ast.Expr { return p.parseBinary(precNullCoalesce) }

// parseBinary implements precedence climbing down to precUnary.
func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		prec, ok := binaryPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := p.cur.Kind
		pos := p.cur.Pos
		p.next()

		if op == token.INSTANCEOF {
			target := p.parseTypeExpr()
			left = &ast.InstanceOf{ExprBase: ast.ExprBase{At: pos}, Operand: left, Target: target}
			continue
		}
		if op == token.MATCH || op == token.NOT_MATCH {
			left = p.parseRegexOp(pos, left, op == token.NOT_MATCH)
			continue
		}

		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)
		left = &ast.Binary{ExprBase: ast.ExprBase{At: pos}, Left: left, Op: op, Right: right}
	}
}

// parseRegexOp handles the right-hand side of `=~`/`!~`. The token
// immediately after the operator was already scanned (into what is now
// p.cur) before the parser had a chance to arm regex mode on the lexer,
// so it rewinds to just before that token and rescans it with regex mode
// on.
func (p *Parser) parseRegexOp(pos token.Position, subject ast.Expr, negate bool) ast.Expr {
	p.lex.Rewind(p.prePeekState)
	p.lex.StartRegex()
	p.cur = p.lex.Next()
	p.prePeekState = p.lex.SaveState()
	p.peekTok = p.lex.Next()

	switch p.cur.Kind {
	case token.EXPR_STRING_START:
		p.next()
		pattern := p.parseExprStringBody()
		flags := p.lex.ReadRegexFlags()
		p.next()
		return &ast.RegexMatch{ExprBase: ast.ExprBase{At: pos}, Subject: subject, Pattern: pattern, Flags: flags, Negate: negate}
	case token.REGEX_SUBST_START:
		p.next()
		pattern := p.parseExprStringBody()
		p.expect(token.REGEX_REPLACE)
		replacement := p.parseExprStringBody()
		flags := p.lex.ReadRegexFlags()
		p.next()
		global := strings.ContainsRune(flags, 'g')
		return &ast.RegexSubst{ExprBase: ast.ExprBase{At: pos}, Subject: subject, Pattern: pattern, Replacement: replacement, Flags: flags, Global: global}
	default:
		p.addError("expected regex literal after =~/!~")
		return subject
	}
}

var prefixOps = map[token.Type]bool{
	token.BANG: true, token.MINUS: true, token.TILDE: true,
	token.PLUS_PLUS: true, token.MINUS_MINUS: true, token.PLUS: true,
}

func (p *Parser) parseUnary() ast.Expr {
	if prefixOps[p.cur.Kind] {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.next()
		operand := p.parseUnary()
		return &ast.PrefixUnary{ExprBase: ast.ExprBase{At: pos}, Op: op, Operand: operand}
	}
	if p.curIs(token.LEFT_PAREN) && p.looksLikeCast() {
		pos := p.cur.Pos
		p.next()
		target := p.parseTypeExpr()
		p.expect(token.RIGHT_PAREN)
		operand := p.parseUnary()
		return &ast.Cast{ExprBase: ast.ExprBase{At: pos}, Target: target, Operand: operand}
	}
	return p.parsePostfix()
}

// looksLikeCast speculatively scans "(Ident)" followed by a token that
// can start an operand, using save/rewind so the attempt costs nothing
// when it isn't a cast.
func (p *Parser) looksLikeCast() bool {
	if !p.peekIs(token.IDENT) {
		return false
	}
	save := p.lex.SaveState()
	savedCur, savedPeek, savedPrePeek := p.cur, p.peekTok, p.prePeekState
	p.next() // consume '('
	p.next() // consume ident
	next := p.peekTok
	isCast := p.curIs(token.RIGHT_PAREN) && (next.Kind.IsLiteral() ||
		next.Is(token.IDENT, token.LEFT_PAREN, token.LEFT_SQUARE, token.EXPR_STRING_START,
			token.TRUE, token.FALSE, token.NULL, token.NEW, token.THIS, token.IT, token.BANG, token.TILDE))
	p.lex.Rewind(save)
	p.cur, p.peekTok, p.prePeekState = savedCur, savedPeek, savedPrePeek
	return isCast
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parseCallOrAccess(p.parsePrimary())
	for p.curIs(token.PLUS_PLUS) || p.curIs(token.MINUS_MINUS) {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.next()
		expr = &ast.PostfixUnary{ExprBase: ast.ExprBase{At: pos}, Op: op, Operand: expr}
	}
	return expr
}

// parseCallOrAccess chains .field, ?.field, [index], ?[index], and
// (args)/method(args) suffixes onto a primary expression.
func (p *Parser) parseCallOrAccess(expr ast.Expr) ast.Expr {
	for {
		switch {
		case p.curIs(token.DOT) || p.curIs(token.QUESTION_DOT):
			nullSafe := p.curIs(token.QUESTION_DOT)
			pos := p.cur.Pos
			p.next()
			name := p.expect(token.IDENT).Chars
			if p.curIs(token.LEFT_PAREN) {
				args, named := p.parseArgs()
				expr = &ast.MethodCall{ExprBase: ast.ExprBase{At: pos}, Receiver: expr, Method: name, Args: args, NamedArgs: named, NullSafe: nullSafe}
			} else {
				expr = &ast.FieldAccess{ExprBase: ast.ExprBase{At: pos}, Receiver: expr, Field: name, NullSafe: nullSafe}
			}
		case p.curIs(token.LEFT_SQUARE) || p.curIs(token.QUESTION_SQUARE):
			nullSafe := p.curIs(token.QUESTION_SQUARE)
			pos := p.cur.Pos
			p.next()
			idx := p.ParseExpression()
			p.expect(token.RIGHT_SQUARE)
			expr = &ast.ArrayGet{ExprBase: ast.ExprBase{At: pos}, Receiver: expr, Index: idx, NullSafe: nullSafe}
		case p.curIs(token.LEFT_PAREN):
			pos := p.cur.Pos
			args, named := p.parseArgs()
			expr = &ast.Call{ExprBase: ast.ExprBase{At: pos}, Callee: expr, Args: args, NamedArgs: named}
		default:
			return expr
		}
	}
}

// parseArgs parses a parenthesized argument list. A list consisting
// entirely of `name: value` pairs is recognised as named-argument call
// syntax and returned as a MapLiteral with IsNamedArgs=true, matched
// against the callee's parameters during resolution.
func (p *Parser) parseArgs() ([]ast.Expr, *ast.MapLiteral) {
	p.expect(token.LEFT_PAREN)
	p.skipEOLs()
	var args []ast.Expr
	var entries []ast.MapEntry
	allNamed := true
	for !p.curIs(token.RIGHT_PAREN) && !p.curIs(token.EOF) {
		if p.curIs(token.IDENT) && p.peekIs(token.COLON) {
			key := &ast.Identifier{Name: p.cur.Chars, ExprBase: ast.ExprBase{At: p.cur.Pos}}
			p.next()
			p.next()
			val := p.parseAssignment()
			entries = append(entries, ast.MapEntry{Key: key, Value: val})
		} else {
			allNamed = false
			args = append(args, p.parseAssignment())
		}
		p.skipEOLs()
		if p.curIs(token.COMMA) {
			p.next()
			p.skipEOLs()
		}
	}
	p.expect(token.RIGHT_PAREN)

	if allNamed && len(entries) > 0 {
		return nil, &ast.MapLiteral{IsNamedArgs: true, Entries: entries}
	}
	return args, nil
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.INTEGER, token.LONG, token.DOUBLE, token.DECIMAL:
		v := p.cur.Value
		p.next()
		return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: v}
	case token.STRING:
		v := p.cur.Value
		p.next()
		return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: v}
	case token.TRUE:
		p.next()
		return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: true}
	case token.FALSE:
		p.next()
		return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: false}
	case token.NULL:
		p.next()
		return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: nil}
	case token.IT:
		p.next()
		return &ast.Identifier{ExprBase: ast.ExprBase{At: pos}, Name: "it"}
	case token.THIS:
		p.next()
		return &ast.Identifier{ExprBase: ast.ExprBase{At: pos}, Name: "this"}
	case token.IDENT:
		name := p.cur.Chars
		p.next()
		return &ast.Identifier{ExprBase: ast.ExprBase{At: pos}, Name: name}
	case token.SUPER:
		p.next()
		p.expect(token.DOT)
		method := p.expect(token.IDENT).Chars
		args, named := p.parseArgs()
		return &ast.MethodCall{ExprBase: ast.ExprBase{At: pos}, Method: method, Args: args, NamedArgs: named, IsSuper: true}
	case token.NEW:
		return p.parseNew()
	case token.LEFT_PAREN:
		p.next()
		p.skipEOLs()
		e := p.ParseExpression()
		p.skipEOLs()
		p.expect(token.RIGHT_PAREN)
		return e
	case token.LEFT_SQUARE:
		return p.parseListOrMap()
	case token.LEFT_BRACE:
		return p.parseClosure(nil)
	case token.EXPR_STRING_START:
		return p.parseExprString()
	case token.DIE:
		p.next()
		msg := p.parseUnary()
		return &ast.Die{ExprBase: ast.ExprBase{At: pos}, Message: msg}
	case token.PRINT, token.PRINTLN:
		nl := p.curIs(token.PRINTLN)
		p.next()
		var arg ast.Expr
		if p.curIs(token.LEFT_PAREN) {
			p.next()
			arg = p.ParseExpression()
			p.expect(token.RIGHT_PAREN)
		} else {
			arg = p.ParseExpression()
		}
		return &ast.Print{ExprBase: ast.ExprBase{At: pos}, Arg: arg, NewLn: nl}
	case token.EVAL:
		p.next()
		p.expect(token.LEFT_PAREN)
		src := p.ParseExpression()
		var globals ast.Expr
		if p.curIs(token.COMMA) {
			p.next()
			globals = p.ParseExpression()
		}
		p.expect(token.RIGHT_PAREN)
		return &ast.Eval{ExprBase: ast.ExprBase{At: pos}, Source: src, Globals: globals}
	case token.RETURN:
		p.next()
		var v ast.Expr
		if !p.atExprTerminator() {
			v = p.ParseExpression()
		}
		return &ast.ExprStmtWrap{ExprBase: ast.ExprBase{At: pos}, Inner: &ast.Return{StmtBase: ast.StmtBase{At: pos}, Value: v}}
	case token.BREAK:
		p.next()
		return &ast.ExprStmtWrap{ExprBase: ast.ExprBase{At: pos}, Inner: &ast.Break{StmtBase: ast.StmtBase{At: pos}}}
	case token.CONTINUE:
		p.next()
		return &ast.ExprStmtWrap{ExprBase: ast.ExprBase{At: pos}, Inner: &ast.Continue{StmtBase: ast.StmtBase{At: pos}}}
	}

	p.addError("unexpected token " + p.cur.Kind.String() + " in expression")
	p.next()
	return &ast.Literal{ExprBase: ast.ExprBase{At: pos}, Value: nil}
}

func (p *Parser) atExprTerminator() bool {
	return p.curIs(token.EOL) || p.curIs(token.SEMICOLON) || p.curIs(token.RIGHT_BRACE) ||
		p.curIs(token.RIGHT_PAREN) || p.curIs(token.COLON) || p.curIs(token.EOF)
}

func (p *Parser) parseNew() ast.Expr {
	pos := p.cur.Pos
	p.next()
	className := p.parseDottedName()
	var args []ast.Expr
	var named *ast.MapLiteral
	if p.curIs(token.LEFT_PAREN) {
		args, named = p.parseArgs()
	}
	return &ast.InvokeNew{ExprBase: ast.ExprBase{At: pos}, ClassName: className, Args: args, NamedArgs: named}
}

func (p *Parser) parseListOrMap() ast.Expr {
	pos := p.cur.Pos
	p.next() // '['
	p.skipEOLs()

	if p.curIs(token.COLON) { // [:] empty map
		p.next()
		p.expect(token.RIGHT_SQUARE)
		return &ast.MapLiteral{ExprBase: ast.ExprBase{At: pos}}
	}
	if p.curIs(token.RIGHT_SQUARE) {
		p.next()
		return &ast.ListLiteral{ExprBase: ast.ExprBase{At: pos}}
	}

	first := p.ParseExpression()
	if p.curIs(token.COLON) {
		p.next()
		val := p.ParseExpression()
		entries := []ast.MapEntry{{Key: first, Value: val}}
		for p.curIs(token.COMMA) {
			p.next()
			p.skipEOLs()
			k := p.ParseExpression()
			p.expect(token.COLON)
			v := p.ParseExpression()
			entries = append(entries, ast.MapEntry{Key: k, Value: v})
			p.skipEOLs()
		}
		p.skipEOLs()
		p.expect(token.RIGHT_SQUARE)
		return &ast.MapLiteral{ExprBase: ast.ExprBase{At: pos}, Entries: entries}
	}

	elems := []ast.Expr{first}
	for p.curIs(token.COMMA) {
		p.next()
		p.skipEOLs()
		elems = append(elems, p.ParseExpression())
		p.skipEOLs()
	}
	p.skipEOLs()
	p.expect(token.RIGHT_SQUARE)
	return &ast.ListLiteral{ExprBase: ast.ExprBase{At: pos}, Elements: elems}
}

// parseClosure parses `{ params -> body }` or `{ body }` (implicit `it`).
// explicitParams is non-nil when the caller already parsed an explicit
// `(a, b) -> { ... }` arrow-lambda parameter list.
func (p *Parser) parseClosure(explicitParams []*ast.Param) ast.Expr {
	pos := p.cur.Pos
	p.next() // '{'
	p.skipEOLs()

	params := explicitParams
	if params == nil {
		save := p.lex.SaveState()
		savedCur, savedPeek, savedPrePeek := p.cur, p.peekTok, p.prePeekState
		if candidate, ok := p.tryParseClosureParamList(); ok {
			params = candidate
		} else {
			p.lex.Rewind(save)
			p.cur, p.peekTok, p.prePeekState = savedCur, savedPeek, savedPrePeek
		}
	}

	var stmts []ast.Stmt
	for !p.curIs(token.RIGHT_BRACE) && !p.curIs(token.EOF) {
		stmts = append(stmts, p.parseStatement())
		p.skipEOLs()
	}
	p.expect(token.RIGHT_BRACE)

	body := &ast.Stmts{List: stmts}
	return &ast.Closure{ExprBase: ast.ExprBase{At: pos}, Params: params, Body: body}
}

// tryParseClosureParamList speculatively parses "ident, ident -> " at the
// start of a closure body; on failure the caller rewinds.
func (p *Parser) tryParseClosureParamList() ([]*ast.Param, bool) {
	var params []*ast.Param
	if !p.curIs(token.IDENT) {
		return nil, false
	}
	for {
		if !p.curIs(token.IDENT) {
			return nil, false
		}
		params = append(params, &ast.Param{Name: p.cur.Chars, Mandatory: true})
		p.next()
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.curIs(token.ARROW) {
		return nil, false
	}
	p.next()
	p.skipEOLs()
	return params, true
}

// parseExprString parses a whole `"..."`/`"""..."""` interpolated string,
// starting at EXPR_STRING_START.
func (p *Parser) parseExprString() ast.Expr {
	pos := p.cur.Pos
	p.next() // EXPR_STRING_START
	return p.parseExprStringBody2(pos)
}

func (p *Parser) parseExprStringBody() *ast.ExprString {
	pos := p.cur.Pos
	return p.parseExprStringBody2(pos)
}

// parseExprStringBody2 consumes STRING/DOLLAR_IDENTIFIER/DOLLAR_BRACE
// parts up to and including the matching EXPR_STRING_END, recursively
// parsing any `${...}` escape as a full expression.
func (p *Parser) parseExprStringBody2(pos token.Position) *ast.ExprString {
	var parts []ast.ExprStringPart
	for {
		switch p.cur.Kind {
		case token.STRING:
			parts = append(parts, ast.ExprStringPart{Literal: p.cur.Chars})
			p.next()
		case token.DOLLAR_IDENTIFIER:
			name, _ := p.cur.Value.(string)
			parts = append(parts, ast.ExprStringPart{Expr: &ast.Identifier{ExprBase: ast.ExprBase{At: p.cur.Pos}, Name: name}})
			p.next()
		case token.DOLLAR_BRACE:
			p.next()
			p.skipEOLs()
			e := p.ParseExpression()
			p.skipEOLs()
			p.expect(token.RIGHT_BRACE)
			parts = append(parts, ast.ExprStringPart{Expr: e})
		case token.EXPR_STRING_END:
			if p.cur.Chars != "" {
				parts = append(parts, ast.ExprStringPart{Literal: p.cur.Chars})
			}
			p.next()
			return &ast.ExprString{ExprBase: ast.ExprBase{At: pos}, Parts: parts}
		case token.EOF, token.ERROR:
			p.addError("unterminated interpolated string")
			return &ast.ExprString{ExprBase: ast.ExprBase{At: pos}, Parts: parts}
		default:
			p.addError("unexpected token in interpolated string: " + p.cur.Kind.String())
			p.next()
		}
	}
}
