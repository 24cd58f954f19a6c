// Package parser implements Jactl's recursive-descent parser.
//
// It keeps a token cursor with one-token lookahead plus lexer-backed
// rewind for speculative parsing, and accumulates errors rather than
// raising on the first problem.
package parser

import (
	"fmt"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/lexer"
	"github.com/jactl-lang/jactl/internal/token"
)

// ParseError is one parser diagnostic.
type ParseError struct {
	Message string
	Pos     token.Position
}

func (e ParseError) Error() string { return fmt.Sprintf("%s at %s", e.Message, e.Pos) }

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex       *lexer.Lexer
	cur       token.Token
	peekTok   token.Token
	errors    []ParseError
	pkgName   string
	className []string // stack of enclosing class names, for Outer.Inner FQNs

	// prePeekState is the lexer state captured immediately before peekTok
	// was scanned. A regex-mode operator (=~, !~) needs to rewind here
	// and rescan once StartRegex has armed the lexer, since the token
	// after the operator is already sitting in peekTok by the time the
	// operator itself becomes cur.
	prePeekState lexer.State
}

// New creates a Parser over source.
func New(source string) *Parser {
	p := &Parser{lex: lexer.New(source)}
	p.next()
	p.next()
	return p
}

// Errors returns every accumulated diagnostic.
func (p *Parser) Errors() []ParseError { return p.errors }

func (p *Parser) next() {
	p.cur = p.peekTok
	p.prePeekState = p.lex.SaveState()
	p.peekTok = p.lex.Next()
	// Statement-irrelevant EOL tokens inside an expression context are
	// filtered by callers checking p.curIs(token.EOL) explicitly where
	// newlines matter; elsewhere we skip comments transparently.
	for p.peekTok.Kind == token.COMMENT {
		p.prePeekState = p.lex.SaveState()
		p.peekTok = p.lex.Next()
	}
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, ParseError{Message: msg, Pos: p.cur.Pos})
}

func (p *Parser) curIs(k token.Type) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Type) bool { return p.peekTok.Kind == k }

func (p *Parser) expect(k token.Type) token.Token {
	if p.cur.Kind != k {
		p.addError(fmt.Sprintf("expected %s, got %s", k, p.cur.Kind))
		return p.cur
	}
	tok := p.cur
	p.next()
	return tok
}

// skipEOLs consumes any run of significant-newline tokens; used at points
// where a newline is allowed but not required (e.g. after '{').
func (p *Parser) skipEOLs() {
	for p.curIs(token.EOL) {
		p.next()
	}
}

// endStatement consumes the EOL or ';' terminating a statement.
func (p *Parser) endStatement() {
	if p.curIs(token.SEMICOLON) || p.curIs(token.EOL) {
		p.next()
		p.skipEOLs()
		return
	}
	if p.curIs(token.RIGHT_BRACE) || p.curIs(token.EOF) {
		return
	}
	p.addError("expected end of statement, got " + p.cur.Kind.String())
}

// ParseProgram parses a full compilation unit: optional package/import
// declarations followed by class declarations and/or a top-level script
// body.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	p.skipEOLs()

	if p.curIs(token.PACKAGE) {
		p.next()
		prog.Package = p.parseDottedName()
		p.endStatement()
	}
	p.pkgName = prog.Package

	for p.curIs(token.IMPORT) {
		prog.Imports = append(prog.Imports, p.parseImport())
		p.skipEOLs()
	}

	var mainStmts []ast.Stmt
	for !p.curIs(token.EOF) {
		p.skipEOLs()
		if p.curIs(token.EOF) {
			break
		}
		if p.curIs(token.CLASS) {
			prog.Classes = append(prog.Classes, p.parseClassDecl())
			p.skipEOLs()
			continue
		}
		mainStmts = append(mainStmts, p.parseStatement())
		p.skipEOLs()
	}

	prog.ScriptMain = &ast.ClassDecl{
		Name:       "",
		ScriptMain: &ast.Stmts{List: mainStmts},
	}
	return prog
}

func (p *Parser) parseDottedName() string {
	name := p.expect(token.IDENT).Chars
	for p.curIs(token.DOT) {
		p.next()
		name += "." + p.expect(token.IDENT).Chars
	}
	return name
}

func (p *Parser) parseImport() *ast.Import {
	pos := p.cur.Pos
	p.next() // 'import'
	isStatic := false
	if p.curIs(token.STATIC) {
		isStatic = true
		p.next()
	}
	path := p.parseDottedName()
	alias := ""
	if p.curIs(token.AS) {
		p.next()
		alias = p.expect(token.IDENT).Chars
	}
	p.endStatement()
	return &ast.Import{
		StmtBase:  ast.StmtBase{At: pos},
		Path:      path,
		Alias:     alias,
		IsStatic:  isStatic,
		MemberFQN: "",
	}
}
