// Package ast defines Jactl's untyped-then-typed syntax tree.
//
// Nodes are produced untyped by the parser; the resolver back-annotates
// each Expr's Type and ResultUsed in place rather than building a
// second typed tree.
package ast

import (
	"strings"

	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

// Node is the base interface every AST node satisfies.
type Node interface {
	Pos() token.Position
	String() string
}

// Expr is any node that produces a value.
type Expr interface {
	Node
	exprNode()
	// Type returns the statically resolved type, or the zero Type before
	// resolution has run.
	Type() types.Type
	SetType(types.Type)
	// ResultUsed reports whether the expression's value is consumed by
	// its surrounding context (vs. evaluated purely for side effects,
	// e.g. a bare call statement) — the compiler uses this to decide
	// whether to emit a trailing OpPop.
	ResultUsed() bool
	SetResultUsed(bool)
}

// Stmt is any node that performs an action without itself yielding a value.
type Stmt interface {
	Node
	stmtNode()
}

// ExprBase factors the position/Type/ResultUsed bookkeeping every Expr
// needs. It is embedded (and its fields set positionally via At) by every
// concrete expression node.
type ExprBase struct {
	At         token.Position
	resultType types.Type
	used       bool
}

func (e *ExprBase) Pos() token.Position  { return e.At }
func (e *ExprBase) Type() types.Type     { return e.resultType }
func (e *ExprBase) SetType(t types.Type) { e.resultType = t }
func (e *ExprBase) ResultUsed() bool     { return e.used }
func (e *ExprBase) SetResultUsed(u bool) { e.used = u }
func (e *ExprBase) exprNode()            {}

// StmtBase factors the position bookkeeping every Stmt needs.
type StmtBase struct {
	At token.Position
}

func (s *StmtBase) Pos() token.Position { return s.At }
func (s *StmtBase) stmtNode()           {}

// Program is the root of a compiled unit: the synthetic outer class whose
// ScriptMain holds the top-level statements.
type Program struct {
	Package    string
	Imports    []*Import
	ScriptMain *ClassDecl
	Classes    []*ClassDecl
}

func (p *Program) Pos() token.Position { return token.Position{Line: 1, Column: 1} }
func (p *Program) String() string {
	var sb strings.Builder
	if p.Package != "" {
		sb.WriteString("package " + p.Package + "\n")
	}
	for _, im := range p.Imports {
		sb.WriteString(im.String() + "\n")
	}
	if p.ScriptMain != nil {
		sb.WriteString(p.ScriptMain.String())
	}
	return sb.String()
}

// Import declares a local alias for a fully-qualified class or static
// member.
type Import struct {
	StmtBase
	Path      string
	Alias     string
	IsStatic  bool
	MemberFQN string
}

func (i *Import) String() string {
	s := "import " + i.Path
	if i.Alias != "" {
		s += " as " + i.Alias
	}
	return s
}
