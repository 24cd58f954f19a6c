package ast

import "github.com/jactl-lang/jactl/internal/token"

// FieldDecl is one field of a class.
type FieldDecl struct {
	Name     string
	TypeExpr TypeExpression
	Default  Expr
	IsConst  bool
	IsStatic bool
	IsFinal  bool
	Pos      token.Position
}

// ClassDecl is a (possibly nested, possibly synthetic) class declaration.
// The single synthetic outer class produced for a top-level script sets
// ScriptMain instead of populating Methods/Fields from source syntax.
type ClassDecl struct {
	StmtBase
	Name         string
	FQName       string
	Extends      string
	Implements   []string
	Fields       []*FieldDecl
	Methods      []*FunDecl
	InnerClasses []*ClassDecl
	IsSealed     bool
	IsFinal      bool
	ScriptMain   *Stmts
	// InitializerIsAsync is computed by the analyser: true when any field
	// default expression may suspend, which makes `new` on this class
	// (and thus any ANY-typed construction of it) async.
	InitializerIsAsync bool
}

func (c *ClassDecl) String() string {
	if c.ScriptMain != nil {
		return c.ScriptMain.String()
	}
	return "class " + c.Name
}
