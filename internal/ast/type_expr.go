package ast

import "github.com/jactl-lang/jactl/internal/token"

// TypeExpression is the parsed (unresolved) spelling of a type annotation,
// e.g. `int`, `def`, `List<String>`, `MyClass`. The resolver turns these
// into internal/types.Type values.
type TypeExpression interface {
	Node
	typeExprNode()
}

// TypeExpr is a simple named type: a primitive keyword or a class name.
type TypeExpr struct {
	TokenPos token.Position
	Name     string
	Nilable  bool
}

func (t *TypeExpr) Pos() token.Position { return t.TokenPos }
func (t *TypeExpr) String() string {
	if t.Nilable {
		return t.Name + "?"
	}
	return t.Name
}
func (t *TypeExpr) typeExprNode() {}

// ArrayTypeExpr is `ElemType[]`.
type ArrayTypeExpr struct {
	TokenPos token.Position
	Elem     TypeExpression
}

func (a *ArrayTypeExpr) Pos() token.Position { return a.TokenPos }
func (a *ArrayTypeExpr) String() string      { return a.Elem.String() + "[]" }
func (a *ArrayTypeExpr) typeExprNode()       {}
