package resolver

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/types"
)

// symbolKind classifies how a name resolved: where the compiler should
// load/store it from.
type symbolKind int

const (
	kindLocal symbolKind = iota
	kindParam
	kindField
	kindGlobal
	kindConst
)

func (k symbolKind) binding() string {
	switch k {
	case kindLocal:
		return "local"
	case kindParam:
		return "param"
	case kindField:
		return "field"
	case kindGlobal:
		return "global"
	case kindConst:
		return "const"
	}
	return ""
}

// symbol is one name bound in a scope.
type symbol struct {
	name string
	kind symbolKind
	slot int
	typ  types.Type
	// decl is the VarDecl a local/global was introduced by, so capture
	// analysis can flip its IsCaptured flag; nil for params/fields/consts.
	decl *ast.VarDecl
}

// scope is one lexical block's name table. funcBoundary scopes are the
// top scope of a function or closure body: crossing one while resolving
// an identifier is what makes that identifier a capture.
type scope struct {
	parent       *scope
	symbols      map[string]*symbol
	funcBoundary bool
}

func newScope(parent *scope, funcBoundary bool) *scope {
	return &scope{parent: parent, symbols: make(map[string]*symbol), funcBoundary: funcBoundary}
}

func (s *scope) define(sym *symbol) {
	s.symbols[sym.name] = sym
}

// resolve walks outward from s looking for name, returning the symbol and
// whether at least one function boundary was crossed to find it (a
// capture).
func (s *scope) resolve(name string) (sym *symbol, crossedBoundary bool) {
	cur := s
	crossed := false
	for cur != nil {
		if found, ok := cur.symbols[name]; ok {
			return found, crossed
		}
		if cur.funcBoundary {
			crossed = true
		}
		cur = cur.parent
	}
	return nil, false
}
