// Package resolver binds every identifier in a parsed program to a
// concrete storage location (local slot, parameter, captured cell, class
// field, or global), validates the class hierarchy, and resolves
// auto-create assignment chains and named-argument call bindings. It
// leaves async-reachability analysis to the analyser that runs after it.
package resolver

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/errors"
	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

// funcFrame tracks one function/closure body being walked, so an
// identifier resolution that crosses its boundary scope can record the
// capture on the right node.
type funcFrame struct {
	fun       *ast.FunDecl
	closure   *ast.Closure
	boundary  *scope
	nextSlot  int
	captured  map[string]bool
}

func (f *funcFrame) addCapture(name string) {
	if f.captured[name] {
		return
	}
	f.captured[name] = true
	if f.fun != nil {
		f.fun.CapturedVars = append(f.fun.CapturedVars, name)
	} else if f.closure != nil {
		f.closure.CapturedVars = append(f.closure.CapturedVars, name)
	}
}

func (f *funcFrame) allocSlot() int {
	s := f.nextSlot
	f.nextSlot++
	return s
}

// Resolver walks a Program, binding names and validating classes.
type Resolver struct {
	classes    map[string]*classInfo
	scriptMain *classInfo

	cur        *scope
	funcStack  []*funcFrame
	classStack []*classInfo

	errs   []*errors.CompileError
	source string
	file   string
}

// Resolve runs name resolution over prog and returns any diagnostics.
// An empty slice means the program is ready for the analyser.
func Resolve(prog *ast.Program, source, file string) []*errors.CompileError {
	r := &Resolver{
		classes: make(map[string]*classInfo),
		source:  source,
		file:    file,
	}
	r.registerClasses(prog)

	for _, ci := range r.classes {
		r.resolveClassBody(ci)
	}

	if prog.ScriptMain != nil {
		r.classStack = append(r.classStack, r.scriptMain)
		global := newScope(nil, true)
		r.cur = global
		frame := &funcFrame{boundary: global, captured: make(map[string]bool)}
		r.funcStack = append(r.funcStack, frame)
		r.walkStmt(prog.ScriptMain.ScriptMain)
		r.funcStack = r.funcStack[:len(r.funcStack)-1]
		r.classStack = r.classStack[:len(r.classStack)-1]
	}

	return r.errs
}

func (r *Resolver) errAt(pos token.Position, msg string) {
	r.errs = append(r.errs, errors.NewCompileError(pos, msg, r.source, r.file))
}

func (r *Resolver) addError(pos token.Position, msg string) {
	r.errAt(pos, msg)
}

func (r *Resolver) currentClass() *classInfo {
	if len(r.classStack) == 0 {
		return nil
	}
	return r.classStack[len(r.classStack)-1]
}

func (r *Resolver) currentFrame() *funcFrame {
	if len(r.funcStack) == 0 {
		return nil
	}
	return r.funcStack[len(r.funcStack)-1]
}

func (r *Resolver) pushScope(funcBoundary bool) {
	r.cur = newScope(r.cur, funcBoundary)
}

func (r *Resolver) popScope() {
	r.cur = r.cur.parent
}

// resolveClassBody resolves field default initializers and every method
// body of ci, including inherited-member visibility for `this`-implicit
// lookups inside methods.
func (r *Resolver) resolveClassBody(ci *classInfo) {
	r.classStack = append(r.classStack, ci)
	defer func() { r.classStack = r.classStack[:len(r.classStack)-1] }()

	r.pushScope(false)
	for _, f := range ci.decl.Fields {
		if f.Default != nil {
			r.walkExpr(f.Default)
		}
	}
	r.popScope()

	for _, m := range ci.decl.Methods {
		r.resolveFunction(m)
	}
}

// resolveFunction pushes a function boundary scope, binds parameters, and
// walks the body.
func (r *Resolver) resolveFunction(fn *ast.FunDecl) {
	r.pushScope(true)
	frame := &funcFrame{fun: fn, boundary: r.cur, captured: make(map[string]bool)}
	r.funcStack = append(r.funcStack, frame)

	for _, p := range fn.Params {
		slot := frame.allocSlot()
		r.cur.define(&symbol{name: p.Name, kind: kindParam, slot: slot, typ: resolveTypeExpr(r.classes, p.TypeExpr)})
		if p.Default != nil {
			r.walkExpr(p.Default)
		}
	}
	if fn.Body != nil {
		r.walkStmt(fn.Body)
	}

	fn.NumSlots = frame.nextSlot
	r.funcStack = r.funcStack[:len(r.funcStack)-1]
	r.popScope()
}

func (r *Resolver) resolveClosure(cl *ast.Closure) {
	r.pushScope(true)
	frame := &funcFrame{closure: cl, boundary: r.cur, captured: make(map[string]bool)}
	r.funcStack = append(r.funcStack, frame)

	params := cl.Params
	if len(params) == 0 {
		// Implicit single parameter named `it`.
		params = []*ast.Param{{Name: "it"}}
	}
	for _, p := range params {
		slot := frame.allocSlot()
		r.cur.define(&symbol{name: p.Name, kind: kindParam, slot: slot, typ: resolveTypeExpr(r.classes, p.TypeExpr)})
	}
	if cl.Body != nil {
		r.walkStmt(cl.Body)
	}

	cl.NumSlots = frame.nextSlot
	r.funcStack = r.funcStack[:len(r.funcStack)-1]
	r.popScope()
}

// resolveIdentifier binds id to a local, param, capture, field, or global,
// recording the binding kind and slot on the node itself.
func (r *Resolver) resolveIdentifier(id *ast.Identifier) {
	if id.Name == "this" || id.Name == "super" {
		cc := r.currentClass()
		if cc == nil {
			r.addError(id.Pos(), "'"+id.Name+"' used outside a class body")
			return
		}
		fqName := cc.fqName
		if id.Name == "super" {
			fqName = cc.decl.Extends
		}
		id.Binding = "this"
		id.SetType(types.Class(fqName))
		return
	}

	if sym, crossed := r.cur.resolve(id.Name); sym != nil {
		if crossed {
			if sym.decl != nil {
				sym.decl.IsCaptured = true
			}
			for i := len(r.funcStack) - 1; i >= 0; i-- {
				f := r.funcStack[i]
				f.addCapture(id.Name)
				if symDefinedAt(f.boundary, sym) {
					break
				}
			}
			id.Binding = "capture"
		} else {
			id.Binding = sym.kind.binding()
		}
		id.Slot = sym.slot
		id.SetType(sym.typ)
		return
	}

	if cc := r.currentClass(); cc != nil {
		if f := cc.lookupField(id.Name); f != nil {
			id.Binding = "field"
			id.SetType(resolveTypeExpr(r.classes, f.TypeExpr))
			return
		}
		if cc.lookupMethod(id.Name) != nil {
			id.Binding = "method"
			return
		}
	}

	if _, ok := r.classes[id.Name]; ok {
		id.Binding = "class"
		id.SetType(types.Class(id.Name))
		return
	}

	if globalFunctions[id.Name] {
		id.Binding = "builtin"
		return
	}

	r.addError(id.Pos(), "undefined variable '"+id.Name+"'")
}

// symDefinedAt reports whether sym lives directly in the symbols map of
// the scope rooted at boundary (a shallow membership test used to stop
// the capture-chain walk at the function that actually owns the symbol).
func symDefinedAt(boundary *scope, sym *symbol) bool {
	for _, s := range boundary.symbols {
		if s == sym {
			return true
		}
	}
	return false
}

func resolveTypeExpr(classes map[string]*classInfo, te ast.TypeExpression) types.Type {
	switch t := te.(type) {
	case nil:
		return types.AnyT
	case *ast.TypeExpr:
		switch t.Name {
		case "def":
			return types.AnyT
		case "boolean":
			return types.Bool
		case "byte":
			return types.ByteT
		case "int":
			return types.IntT
		case "long":
			return types.LongT
		case "double":
			return types.DoubleT
		case "Decimal":
			return types.DecT
		case "String":
			return types.StrT
		case "Map":
			return types.MapT
		case "List":
			return types.ListT
		default:
			ty := types.Class(t.Name)
			ty.Nilable = t.Nilable
			return ty
		}
	case *ast.ArrayTypeExpr:
		elem := resolveTypeExpr(classes, t.Elem)
		return types.Array(elem)
	default:
		return types.AnyT
	}
}

