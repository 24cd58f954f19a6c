package resolver

import "github.com/jactl-lang/jactl/internal/ast"

// walkStmt dispatches over every statement form, recursing into child
// statements and expressions and opening/closing scopes around blocks.
func (r *Resolver) walkStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch st := s.(type) {
	case *ast.Stmts:
		for _, inner := range st.List {
			r.walkStmt(inner)
		}
	case *ast.Block:
		r.pushScope(false)
		r.walkStmt(st.Body)
		r.popScope()
	case *ast.If:
		r.walkExpr(st.Cond)
		r.walkStmt(st.Then)
		r.walkStmt(st.Else)
	case *ast.While:
		r.walkExpr(st.Cond)
		r.walkStmt(st.Body)
	case *ast.For:
		r.pushScope(false)
		r.walkStmt(st.Init)
		r.walkExpr(st.Cond)
		r.walkStmt(st.Update)
		r.walkStmt(st.Body)
		r.popScope()
	case *ast.Switch:
		r.walkExpr(st.Subject)
		for _, c := range st.Cases {
			r.walkStmt(c)
		}
		r.walkStmt(st.Default)
	case *ast.SwitchCase:
		r.walkExpr(st.Pattern)
		r.walkStmt(st.Body)
	case *ast.Return:
		r.walkExpr(st.Value)
	case *ast.Break, *ast.Continue:
		// no child nodes
	case *ast.ExprStmt:
		r.walkExpr(st.X)
	case *ast.VarDeclStmt:
		r.walkVarDecls(st.Decls)
	case *ast.FunDeclStmt:
		r.resolveFunction(st.Fun)
	case *ast.ThrowError:
		r.walkExpr(st.Message)
	case *ast.TryCatch:
		r.pushScope(false)
		r.walkStmt(st.Body)
		r.popScope()
		for _, c := range st.Catches {
			r.pushScope(false)
			frame := r.currentFrame()
			if frame != nil {
				slot := frame.allocSlot()
				c.Slot = slot
				r.cur.define(&symbol{name: c.Name, kind: kindLocal, slot: slot})
			}
			r.walkStmt(c.Body)
			r.popScope()
		}
		if st.Finally != nil {
			r.pushScope(false)
			r.walkStmt(st.Finally)
			r.popScope()
		}
	default:
		r.addError(s.Pos(), "resolver: unhandled statement form")
	}
}

// walkVarDecls resolves one or more `var`/`const`/typed declarations,
// defining each name in the current scope only after its own initializer
// has been walked, so `var x = x` correctly reports x as undefined rather
// than self-referencing.
func (r *Resolver) walkVarDecls(decls []*ast.VarDecl) {
	for _, d := range decls {
		if d.Init != nil {
			r.walkExpr(d.Init)
		}
		kind := kindLocal
		if len(r.classStack) > 0 && len(r.funcStack) == 1 && r.funcStack[0].fun == nil && r.funcStack[0].closure == nil {
			kind = kindGlobal
		}
		frame := r.currentFrame()
		slot := 0
		if frame != nil {
			slot = frame.allocSlot()
		}
		typ := resolveTypeExpr(r.classes, d.TypeExpr)
		sym := &symbol{name: d.Name, kind: kind, slot: slot, decl: d, typ: typ}
		r.cur.define(sym)
		d.Slot = slot
		d.SetType(typ)
	}
}

// walkExpr dispatches over every expression form.
func (r *Resolver) walkExpr(e ast.Expr) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Literal, *ast.Noop, *ast.LoadParamValue, *ast.ClassPath, *ast.DefaultValue:
		// leaves
	case *ast.Identifier:
		r.resolveIdentifier(ex)
	case *ast.Binary:
		r.walkExpr(ex.Left)
		r.walkExpr(ex.Right)
	case *ast.PrefixUnary:
		r.walkExpr(ex.Operand)
	case *ast.PostfixUnary:
		r.walkExpr(ex.Operand)
	case *ast.Ternary:
		r.walkExpr(ex.Cond)
		r.walkExpr(ex.Then)
		r.walkExpr(ex.Else)
	case *ast.Call:
		r.walkExpr(ex.Callee)
		for _, a := range ex.Args {
			r.walkExpr(a)
		}
		r.bindCallArgs(ex)
	case *ast.MethodCall:
		r.walkExpr(ex.Receiver)
		for _, a := range ex.Args {
			r.walkExpr(a)
		}
		if ex.NamedArgs != nil {
			r.walkExpr(ex.NamedArgs)
		}
	case *ast.ListLiteral:
		for _, el := range ex.Elements {
			r.walkExpr(el)
		}
	case *ast.MapLiteral:
		for _, entry := range ex.Entries {
			// Named-argument call syntax reuses MapLiteral with the
			// parameter name as Key; that name is not a variable
			// reference, so only a plain map literal's keys get resolved.
			if !ex.IsNamedArgs {
				r.walkExpr(entry.Key)
			}
			r.walkExpr(entry.Value)
		}
	case *ast.ExprString:
		for _, p := range ex.Parts {
			if p.Expr != nil {
				r.walkExpr(p.Expr)
			}
		}
	case *ast.RegexMatch:
		r.walkExpr(ex.Subject)
		r.walkExpr(ex.Pattern)
	case *ast.RegexSubst:
		r.walkExpr(ex.Subject)
		r.walkExpr(ex.Pattern)
		r.walkExpr(ex.Replacement)
	case *ast.VarDecl:
		r.walkVarDecls([]*ast.VarDecl{ex})
	case *ast.VarAssign:
		r.walkExpr(ex.Value)
		r.walkExpr(ex.Target)
	case *ast.VarOpAssign:
		r.walkExpr(ex.Value)
		r.walkExpr(ex.Target)
	case *ast.FieldAssign:
		r.walkExpr(ex.Value)
		r.resolveFieldAssign(ex)
	case *ast.FieldOpAssign:
		r.walkExpr(ex.Value)
		r.walkExpr(ex.Target)
	case *ast.FieldAccess:
		r.walkExpr(ex.Receiver)
	case *ast.ArrayGet:
		r.walkExpr(ex.Receiver)
		r.walkExpr(ex.Index)
	case *ast.ArrayLength:
		r.walkExpr(ex.Receiver)
	case *ast.FunDecl:
		r.resolveFunction(ex)
	case *ast.Closure:
		r.resolveClosure(ex)
	case *ast.ExprStmtWrap:
		r.walkStmt(ex.Inner)
	case *ast.Cast:
		r.walkExpr(ex.Operand)
	case *ast.ConvertTo:
		r.walkExpr(ex.Operand)
	case *ast.InstanceOf:
		r.walkExpr(ex.Operand)
	case *ast.InvokeNew:
		if _, ok := r.classes[ex.ClassName]; !ok {
			r.addError(ex.Pos(), "unknown class '"+ex.ClassName+"' in new expression")
		}
		for _, a := range ex.Args {
			r.walkExpr(a)
		}
		if ex.NamedArgs != nil {
			r.walkExpr(ex.NamedArgs)
		}
	case *ast.InvokeInit:
		for _, a := range ex.Args {
			r.walkExpr(a)
		}
	case *ast.InvokeFunDecl:
		for _, a := range ex.Args {
			r.walkExpr(a)
		}
	case *ast.Eval:
		r.walkExpr(ex.Source)
		r.walkExpr(ex.Globals)
	case *ast.Print:
		r.walkExpr(ex.Arg)
	case *ast.Die:
		r.walkExpr(ex.Message)
	default:
		r.addError(e.Pos(), "resolver: unhandled expression form")
	}
}

// bindCallArgs fills in Call.BindingPlan when the callee is a direct
// reference to a known function or a named-argument call needs reordering
// against a parameter list.
func (r *Resolver) bindCallArgs(c *ast.Call) {
	if c.NamedArgs == nil {
		return
	}
	r.walkExpr(c.NamedArgs)

	id, ok := c.Callee.(*ast.Identifier)
	if !ok {
		return
	}
	cc := r.currentClass()
	var fn *ast.FunDecl
	if cc != nil {
		fn = cc.lookupMethod(id.Name)
	}
	if fn == nil {
		return
	}
	plan := make([]int, len(c.NamedArgs.Entries))
	for i, entry := range c.NamedArgs.Entries {
		key, ok := entry.Key.(*ast.Identifier)
		if !ok {
			continue
		}
		name := key.Name
		plan[i] = -1
		for slot, p := range fn.Params {
			if p.Name == name {
				plan[i] = slot
				break
			}
		}
		if plan[i] == -1 {
			r.addError(entry.Key.Pos(), "unknown named argument '"+name+"' for "+id.Name)
		}
	}
	c.BindingPlan = plan
}
