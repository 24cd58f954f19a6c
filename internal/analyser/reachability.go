package analyser

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/types"
)

// collectUniverse finds every function/closure body in the program,
// including ones nested inside another function's body, so each gets its
// own node in the fixed-point graph.
func collectUniverse(prog *ast.Program) []any {
	var universe []any
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkStmt = func(s ast.Stmt) {
		if s == nil {
			return
		}
		switch st := s.(type) {
		case *ast.Stmts:
			for _, inner := range st.List {
				walkStmt(inner)
			}
		case *ast.Block:
			walkStmt(st.Body)
		case *ast.If:
			walkExpr(st.Cond)
			walkStmt(st.Then)
			walkStmt(st.Else)
		case *ast.While:
			walkExpr(st.Cond)
			walkStmt(st.Body)
		case *ast.For:
			walkStmt(st.Init)
			walkExpr(st.Cond)
			walkStmt(st.Update)
			walkStmt(st.Body)
		case *ast.Switch:
			walkExpr(st.Subject)
			for _, c := range st.Cases {
				walkExpr(c.Pattern)
				walkStmt(c.Body)
			}
			walkStmt(st.Default)
		case *ast.Return:
			walkExpr(st.Value)
		case *ast.ExprStmt:
			walkExpr(st.X)
		case *ast.VarDeclStmt:
			for _, d := range st.Decls {
				walkExpr(d.Init)
			}
		case *ast.FunDeclStmt:
			universe = append(universe, st.Fun)
			walkStmt(st.Fun.Body)
		case *ast.ThrowError:
			walkExpr(st.Message)
		case *ast.TryCatch:
			walkStmt(st.Body)
			for _, c := range st.Catches {
				walkStmt(c.Body)
			}
			walkStmt(st.Finally)
		}
	}

	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch ex := e.(type) {
		case *ast.Binary:
			walkExpr(ex.Left)
			walkExpr(ex.Right)
		case *ast.PrefixUnary:
			walkExpr(ex.Operand)
		case *ast.PostfixUnary:
			walkExpr(ex.Operand)
		case *ast.Ternary:
			walkExpr(ex.Cond)
			walkExpr(ex.Then)
			walkExpr(ex.Else)
		case *ast.Call:
			walkExpr(ex.Callee)
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *ast.MethodCall:
			walkExpr(ex.Receiver)
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *ast.ListLiteral:
			for _, el := range ex.Elements {
				walkExpr(el)
			}
		case *ast.MapLiteral:
			for _, en := range ex.Entries {
				walkExpr(en.Value)
			}
		case *ast.ExprString:
			for _, p := range ex.Parts {
				walkExpr(p.Expr)
			}
		case *ast.RegexSubst:
			walkExpr(ex.Subject)
		case *ast.RegexMatch:
			walkExpr(ex.Subject)
		case *ast.VarDecl:
			walkExpr(ex.Init)
		case *ast.VarAssign:
			walkExpr(ex.Value)
		case *ast.VarOpAssign:
			walkExpr(ex.Value)
		case *ast.FieldAssign:
			walkExpr(ex.Value)
			walkExpr(ex.Target)
		case *ast.FieldOpAssign:
			walkExpr(ex.Value)
			walkExpr(ex.Target)
		case *ast.FieldAccess:
			walkExpr(ex.Receiver)
		case *ast.ArrayGet:
			walkExpr(ex.Receiver)
			walkExpr(ex.Index)
		case *ast.FunDecl:
			universe = append(universe, ex)
			walkStmt(ex.Body)
		case *ast.Closure:
			universe = append(universe, ex)
			walkStmt(ex.Body)
		case *ast.ExprStmtWrap:
			walkStmt(ex.Inner)
		case *ast.Cast:
			walkExpr(ex.Operand)
		case *ast.ConvertTo:
			walkExpr(ex.Operand)
		case *ast.InstanceOf:
			walkExpr(ex.Operand)
		case *ast.InvokeNew:
			for _, a := range ex.Args {
				walkExpr(a)
			}
		case *ast.Eval:
			walkExpr(ex.Source)
		case *ast.Print:
			walkExpr(ex.Arg)
		case *ast.Die:
			walkExpr(ex.Message)
		}
	}

	for _, c := range prog.Classes {
		var collectClass func(decl *ast.ClassDecl)
		collectClass = func(decl *ast.ClassDecl) {
			for _, m := range decl.Methods {
				universe = append(universe, m)
				walkStmt(m.Body)
			}
			for _, f := range decl.Fields {
				walkExpr(f.Default)
			}
			for _, inner := range decl.InnerClasses {
				collectClass(inner)
			}
		}
		collectClass(c)
	}
	if prog.ScriptMain != nil {
		walkStmt(prog.ScriptMain.ScriptMain)
	}
	return universe
}

// scanResult is what one function/closure body's shallow scan produces:
// whether it contains an operation that is async no matter what (a
// built-in tagged always, a call through a variable, an ANY-receiver or
// non-final method call), and the set of other nodes whose own asyncness
// should additionally make this one async once the fixed point settles.
type scanResult struct {
	unconditional bool
	edges         []any
}

// scanStmt and scanExpr perform the shallow scan described on scanResult,
// not descending into a nested FunDecl/Closure's own body (that body gets
// its own scan as its own universe entry); classes provides the virtual
// method registry for dispatch-site analysis.
func (a *Analyser) scanStmt(s ast.Stmt, res *scanResult) {
	if s == nil {
		return
	}
	switch st := s.(type) {
	case *ast.Stmts:
		for _, inner := range st.List {
			a.scanStmt(inner, res)
		}
	case *ast.Block:
		a.scanStmt(st.Body, res)
	case *ast.If:
		a.scanExpr(st.Cond, res)
		a.scanStmt(st.Then, res)
		a.scanStmt(st.Else, res)
	case *ast.While:
		a.scanExpr(st.Cond, res)
		a.scanStmt(st.Body, res)
	case *ast.For:
		a.scanStmt(st.Init, res)
		a.scanExpr(st.Cond, res)
		a.scanStmt(st.Update, res)
		a.scanStmt(st.Body, res)
	case *ast.Switch:
		a.scanExpr(st.Subject, res)
		for _, c := range st.Cases {
			a.scanExpr(c.Pattern, res)
			a.scanStmt(c.Body, res)
		}
		a.scanStmt(st.Default, res)
	case *ast.Return:
		a.scanExpr(st.Value, res)
	case *ast.ExprStmt:
		a.scanExpr(st.X, res)
	case *ast.VarDeclStmt:
		for _, d := range st.Decls {
			a.scanExpr(d.Init, res)
		}
	case *ast.FunDeclStmt:
		// Scanned separately as its own universe node; a reference to it
		// here would be a Call, handled in scanExpr.
	case *ast.ThrowError:
		a.scanExpr(st.Message, res)
	case *ast.TryCatch:
		a.scanStmt(st.Body, res)
		for _, c := range st.Catches {
			a.scanStmt(c.Body, res)
		}
		a.scanStmt(st.Finally, res)
	}
}

func (a *Analyser) scanExpr(e ast.Expr, res *scanResult) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Binary:
		a.scanExpr(ex.Left, res)
		a.scanExpr(ex.Right, res)
	case *ast.PrefixUnary:
		a.scanExpr(ex.Operand, res)
	case *ast.PostfixUnary:
		a.scanExpr(ex.Operand, res)
	case *ast.Ternary:
		a.scanExpr(ex.Cond, res)
		a.scanExpr(ex.Then, res)
		a.scanExpr(ex.Else, res)
	case *ast.Call:
		a.scanCall(ex, res)
	case *ast.MethodCall:
		a.scanMethodCall(ex, res)
	case *ast.ListLiteral:
		for _, el := range ex.Elements {
			a.scanExpr(el, res)
		}
	case *ast.MapLiteral:
		for _, en := range ex.Entries {
			a.scanExpr(en.Value, res)
		}
	case *ast.ExprString:
		for _, p := range ex.Parts {
			a.scanExpr(p.Expr, res)
		}
	case *ast.RegexSubst:
		a.scanExpr(ex.Subject, res)
	case *ast.RegexMatch:
		a.scanExpr(ex.Subject, res)
	case *ast.VarDecl:
		a.scanExpr(ex.Init, res)
	case *ast.VarAssign:
		a.scanExpr(ex.Value, res)
	case *ast.VarOpAssign:
		a.scanExpr(ex.Value, res)
	case *ast.FieldAssign:
		a.scanExpr(ex.Value, res)
		a.scanExpr(ex.Target, res)
		for _, step := range ex.AutoCreate {
			if step.IsAsync {
				res.unconditional = true
			}
		}
	case *ast.FieldOpAssign:
		a.scanExpr(ex.Value, res)
		a.scanExpr(ex.Target, res)
	case *ast.FieldAccess:
		a.scanExpr(ex.Receiver, res)
	case *ast.ArrayGet:
		a.scanExpr(ex.Receiver, res)
		a.scanExpr(ex.Index, res)
	case *ast.FunDecl:
		// A nested function declaration used as a value is its own node;
		// referencing it here isn't itself a call.
	case *ast.Closure:
		// Likewise: the closure literal's body is scanned as its own
		// node; appearing here isn't a call unless immediately invoked,
		// which surfaces as a Call whose Callee is this same node.
	case *ast.ExprStmtWrap:
		a.scanStmt(ex.Inner, res)
	case *ast.Cast:
		a.scanExpr(ex.Operand, res)
	case *ast.ConvertTo:
		a.scanExpr(ex.Operand, res)
	case *ast.InstanceOf:
		a.scanExpr(ex.Operand, res)
	case *ast.InvokeNew:
		for _, a2 := range ex.Args {
			a.scanExpr(a2, res)
		}
		if cv, ok := a.classes.byFQName[ex.ClassName]; ok {
			res.edges = append(res.edges, cv.decl)
		}
	case *ast.Eval:
		a.scanExpr(ex.Source, res)
		// eval's source is arbitrary, unanalysable code; conservatively async.
		res.unconditional = true
	case *ast.Print:
		a.scanExpr(ex.Arg, res)
	case *ast.Die:
		a.scanExpr(ex.Message, res)
	}
}

func (a *Analyser) scanCall(c *ast.Call, res *scanResult) {
	for _, arg := range c.Args {
		a.scanExpr(arg, res)
	}

	id, ok := c.Callee.(*ast.Identifier)
	if !ok {
		// An immediately-invoked closure literal, or any other computed
		// callee: conservative, since what gets called isn't statically
		// fixed.
		res.unconditional = true
		return
	}

	if sig, ok := builtinTable[id.Name]; ok {
		a.applyBuiltinSignature(sig, c.Args, res)
		return
	}

	switch id.Binding {
	case "method":
		if fn := a.lookupTopLevelFunc(id.Name); fn != nil {
			res.edges = append(res.edges, fn)
			return
		}
		res.unconditional = true
	default:
		// A call through a plain variable: the binding could change
		// later, so per the language's own async rule this is always
		// conservatively async rather than traced back to whatever
		// closure it happened to be initialised with.
		res.unconditional = true
	}
}

func (a *Analyser) scanMethodCall(m *ast.MethodCall, res *scanResult) {
	a.scanExpr(m.Receiver, res)
	for _, arg := range m.Args {
		a.scanExpr(arg, res)
	}

	if sig, ok := builtinTable[m.Method]; ok {
		a.applyBuiltinSignature(sig, m.Args, res)
		return
	}

	if m.Receiver == nil {
		// Implicit `this`: the exact class is known if we're inside a
		// non-root class context, handled by the caller's classFQName.
		if a.currentClassFQ == "" {
			res.unconditional = true
			return
		}
		a.scanVirtualDispatch(a.currentClassFQ, m.Method, res)
		return
	}

	rt := m.Receiver.Type()
	switch rt.Kind {
	case types.ANY:
		res.unconditional = true
	case types.CLASS:
		a.scanVirtualDispatch(rt.FQName, m.Method, res)
	default:
		// A method call on a concrete builtin type (String, List, Map,
		// etc.) that isn't in builtinTable: treated as a synchronous
		// library call, the common case for the bulk of string/collection
		// helpers this spec doesn't itemise.
	}
}

func (a *Analyser) scanVirtualDispatch(fqName, method string, res *scanResult) {
	fn := a.classes.lookupMethod(fqName, method)
	if fn == nil {
		res.unconditional = true
		return
	}
	if fn.IsFinal {
		res.edges = append(res.edges, fn)
		return
	}
	// Non-final: the actual override invoked at runtime is not statically
	// fixed, so the call is conservatively async regardless of whether
	// any known override happens to be async today.
	res.unconditional = true
}

func (a *Analyser) applyBuiltinSignature(sig builtinSignature, args []ast.Expr, res *scanResult) {
	switch sig.when {
	case asyncAlways:
		res.unconditional = true
	case asyncNever:
		// nothing to add
	case asyncIfClosureArg:
		if sig.closureParamIndex >= len(args) {
			return
		}
		if cl, ok := args[sig.closureParamIndex].(*ast.Closure); ok {
			res.edges = append(res.edges, cl)
			return
		}
		// A non-literal closure argument (a variable, or a method
		// reference): its asyncness isn't known statically.
		res.unconditional = true
	}
}
