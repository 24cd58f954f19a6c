// Package analyser computes, for every function and closure in a resolved
// program, whether it may suspend the call stack (an "async" function in
// the sense of sleep/checkpoint/IO) and writes the result back onto the
// AST's IsAsync fields so the compiler can decide where a suspend/resume
// frame is needed.
//
// Asyncness is a fixed point over a call graph: a function is async if it
// directly performs a suspending operation, or if it calls another
// function that turns out to be async. Two conservatism rules keep the
// fixed point sound without having to trace every possible runtime value:
// a call through a plain variable (rather than a statically known
// function/method) is always treated as async, and so is a virtual
// (non-final) method call, since the actual override invoked isn't fixed
// at the call site.
package analyser

import (
	"github.com/jactl-lang/jactl/internal/ast"
)

// Options mirrors the two Context flags that make async analysis more or
// less conservative.
type Options struct {
	// AutoCreateAsync is carried for callers, but Analyse does not read
	// it: setting it has no effect on how auto-create allocation steps
	// along an assignment chain are analysed.
	AutoCreateAsync bool
	// Checkpoint, when true, makes the whole script's outermost frame
	// async regardless of what it calls, since a checkpoint may be
	// requested from outside the running script at any point.
	Checkpoint bool
}

// node is one fixed-point participant: either a *ast.FunDecl or a
// *ast.Closure, identified by pointer.
type node struct {
	key           any
	unconditional bool
	edges         []any
	async         bool
}

// Analyser holds the per-run state shared by scanBody and its helpers.
type Analyser struct {
	classes        *classRegistry
	byKey          map[any]*node
	order          []*node
	currentClassFQ string
	topLevelFuncs  map[string]*ast.FunDecl
}

// lookupTopLevelFunc finds a free function declared at script scope by
// name, for bare-name calls that the resolver bound as "method" because
// they resolve like one (Jactl has no free-standing functions outside a
// class, so every callable bare name is a method on the synthetic script
// class or the enclosing class).
func (a *Analyser) lookupTopLevelFunc(name string) *ast.FunDecl {
	if fn, ok := a.topLevelFuncs[name]; ok {
		return fn
	}
	if a.currentClassFQ != "" {
		return a.classes.lookupMethod(a.currentClassFQ, name)
	}
	return nil
}

// Analyse runs async-reachability analysis over prog and writes IsAsync
// back onto every FunDecl/Closure node and ClassDecl.InitializerIsAsync.
func Analyse(prog *ast.Program, opts Options) {
	a := &Analyser{
		classes:       buildClassRegistry(prog),
		byKey:         make(map[any]*node),
		topLevelFuncs: make(map[string]*ast.FunDecl),
	}

	universe := collectUniverse(prog)
	for _, key := range universe {
		n := &node{key: key}
		a.byKey[key] = n
		a.order = append(a.order, n)
	}
	if prog.ScriptMain != nil && prog.ScriptMain.ScriptMain != nil {
		scriptNode := &node{key: prog.ScriptMain}
		a.byKey[prog.ScriptMain] = scriptNode
		a.order = append(a.order, scriptNode)
		// Top-level `def` declarations live as statements in the script
		// body rather than as ClassDecl.Methods, but the resolver still
		// binds bare calls to them as "method" references, so they need
		// the same name lookup here.
		for _, st := range prog.ScriptMain.ScriptMain.List {
			if fds, ok := st.(*ast.FunDeclStmt); ok {
				a.topLevelFuncs[fds.Fun.Name] = fds.Fun
			}
		}
	}
	for _, cv := range a.classes.byFQName {
		for name, fn := range cv.methods {
			a.topLevelFuncs[name] = fn
		}
		// Every class gets its own node standing for "constructing this
		// class may suspend", scanned over its field defaults only, so
		// InvokeNew sites elsewhere can add an edge to it before its own
		// asyncness is known, just like any other forward call.
		initNode := &node{key: cv.decl}
		a.byKey[cv.decl] = initNode
		a.order = append(a.order, initNode)
	}

	for _, n := range a.order {
		a.currentClassFQ = ""
		var body ast.Stmt
		var fieldDefaults []ast.Expr
		switch k := n.key.(type) {
		case *ast.FunDecl:
			a.currentClassFQ = k.DeclaringClass
			body = k.Body
		case *ast.Closure:
			body = k.Body
		case *ast.ClassDecl:
			if k.ScriptMain != nil {
				a.currentClassFQ = k.FQName
				body = k.ScriptMain
			} else {
				for _, f := range k.Fields {
					if f.Default != nil {
						fieldDefaults = append(fieldDefaults, f.Default)
					}
				}
			}
		}
		res := &scanResult{}
		a.scanStmt(body, res)
		for _, fd := range fieldDefaults {
			a.scanExpr(fd, res)
		}
		n.unconditional = res.unconditional
		n.edges = res.edges
	}

	if opts.Checkpoint {
		if scriptNode, ok := findScriptNode(a.order, prog); ok {
			scriptNode.unconditional = true
		}
	}

	changed := true
	for changed {
		changed = false
		for _, n := range a.order {
			if n.async {
				continue
			}
			if n.unconditional {
				n.async = true
				changed = true
				continue
			}
			for _, e := range n.edges {
				if tgt, ok := a.byKey[e]; ok && tgt.async {
					n.async = true
					changed = true
					break
				}
			}
		}
	}

	for _, n := range a.order {
		switch k := n.key.(type) {
		case *ast.FunDecl:
			k.IsAsync = n.async
		case *ast.Closure:
			k.IsAsync = n.async
		}
	}

	for _, cv := range a.classes.byFQName {
		if n, ok := a.byKey[cv.decl]; ok {
			cv.decl.InitializerIsAsync = n.async
		}
	}
}

func findScriptNode(order []*node, prog *ast.Program) (*node, bool) {
	for _, n := range order {
		if n.key == prog.ScriptMain {
			return n, true
		}
	}
	return nil, false
}
