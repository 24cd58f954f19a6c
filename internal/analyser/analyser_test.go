package analyser

import (
	"testing"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/parser"
	"github.com/jactl-lang/jactl/internal/resolver"
)

func parseResolveAnalyse(t *testing.T, source string) *ast.Program {
	t.Helper()
	p := parser.New(source)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if errs := resolver.Resolve(prog, source, "test.jactl"); len(errs) != 0 {
		t.Fatalf("unexpected resolve errors: %v", errs)
	}
	Analyse(prog, Options{})
	return prog
}

func findFunDecl(prog *ast.Program, name string) *ast.FunDecl {
	for _, st := range prog.ScriptMain.ScriptMain.List {
		if fds, ok := st.(*ast.FunDeclStmt); ok && fds.Fun.Name == name {
			return fds.Fun
		}
	}
	return nil
}

func firstClosure(prog *ast.Program) *ast.Closure {
	var found *ast.Closure
	var walk func(ast.Stmt)
	walk = func(s ast.Stmt) {
		if s == nil || found != nil {
			return
		}
		switch st := s.(type) {
		case *ast.Stmts:
			for _, inner := range st.List {
				walk(inner)
			}
		case *ast.VarDeclStmt:
			for _, d := range st.Decls {
				if cl, ok := d.Init.(*ast.Closure); ok {
					found = cl
				}
				walkExprForClosure(d.Init, &found)
			}
		}
	}
	walk(prog.ScriptMain.ScriptMain)
	return found
}

func walkExprForClosure(e ast.Expr, found **ast.Closure) {
	if *found != nil || e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.MethodCall:
		for _, a := range ex.Args {
			if cl, ok := a.(*ast.Closure); ok {
				*found = cl
				return
			}
		}
		walkExprForClosure(ex.Receiver, found)
		for _, a := range ex.Args {
			walkExprForClosure(a, found)
		}
	}
}

func TestNoAsyncOperationsLeavesEverythingSynchronous(t *testing.T) {
	src := "def add(x, y) { return x + y }\nvar r = add(1, 2)\nprintln(r)\n"
	prog := parseResolveAnalyse(t, src)
	fn := findFunDecl(prog, "add")
	if fn == nil {
		t.Fatalf("could not find 'add' declaration")
	}
	if fn.IsAsync {
		t.Fatalf("expected 'add' to remain synchronous")
	}
}

func TestSleepMakesEnclosingFunctionAsync(t *testing.T) {
	src := "def pause(x) { sleep(0, x); return x }\n"
	prog := parseResolveAnalyse(t, src)
	fn := findFunDecl(prog, "pause")
	if fn == nil {
		t.Fatalf("could not find 'pause' declaration")
	}
	if !fn.IsAsync {
		t.Fatalf("expected 'pause' to be async because it calls sleep")
	}
}

func TestMapOverLiteralAsyncClosureIsAsync(t *testing.T) {
	src := "var r = [1,2,3].map({ sleep(0,it)*sleep(0,it) })\n"
	prog := parseResolveAnalyse(t, src)
	cl := firstClosure(prog)
	if cl == nil {
		t.Fatalf("could not find the map closure literal")
	}
	if !cl.IsAsync {
		t.Fatalf("expected the map closure to be async because its body calls sleep")
	}
}

func TestCallThroughVariableIsConservativelyAsync(t *testing.T) {
	src := "def outer(f) { f() }\n"
	prog := parseResolveAnalyse(t, src)
	fn := findFunDecl(prog, "outer")
	if fn == nil {
		t.Fatalf("could not find 'outer' declaration")
	}
	if !fn.IsAsync {
		t.Fatalf("expected a call through a plain variable callee to be conservatively async")
	}
}

func TestFinalMethodAsyncnessTracksTarget(t *testing.T) {
	src := "class Base { final def work() { sleep(0, 1) } def run() { this.work() } }\n"
	prog := parseResolveAnalyse(t, src)
	var run, work *ast.FunDecl
	for _, c := range prog.Classes {
		for _, m := range c.Methods {
			switch m.Name {
			case "run":
				run = m
			case "work":
				work = m
			}
		}
	}
	if run == nil || work == nil {
		t.Fatalf("could not find 'run'/'work' methods")
	}
	if !work.IsAsync {
		t.Fatalf("expected 'work' to be async directly (calls sleep)")
	}
	if !run.IsAsync {
		t.Fatalf("expected 'run' to inherit asyncness from the final method it calls")
	}
}

func TestNonFinalMethodCallIsConservativelyAsync(t *testing.T) {
	src := "class Base { def work() { return 1 } def run() { this.work() } }\n"
	prog := parseResolveAnalyse(t, src)
	var run *ast.FunDecl
	for _, c := range prog.Classes {
		for _, m := range c.Methods {
			if m.Name == "run" {
				run = m
			}
		}
	}
	if run == nil {
		t.Fatalf("could not find 'run' method")
	}
	if !run.IsAsync {
		t.Fatalf("expected a non-final method call to be conservatively async even though the only known override is synchronous")
	}
}

func TestAsyncFieldDefaultMarksInitializerAsync(t *testing.T) {
	src := "class Widget { def state = sleep(0, 1) }\n"
	prog := parseResolveAnalyse(t, src)
	if len(prog.Classes) == 0 {
		t.Fatalf("could not find 'Widget' class")
	}
	if !prog.Classes[0].InitializerIsAsync {
		t.Fatalf("expected an async field default to mark the class initializer async")
	}
}
