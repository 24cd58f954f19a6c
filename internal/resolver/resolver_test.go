package resolver

import (
	"strings"
	"testing"

	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/parser"
)

func parseAndResolve(t *testing.T, source string) (*ast.Program, []error) {
	t.Helper()
	p := parser.New(source)
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	errs := Resolve(prog, source, "test.jactl")
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return prog, out
}

func TestUndefinedVariableReported(t *testing.T) {
	_, errs := parseAndResolve(t, "var x = y + 1\n")
	if len(errs) == 0 {
		t.Fatalf("expected an undefined-variable error")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "undefined variable 'y'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected error mentioning y, got %v", errs)
	}
}

func TestClosureCaptureIsPromoted(t *testing.T) {
	src := "var total = 0\nvar adder = { x -> total = total + x }\n"
	prog, errs := parseAndResolve(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	var totalDecl *ast.VarDecl
	var closure *ast.Closure
	for _, st := range prog.ScriptMain.ScriptMain.List {
		vds, ok := st.(*ast.VarDeclStmt)
		if !ok {
			continue
		}
		for _, v := range vds.Decls {
			if v.Name == "total" {
				totalDecl = v
			}
			if cl, ok := v.Init.(*ast.Closure); ok {
				closure = cl
			}
		}
	}
	if totalDecl == nil {
		t.Fatalf("could not find 'total' declaration in resolved tree")
	}
	if !totalDecl.IsCaptured {
		t.Fatalf("expected 'total' to be promoted to a captured cell")
	}
	if closure == nil {
		t.Fatalf("could not find adder's closure literal")
	}
	found := false
	for _, name := range closure.CapturedVars {
		if name == "total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected closure.CapturedVars to include 'total', got %v", closure.CapturedVars)
	}
}

func TestDuplicateClassDeclarationReported(t *testing.T) {
	src := "class Foo { int x }\nclass Foo { int y }\n"
	_, errs := parseAndResolve(t, src)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "duplicate class declaration") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate class declaration error, got %v", errs)
	}
}

func TestUnknownParentClassReported(t *testing.T) {
	src := "class Foo extends Bar { int x }\n"
	_, errs := parseAndResolve(t, src)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "extends unknown class") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown-parent error, got %v", errs)
	}
}

func TestAutoCreateChainRecorded(t *testing.T) {
	src := "var a = [:]\na.b.c = 1\n"
	prog, errs := parseAndResolve(t, src)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var fa *ast.FieldAssign
	for _, st := range prog.ScriptMain.ScriptMain.List {
		es, ok := st.(*ast.ExprStmt)
		if !ok {
			continue
		}
		if f, ok := es.X.(*ast.FieldAssign); ok {
			fa = f
		}
	}
	if fa == nil {
		t.Fatalf("could not find the a.b.c assignment in resolved tree")
	}
	if len(fa.AutoCreate) != 1 || fa.AutoCreate[0].FieldName != "b" {
		t.Fatalf("expected one auto-create step for 'b', got %+v", fa.AutoCreate)
	}
}
