package errors

import (
	"strings"
	"testing"

	"github.com/jactl-lang/jactl/internal/token"
)

func TestCompileErrorFormat(t *testing.T) {
	tests := []struct {
		name        string
		pos         token.Position
		message     string
		source      string
		file        string
		wantContain []string
	}{
		{
			name:    "with file",
			pos:     token.Position{Line: 1, Column: 10},
			message: "undefined variable 'x'",
			source:  "var y = x + 5",
			file:    "test.jactl",
			wantContain: []string{
				"Error in test.jactl:1:10",
				"   1 | var y = x + 5",
				"^",
				"undefined variable 'x'",
			},
		},
		{
			name:    "without file",
			pos:     token.Position{Line: 3, Column: 5},
			message: "type mismatch",
			source:  "line1\nline2\nbad line here\nline4",
			file:    "",
			wantContain: []string{
				"Error at line 3:5",
				"   3 | bad line here",
				"^",
				"type mismatch",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCompileError(tt.pos, tt.message, tt.source, tt.file)
			got := e.Format(false)
			for _, want := range tt.wantContain {
				if !strings.Contains(got, want) {
					t.Fatalf("Format() missing %q\ngot:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatErrorsSingleVsMultiple(t *testing.T) {
	one := []*CompileError{NewCompileError(token.Position{Line: 1, Column: 1}, "bad", "x", "")}
	if got := FormatErrors(one, false); strings.Contains(got, "Compilation failed") {
		t.Fatalf("single error should not get a batch summary header, got:\n%s", got)
	}

	two := []*CompileError{
		NewCompileError(token.Position{Line: 1, Column: 1}, "bad one", "x", ""),
		NewCompileError(token.Position{Line: 2, Column: 1}, "bad two", "x\ny", ""),
	}
	got := FormatErrors(two, false)
	if !strings.Contains(got, "Compilation failed with 2 error(s)") {
		t.Fatalf("expected batch summary, got:\n%s", got)
	}
	if !strings.Contains(got, "bad one") || !strings.Contains(got, "bad two") {
		t.Fatalf("expected both messages present, got:\n%s", got)
	}
}

func TestRuntimeErrorFormatIncludesStack(t *testing.T) {
	e := &RuntimeError{
		Message: "null value",
		Pos:     token.Position{Line: 10, Column: 3},
		Stack: []StackFrame{
			{FuncName: "inner", Pos: token.Position{Line: 10, Column: 3}},
			{FuncName: "outer", Pos: token.Position{Line: 2, Column: 1}},
		},
	}
	got := e.Format(false)
	if !strings.Contains(got, "null value") {
		t.Fatalf("missing message: %s", got)
	}
	if !strings.Contains(got, "at inner") || !strings.Contains(got, "at outer") {
		t.Fatalf("missing stack frames: %s", got)
	}
}

func TestCheckpointErrorUnwrap(t *testing.T) {
	cause := NewCompileError(token.Position{}, "bad wire format", "", "")
	e := &CheckpointError{Message: "failed to restore", Cause: cause}
	if e.Unwrap() != cause {
		t.Fatalf("Unwrap did not return the wrapped cause")
	}
	if !strings.Contains(e.Error(), "failed to restore") {
		t.Fatalf("Error() missing message: %s", e.Error())
	}
}
