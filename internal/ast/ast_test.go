package ast

import (
	"testing"

	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

func TestExprTypeRoundTrip(t *testing.T) {
	id := &Identifier{Name: "x"}
	if id.Type().Kind != types.Kind(0) {
		t.Fatalf("expected zero-value type before resolution")
	}
	id.SetType(types.IntT)
	if id.Type().Kind != types.INT {
		t.Fatalf("SetType did not stick")
	}
	if id.ResultUsed() {
		t.Fatalf("expected ResultUsed false by default")
	}
	id.SetResultUsed(true)
	if !id.ResultUsed() {
		t.Fatalf("SetResultUsed did not stick")
	}
}

func TestBinaryString(t *testing.T) {
	b := &Binary{
		Left:  &Literal{Value: int(1), ExprBase: ExprBase{At: token.Position{Line: 1}}},
		Op:    token.PLUS,
		Right: &Literal{Value: int(2)},
	}
	if got, want := b.String(), "(1 + 2)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTernaryElvisString(t *testing.T) {
	tern := &Ternary{Cond: &Identifier{Name: "a"}, Else: &Identifier{Name: "b"}, Elvis: true}
	if got := tern.String(); got != "a ?: b" {
		t.Fatalf("got %q", got)
	}
}
