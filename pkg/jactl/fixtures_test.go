package jactl

import (
	"fmt"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestEndToEndFixtures runs the canonical source/expected-result scenarios
// through the full compile-and-run pipeline and snapshots their stringified
// results with go-snaps rather than hand-writing an expected string per
// case.
func TestEndToEndFixtures(t *testing.T) {
	fixtures := []struct {
		name   string
		source string
	}{
		{"arithmetic", "3 + 4"},
		{"recursion", "def f(x){ return x == 0 ? 0 : f(x-1) + x }; return f(4)"},
		{"closureCounter", "class A { def a() { int x = 1; return { x++ } } }\ndef f = new A().a()\nreturn f() + f() + f()"},
		{"fieldInitOrder", "class X { int i = 1; int j = i + 1 }\nreturn new X().j"},
		{"listLiteral", "return [1, 2, 3]"},
		{"mapLiteral", "return [a: 1, b: 2]"},
		{"stringInterpolation", "def name = 'world'\nreturn \"hello $name\""},
		{"ternaryAndNullSafe", "def x = null\nreturn x?.size() ?: -1"},
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			ctx := Create().Build()
			script, err := ctx.CompileScript(fx.source, fx.name+".jactl")
			if err != nil {
				t.Fatalf("CompileScript(%s): %v", fx.name, err)
			}
			res, err := script.Run()
			if err != nil {
				t.Fatalf("Run(%s): %v", fx.name, err)
			}
			if res.Suspended {
				snaps.MatchSnapshot(t, fmt.Sprintf("%s_suspended", fx.name), true)
				return
			}
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_result", fx.name), res.Value.String())
		})
	}
}

// TestAsyncSuspensionFixtures checks the async-fidelity property: a
// script built from suspending built-ins suspends and hands back a
// non-empty checkpoint, snapshotted so a regression that silently drops
// the checkpoint (or stops suspending) shows up as a diff.
func TestAsyncSuspensionFixtures(t *testing.T) {
	fixtures := []struct {
		name   string
		source string
	}{
		{"sleepSum", "return sleep(0, 2) + sleep(0, 3)"},
		{"mapOverSleep", "return [1,2,3].map{ sleep(0,it)*sleep(0,it) }.sum()"},
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			ctx := Create().Build()
			script, err := ctx.CompileScript(fx.source, fx.name+".jactl")
			if err != nil {
				t.Fatalf("CompileScript(%s): %v", fx.name, err)
			}
			res, err := script.Run()
			if err != nil {
				t.Fatalf("Run(%s): %v", fx.name, err)
			}
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_suspended", fx.name), res.Suspended)
			snaps.MatchSnapshot(t, fmt.Sprintf("%s_hasCheckpoint", fx.name), len(res.Checkpoint) > 0)
		})
	}
}
