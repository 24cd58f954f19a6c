package jactl

import (
	"bytes"
	"testing"
)

func TestCompileAndRunSyncSimpleScript(t *testing.T) {
	ctx := Create().Build()
	script, err := ctx.CompileScript("def add(x, y) { return x + y }\nreturn add(40, 2)\n", "test.jactl")
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	v, err := script.RunSync()
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	n, ok := v.AsInt64()
	if !ok || n != 42 {
		t.Fatalf("expected 42, got %v", v)
	}
}

func TestPrintlnGoesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := Create().Output(&buf).Build()
	script, err := ctx.CompileScript("println('hello')\n", "test.jactl")
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	if _, err := script.RunSync(); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Fatalf("expected \"hello\\n\", got %q", buf.String())
	}
}

func TestSleepSuspendsAndReturnsACheckpoint(t *testing.T) {
	ctx := Create().Build()
	script, err := ctx.CompileScript("def pause() { sleep(0, 1); return 1 }\nreturn pause()\n", "test.jactl")
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	res, err := script.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Suspended || len(res.Checkpoint) == 0 {
		t.Fatalf("expected a suspended Result with a saved checkpoint, got %+v", res)
	}
}

func TestCompileErrorIsReported(t *testing.T) {
	ctx := Create().Build()
	if _, err := ctx.CompileScript("def add(x, y { return x + y }\n", "test.jactl"); err == nil {
		t.Fatal("expected a parse error for malformed source")
	}
}
