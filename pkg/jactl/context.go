// Package jactl is the embeddable entry point: a host program compiles
// and runs scripts through a Context built with a chainable
// Create()...Build() builder exposing options like EvaluateConstExprs
// and Output, wired through the lexer -> parser -> resolver ->
// analyser -> compiler -> VM pipeline the rest of this module implements.
package jactl

import (
	"fmt"
	"io"
	"os"

	"github.com/jactl-lang/jactl/internal/analyser"
	"github.com/jactl-lang/jactl/internal/builtins"
	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/checkpoint"
	"github.com/jactl-lang/jactl/internal/errors"
	"github.com/jactl-lang/jactl/internal/parser"
	"github.com/jactl-lang/jactl/internal/resolver"
)

// Context is the compiled-once, run-many-times environment a host builds
// with Create()...Build(). It owns the standard-library registry and the
// handful of behavioural flags the builder exposes.
type Context struct {
	environment           map[string]any
	evaluateConstExprs    bool
	replMode               bool
	classAccessToGlobals  bool
	debugLevel            int
	checkpointEnabled     bool
	restoreEnabled        bool
	output                io.Writer
	registry              *builtins.Registry
}

// ContextBuilder accumulates Create()'s chained options before Build()
// freezes them into a Context, exposed as a fluent
// `Context.create().environment(...).build()` chain.
type ContextBuilder struct {
	ctx *Context
}

// Create starts building a Context. The standard library registry is
// populated eagerly so Environment/FromYAML can still be layered on top
// before Build.
func Create() *ContextBuilder {
	return &ContextBuilder{ctx: &Context{
		environment: make(map[string]any),
		output:      os.Stdout,
		registry:    builtins.Standard(),
	}}
}

// Environment records host-supplied global variable bindings on the
// Context; CompileScript and Run do not read them.
func (b *ContextBuilder) Environment(env map[string]any) *ContextBuilder {
	for k, v := range env {
		b.ctx.environment[k] = v
	}
	return b
}

// EvaluateConstExprs records the constant-folding flag; CompileScript does
// not read it and performs no constant folding.
func (b *ContextBuilder) EvaluateConstExprs(v bool) *ContextBuilder {
	b.ctx.evaluateConstExprs = v
	return b
}

// ReplMode records the line-at-a-time (interactive shell) flag;
// CompileScript does not read it, so statement-termination and
// redeclaration rules are the same either way.
func (b *ContextBuilder) ReplMode(v bool) *ContextBuilder {
	b.ctx.replMode = v
	return b
}

// ClassAccessToGlobals records whether class bodies may read Context
// globals directly; CompileScript does not read the flag.
func (b *ContextBuilder) ClassAccessToGlobals(v bool) *ContextBuilder {
	b.ctx.classAccessToGlobals = v
	return b
}

// Debug records a diagnostic verbosity level (0 = silent); nothing in the
// compiler or VM reads it.
func (b *ContextBuilder) Debug(level int) *ContextBuilder {
	b.ctx.debugLevel = level
	return b
}

// Checkpoint enables treating the script's outermost frame as
// suspendable at any point, per analyser.Options.Checkpoint.
func (b *ContextBuilder) Checkpoint(v bool) *ContextBuilder {
	b.ctx.checkpointEnabled = v
	return b
}

// Restore records whether this Context resumes from previously saved
// checkpoints; nothing reads the flag, and RecoverCheckpoint works
// whether or not it is set.
func (b *ContextBuilder) Restore(v bool) *ContextBuilder {
	b.ctx.restoreEnabled = v
	return b
}

// Output redirects print/println's destination; defaults to os.Stdout.
func (b *ContextBuilder) Output(w io.Writer) *ContextBuilder {
	b.ctx.output = w
	return b
}

// Registry lets a host extend or replace the built-in standard library
// (e.g. swap in additional createClass-registered foreign types) before
// Build.
func (b *ContextBuilder) Registry(r *builtins.Registry) *ContextBuilder {
	b.ctx.registry = r
	return b
}

// Build freezes the accumulated options into a usable Context.
func (b *ContextBuilder) Build() *Context { return b.ctx }

// CompileScript runs the full front end over source — lex, parse,
// resolve, analyse — and lowers the result to bytecode, split out as its
// own step so a host can compile once and run a script many times.
func (c *Context) CompileScript(source, file string) (*Script, error) {
	p := parser.New(source)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, parseErrorList(errs)
	}

	if cerrs := resolver.Resolve(prog, source, file); len(cerrs) > 0 {
		return nil, compileErrorList(cerrs)
	}

	analyser.Analyse(prog, analyser.Options{Checkpoint: c.checkpointEnabled})

	compiled, cerrs := bytecode.Compile(prog, source, file)
	if len(cerrs) > 0 {
		return nil, compileErrorList(cerrs)
	}

	return &Script{ctx: c, compiled: compiled, source: source, file: file}, nil
}

// RecoverCheckpoint restores a previously suspended script from a
// checkpoint blob saved via Script.Run's Result.Checkpoint, resuming it
// with resumeValue as the answer to whatever suspended it. compiled must
// supply the same function/class definitions the checkpoint was taken
// against.
func (c *Context) RecoverCheckpoint(data []byte, compiled *bytecode.Compiled, resumeValue bytecode.Value) (*Result, error) {
	prog := programIndex(compiled)
	cont, _, err := checkpoint.Load(data, prog)
	if err != nil {
		return nil, err
	}
	vm := bytecode.NewVM(compiled.Classes, nil, c.output)
	c.registry.Apply(vm)
	value, susp, err := vm.Resume(cont, resumeValue)
	return newResult(vm, value, susp, err)
}

func programIndex(compiled *bytecode.Compiled) *checkpoint.Program {
	fns := map[string]*bytecode.FunctionObject{compiled.Script.FQName: compiled.Script}
	for _, desc := range compiled.Classes {
		for name, fn := range desc.Methods {
			fns[fn.FQName] = fn
			_ = name
		}
	}
	return &checkpoint.Program{Functions: fns, Classes: compiled.Classes}
}

func parseErrorList(errs []parser.ParseError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("parse error: %s", firstOrJoined(msgs))
}

func compileErrorList(errs []*errors.CompileError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("compile error: %s", firstOrJoined(msgs))
}

func firstOrJoined(msgs []string) string {
	if len(msgs) == 1 {
		return msgs[0]
	}
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}
