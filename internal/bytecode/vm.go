package bytecode

import (
	"fmt"
	"io"

	"github.com/jactl-lang/jactl/internal/errors"
	"github.com/jactl-lang/jactl/internal/token"
	"github.com/jactl-lang/jactl/internal/types"
)

const (
	defaultStackCapacity = 256
	defaultFrameCapacity = 16
)

// BuiltinFunc is a host-visible built-in callable from bytecode, wired up
// by internal/builtins. Returning a *Suspend value rather than an error
// asks the VM to suspend the whole script at this call (see
// continuation.go); any other error is an ordinary RuntimeError-wrapped
// failure.
type BuiltinFunc func(vm *VM, args []Value) (Value, error)

// callFrame is one active call's state: which FunctionObject it is
// executing, its own local-slot array, the captured upvalues it closed
// over (nil for the outermost script frame and for non-closure
// functions), the receiver `this` is bound to (nil outside an instance
// method), and the program counter. Every frame lives in VM.frames
// rather than on the Go call stack, so the entire in-flight call chain
// is plain data the continuation mechanism can snapshot and restore.
type callFrame struct {
	fn       *FunctionObject
	locals   []Value
	captured []*Upvalue
	this     *Instance
	ip       int
}

// VM executes Chunks compiled by Compiler. One VM instance is single-
// threaded and single-script; pkg/jactl's Context creates a fresh VM (or
// restores one from a Continuation) per script run.
// methodKey indexes the built-in method table OpCallMethod falls back to
// when its receiver isn't a user-defined class Instance: List.map{},
// String.toUpperCase(), and the rest of Jactl's standard method surface
// are registered here by internal/builtins, keyed by the receiver Kind
// they apply to rather than by a ClassDescriptor.
type methodKey struct {
	kind types.Kind
	name string
}

type VM struct {
	stack        []Value
	frames       []callFrame
	globals      []Value
	openUpvalues []*Upvalue
	classes      map[string]*ClassDescriptor
	builtins     map[string]BuiltinFunc
	methods      map[methodKey]BuiltinFunc
	output       io.Writer
	source       string
	file         string
}

func NewVM(classes map[string]*ClassDescriptor, builtins map[string]BuiltinFunc, output io.Writer) *VM {
	return &VM{
		stack:        make([]Value, 0, defaultStackCapacity),
		frames:       make([]callFrame, 0, defaultFrameCapacity),
		globals:      make([]Value, 0),
		openUpvalues: make([]*Upvalue, 0),
		classes:      classes,
		builtins:     builtins,
		methods:      make(map[methodKey]BuiltinFunc),
		output:       output,
	}
}

// RegisterMethod adds a built-in method callable on every Value of the
// given Kind, e.g. RegisterMethod(types.LIST, "map", ...). Called by
// internal/builtins during VM setup, never at script-run time.
func (vm *VM) RegisterMethod(kind types.Kind, name string, fn BuiltinFunc) {
	vm.methods[methodKey{kind, name}] = fn
}

// RegisterBuiltin adds a free function callable by name via OpCallBuiltin.
// Called by internal/builtins during VM setup, never at script-run time.
func (vm *VM) RegisterBuiltin(name string, fn BuiltinFunc) {
	if vm.builtins == nil {
		vm.builtins = make(map[string]BuiltinFunc)
	}
	vm.builtins[name] = fn
}

// Classes exposes the VM's class table so internal/builtins' host-backed
// classes can be consulted by name alongside script-defined ones.
func (vm *VM) Classes() map[string]*ClassDescriptor { return vm.classes }

// Write sends s to the script's configured output sink (print/println's
// destination); a no-op if the Context was built without one.
func (vm *VM) Write(s string) {
	if vm.output != nil {
		vm.output.Write([]byte(s))
	}
}

// SetSource attaches the script text/filename used for RuntimeError
// formatting (line lookups come from the Chunk itself; source/file are
// only carried for a nicer message, matching errors.CompileError's own
// optional File field).
func (vm *VM) SetSource(source, file string) { vm.source, vm.file = source, file }

// Run executes script from pc 0 with a fresh frame stack. It returns
// either the script's result, a *Suspend (the script performed a
// suspending call and must be resumed later via VM.Resume), or an error.
func (vm *VM) Run(script *FunctionObject) (Value, *Suspend, error) {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = vm.openUpvalues[:0]
	vm.pushCallFrame(script, make([]Value, script.NumLocals), nil, nil)
	return vm.run(0)
}

// Resume restores a previously captured Continuation and pushes
// resumeValue — the host's answer to whatever suspended the script — as
// the result of the call that suspended it, then continues execution.
func (vm *VM) Resume(cont *Continuation, resumeValue Value) (Value, *Suspend, error) {
	vm.stack = append([]Value(nil), cont.Stack...)
	vm.frames = make([]callFrame, len(cont.Frames))
	for i, f := range cont.Frames {
		vm.frames[i] = callFrame{
			fn:       f.Fn,
			locals:   append([]Value(nil), f.Locals...),
			captured: f.Captured,
			this:     f.This,
			ip:       f.IP,
		}
	}
	vm.globals = append([]Value(nil), cont.Globals...)
	vm.openUpvalues = vm.openUpvalues[:0]
	vm.push(resumeValue)
	return vm.run(0)
}

func (vm *VM) pushCallFrame(fn *FunctionObject, locals []Value, captured []*Upvalue, this *Instance) {
	vm.frames = append(vm.frames, callFrame{fn: fn, locals: locals, captured: captured, this: this})
}

func (vm *VM) currentFrame() *callFrame {
	if len(vm.frames) == 0 {
		return nil
	}
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) popN(n int) []Value {
	out := make([]Value, n)
	copy(out, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return out
}

func (vm *VM) peek() Value { return vm.stack[len(vm.stack)-1] }

func (vm *VM) getGlobal(idx int) Value {
	if idx < 0 || idx >= len(vm.globals) {
		return Nil()
	}
	return vm.globals[idx]
}

func (vm *VM) setGlobal(idx int, v Value) {
	if idx >= len(vm.globals) {
		grown := make([]Value, idx+1)
		copy(grown, vm.globals)
		vm.globals = grown
	}
	vm.globals[idx] = v
}

func (vm *VM) constant(chunk *Chunk, idx int32) Value { return chunk.Constants[idx] }

func (vm *VM) constantString(chunk *Chunk, idx int32) string {
	return vm.constant(chunk, idx).AsString()
}

// runtimeError builds a *errors.RuntimeError carrying the current frame
// stack as a trace, innermost frame first.
func (vm *VM) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pos token.Position
	var stack []errors.StackFrame
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line, col := 0, 0
		if f.fn != nil && f.fn.Chunk != nil {
			line, col = f.fn.Chunk.LineFor(f.ip - 1)
		}
		p := token.Position{Line: line, Column: col}
		if i == len(vm.frames)-1 {
			pos = p
		}
		name := "<script>"
		if f.fn != nil && f.fn.Name != "" {
			name = f.fn.Name
		}
		stack = append(stack, errors.StackFrame{FuncName: name, Pos: p})
	}
	return &errors.RuntimeError{Message: msg, Pos: pos, Stack: stack}
}

// RuntimeErrorf lets internal/builtins raise a RuntimeError carrying the
// VM's current call stack, the same way a failing opcode does internally.
func (vm *VM) RuntimeErrorf(format string, args ...any) error {
	return vm.runtimeError(format, args...)
}

func newForSpec(vm *VM, spec AutoCreateSpec) (Value, error) {
	switch spec.Kind {
	case "map":
		return MapVal(NewMap()), nil
	case "list":
		return ListVal(NewList(nil)), nil
	case "class":
		desc := vm.classes[spec.ClassFQ]
		if desc == nil {
			return Nil(), vm.runtimeError("unknown class %q for auto-create", spec.ClassFQ)
		}
		inst := NewInstance(desc)
		if err := vm.initFields(inst, desc); err != nil {
			return Nil(), err
		}
		return InstanceVal(inst), nil
	default:
		return Nil(), vm.runtimeError("unsupported auto-create kind %q", spec.Kind)
	}
}
