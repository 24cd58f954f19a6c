// Package builtins implements the host-visible standard library: the
// free-function and method registration contract
// (`function().name(...).impl(...).register()`, `method(type)...`,
// `createClass(...)...`), plus a concrete set of built-ins (I/O,
// collection methods, string/JSON/hash helpers) registered through it.
// The registration surface is a fluent builder that produces the same
// dispatch table the VM consults at runtime.
package builtins

import (
	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/internal/types"
)

// Registry collects every built-in registered through Function/Method/
// Class before Apply wires it into a bytecode.VM. One Registry is built
// once per process (or per Context, if host options vary the set) and
// reused across script runs.
type Registry struct {
	Functions map[string]bytecode.BuiltinFunc
	Methods   map[methodKey]bytecode.BuiltinFunc
	Classes   map[string]*ClassBuilder
}

type methodKey struct {
	kind types.Kind
	name string
}

func NewRegistry() *Registry {
	return &Registry{
		Functions: make(map[string]bytecode.BuiltinFunc),
		Methods:   make(map[methodKey]bytecode.BuiltinFunc),
		Classes:   make(map[string]*ClassBuilder),
	}
}

// Standard builds the registry every script can assume is present:
// every built-in this module implements, registered exactly once.
func Standard() *Registry {
	r := NewRegistry()
	registerCore(r)
	registerCollections(r)
	registerJSON(r)
	registerHash(r)
	return r
}

// Apply wires every registered function/method into vm so OpCallBuiltin/
// OpCallMethod can find them; called once per VM by pkg/jactl.
func (r *Registry) Apply(vm *bytecode.VM) {
	for name, fn := range r.Functions {
		vm.RegisterBuiltin(name, fn)
	}
	for key, fn := range r.Methods {
		vm.RegisterMethod(key.kind, key.name, fn)
	}
}

// FunctionBuilder implements the
// `function().name(n).param(name, default?)...impl(target).register()`
// contract for a free function.
type FunctionBuilder struct {
	registry *Registry
	name     string
	params   []paramSpec
	impl     bytecode.BuiltinFunc
}

type paramSpec struct {
	name    string
	hasDflt bool
	dflt    bytecode.Value
}

func (r *Registry) Function() *FunctionBuilder { return &FunctionBuilder{registry: r} }

func (b *FunctionBuilder) Name(n string) *FunctionBuilder { b.name = n; return b }

func (b *FunctionBuilder) Param(name string, dflt ...bytecode.Value) *FunctionBuilder {
	p := paramSpec{name: name}
	if len(dflt) > 0 {
		p.hasDflt = true
		p.dflt = dflt[0]
	}
	b.params = append(b.params, p)
	return b
}

func (b *FunctionBuilder) Impl(fn bytecode.BuiltinFunc) *FunctionBuilder { b.impl = fn; return b }

// Register installs the built function under its declared name, padding
// missing trailing arguments from each Param's declared default (if any)
// before handing the call off to Impl — the free-function equivalent of
// compileParamDefault's null-check, done here since builtins have no
// compiled Chunk of their own to emit that check into.
func (b *FunctionBuilder) Register() {
	params, impl := b.params, b.impl
	b.registry.Functions[b.name] = func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		args = padDefaults(args, params)
		return impl(vm, args)
	}
}

// MethodBuilder implements `method(type).name(n).param(...).impl(target).register()`
// for a method on one of Jactl's built-in value kinds (List, Map, String,
// Array, Int, ...). The receiver always arrives as args[0]; Impl sees the
// full args slice so it can use-or-ignore that convention as it likes.
type MethodBuilder struct {
	registry *Registry
	kind     types.Kind
	name     string
	params   []paramSpec
	impl     bytecode.BuiltinFunc
}

func (r *Registry) Method(kind types.Kind) *MethodBuilder {
	return &MethodBuilder{registry: r, kind: kind}
}

func (b *MethodBuilder) Name(n string) *MethodBuilder { b.name = n; return b }

func (b *MethodBuilder) Param(name string, dflt ...bytecode.Value) *MethodBuilder {
	p := paramSpec{name: name}
	if len(dflt) > 0 {
		p.hasDflt = true
		p.dflt = dflt[0]
	}
	b.params = append(b.params, p)
	return b
}

func (b *MethodBuilder) Impl(fn bytecode.BuiltinFunc) *MethodBuilder { b.impl = fn; return b }

func (b *MethodBuilder) Register() {
	params, impl := b.params, b.impl
	b.registry.Methods[methodKey{b.kind, b.name}] = func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		if len(args) == 0 {
			return impl(vm, args)
		}
		receiver, rest := args[0], args[1:]
		rest = padDefaults(rest, params)
		return impl(vm, append([]bytecode.Value{receiver}, rest...))
	}
}

// ClassBuilder implements
// `createClass(fqname).autoImport(bool).checkpoint(writer).restore(reader).register()`
// for a host-backed class: one whose instances are opaque Go values
// rather than a Jactl ClassDescriptor Instance, with host-supplied
// checkpoint/restore callbacks for user-registered foreign types. It has
// no javaClass or mapType step, and Register only records the builder in
// Registry.Classes: internal/checkpoint does not consult the callbacks.
type ClassBuilder struct {
	registry   *Registry
	fqName     string
	autoImport bool
	checkpoint func(v any) ([]byte, error)
	restore    func([]byte) (any, error)
}

func (r *Registry) CreateClass(fqName string) *ClassBuilder {
	return &ClassBuilder{registry: r, fqName: fqName}
}

func (b *ClassBuilder) AutoImport(v bool) *ClassBuilder { b.autoImport = v; return b }

func (b *ClassBuilder) Checkpoint(fn func(v any) ([]byte, error)) *ClassBuilder {
	b.checkpoint = fn
	return b
}

func (b *ClassBuilder) Restore(fn func([]byte) (any, error)) *ClassBuilder {
	b.restore = fn
	return b
}

func (b *ClassBuilder) Register() { b.registry.Classes[b.fqName] = b }

func padDefaults(args []bytecode.Value, params []paramSpec) []bytecode.Value {
	if len(args) >= len(params) {
		return args
	}
	out := make([]bytecode.Value, len(params))
	copy(out, args)
	for i := len(args); i < len(params); i++ {
		if params[i].hasDflt {
			out[i] = params[i].dflt
		} else {
			out[i] = bytecode.Nil()
		}
	}
	return out
}
