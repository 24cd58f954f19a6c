package bytecode

import "github.com/jactl-lang/jactl/internal/types"

// callValue dispatches OpCall against a first-class function value: a
// FunctionValue (closure/bound method). Any other callee is a runtime
// error.
func (vm *VM) callValue(callee Value, args []Value, named *Map) error {
	fv := callee.AsFunction()
	if fv == nil {
		return vm.runtimeError("attempt to call a %s value", callee.TypeName())
	}
	return vm.invokeFunctionValue(fv, args, named)
}

func (vm *VM) invokeFunctionValue(fv *FunctionValue, args []Value, named *Map) error {
	this := fv.BoundReceiver
	return vm.callFunctionObject(fv.Descriptor, args, named, fv.Captured, this)
}

// callFunctionObject sets up a new callFrame for fn: positional args
// land in slots 0..len(args)-1, a trailing named-args map (if any) is
// matched against fn.Params by name into any slot a positional arg
// didn't already fill, and every slot beyond that starts out nil so
// compileParamDefault's prelude can detect "not supplied" and compute
// the parameter's default.
func (vm *VM) callFunctionObject(fn *FunctionObject, args []Value, named *Map, captured []*Upvalue, this *Instance) error {
	if fn == nil {
		return vm.runtimeError("call to undefined function")
	}
	locals := make([]Value, fn.NumLocals)
	for i := range locals {
		locals[i] = Nil()
	}
	n := len(args)
	if n > len(fn.Params) {
		n = len(fn.Params)
	}
	copy(locals, args[:n])
	if named != nil {
		for i, p := range fn.Params {
			if i < n {
				continue
			}
			if v, ok := named.Get(p.Name); ok {
				locals[i] = v
			}
		}
	}
	vm.pushCallFrame(fn, locals, captured, this)
	return nil
}

// CallValue invokes a first-class function value (typically a closure
// argument a built-in method received, e.g. the block in `list.map{...}`)
// to completion and returns its result. Exported for internal/builtins,
// which has no other way to run script-level code from inside a
// BuiltinFunc. Like newInstance, a suspend reached inside the callee
// isn't supported here — async closures are the analyser's job to detect
// and route through the bytecode-level async call path instead, not this
// synchronous helper.
func (vm *VM) CallValue(callee Value, args []Value) (Value, error) {
	fv := callee.AsFunction()
	if fv == nil {
		return Nil(), vm.runtimeError("attempt to call a %s value", callee.TypeName())
	}
	before := len(vm.frames)
	if err := vm.invokeFunctionValue(fv, args, nil); err != nil {
		return Nil(), err
	}
	v, susp, err := vm.run(before)
	if err != nil {
		return Nil(), err
	}
	if susp != nil {
		return Nil(), vm.runtimeError("suspending call inside a built-in method's closure argument is not supported")
	}
	return v, nil
}

// callMethod dispatches OpCallMethod/OpCallSuper: looks the method up by
// name starting from desc (the receiver's own class for OpCallMethod,
// the current method's declaring class's parent for OpCallSuper), then
// invokes it bound to `this`.
func (vm *VM) callMethod(desc *ClassDescriptor, name string, this *Instance, args []Value, named *Map) error {
	fn, _ := desc.LookupMethod(name)
	if fn == nil {
		return vm.runtimeError("no such method %q on %s", name, desc.FQName)
	}
	return vm.callFunctionObject(fn, args, named, nil, this)
}

func splitNamedArgs(args []Value) ([]Value, *Map) {
	if len(args) == 0 {
		return args, nil
	}
	last := args[len(args)-1]
	if last.Kind == types.MAP {
		return args[:len(args)-1], last.AsMap()
	}
	return args, nil
}

// newInstance runs OpNew: allocates the Instance, evaluates every field's
// default-value Chunk in declaration order (each as its own tiny
// zero-arg call with `this` already bound, matching how an instance
// method body accesses fields), then calls the class's "init" method
// with the constructor's arguments if one is declared.
//
// A field initializer or "init" body that suspends (an async call or a
// checkpoint reached mid-construction) is not supported: newInstance runs
// those nested frames to completion via the stopDepth-bounded run() and
// reports an error rather than trying to let a half-built Instance escape
// into a Continuation snapshot.
func (vm *VM) newInstance(desc *ClassDescriptor, args []Value) (*Instance, error) {
	inst := NewInstance(desc)
	if err := vm.initFields(inst, desc); err != nil {
		return nil, err
	}
	if fn, _ := desc.LookupMethod("init"); fn != nil {
		positional, named := splitNamedArgs(args)
		before := len(vm.frames)
		if err := vm.callFunctionObject(fn, positional, named, nil, inst); err != nil {
			return nil, err
		}
		_, susp, err := vm.run(before)
		if err != nil {
			return nil, err
		}
		if susp != nil {
			return nil, vm.runtimeError("suspending call inside %s.init() is not supported", desc.FQName)
		}
	}
	return inst, nil
}

// initFields runs every ancestor's field defaults root-first, so a
// subclass's own field initializers can see the parent's fields already
// populated.
func (vm *VM) initFields(inst *Instance, desc *ClassDescriptor) error {
	var chain []*ClassDescriptor
	for cur := desc; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		d := chain[i]
		for _, name := range d.FieldOrder {
			chunk, ok := d.FieldInit[name]
			if !ok {
				inst.Fields[name] = Nil()
				continue
			}
			fn := &FunctionObject{Name: name + ".<default>", Chunk: chunk, NumLocals: 0, Owner: d}
			before := len(vm.frames)
			vm.pushCallFrame(fn, nil, nil, inst)
			v, susp, err := vm.run(before)
			if err != nil {
				return err
			}
			if susp != nil {
				return vm.runtimeError("suspending call inside %s field default for %q is not supported", d.FQName, name)
			}
			inst.Fields[name] = v
		}
	}
	return nil
}

// captureUpvalue returns the open Upvalue pointing at frame.locals[slot],
// reusing an existing one if some other closure already captured the
// same local so two closures sharing a variable observe the same cell.
func (vm *VM) captureUpvalue(frame *callFrame, slot int) *Upvalue {
	loc := &frame.locals[slot]
	for _, uv := range vm.openUpvalues {
		if uv.location == loc {
			return uv
		}
	}
	uv := NewOpenUpvalue(loc)
	vm.openUpvalues = append(vm.openUpvalues, uv)
	return uv
}

func (vm *VM) closeUpvaluesFor(frame *callFrame) {
	if len(vm.openUpvalues) == 0 {
		return
	}
	kept := vm.openUpvalues[:0]
	for _, uv := range vm.openUpvalues {
		stillOpen := false
		for i := range frame.locals {
			if uv.location == &frame.locals[i] {
				stillOpen = true
				break
			}
		}
		if stillOpen {
			uv.Close()
		} else {
			kept = append(kept, uv)
		}
	}
	vm.openUpvalues = kept
}

func (vm *VM) makeClosure(frame *callFrame, fn *FunctionObject) *FunctionValue {
	captured := make([]*Upvalue, len(fn.UpvalueDefs))
	for i, def := range fn.UpvalueDefs {
		if def.IsLocal {
			captured[i] = vm.captureUpvalue(frame, def.Index)
		} else {
			captured[i] = frame.captured[def.Index]
		}
	}
	return &FunctionValue{Descriptor: fn, Captured: captured, BoundReceiver: frame.this}
}

// fieldGet/fieldSet implement OpFieldGet/OpFieldSet/OpAutoCreate's shared
// read/write half: Jactl treats a Map and a class Instance
// interchangeably for dotted field access (see value.go's
// Map.equalsInstance), so both receiver kinds are handled here rather
// than only one.
func (vm *VM) fieldGet(receiver Value, name string) (Value, error) {
	switch receiver.Kind {
	case types.CLASS:
		inst := receiver.AsInstance()
		if v, ok := inst.Fields[name]; ok {
			return v, nil
		}
		if fn, _ := inst.Class.LookupMethod(name); fn != nil {
			return FunctionVal(&FunctionValue{Descriptor: fn, BoundReceiver: inst}), nil
		}
		return Nil(), nil
	case types.MAP:
		if v, ok := receiver.AsMap().Get(name); ok {
			return v, nil
		}
		return Nil(), nil
	case types.NULL_TYPE:
		return Nil(), vm.runtimeError("null value has no field %q", name)
	default:
		return Nil(), vm.runtimeError("cannot access field %q on %s", name, receiver.TypeName())
	}
}

func (vm *VM) fieldSet(receiver Value, name string, value Value) error {
	switch receiver.Kind {
	case types.CLASS:
		receiver.AsInstance().Fields[name] = value
		return nil
	case types.MAP:
		receiver.AsMap().Set(name, value)
		return nil
	default:
		return vm.runtimeError("cannot set field %q on %s", name, receiver.TypeName())
	}
}

func (vm *VM) indexGet(receiver, index Value) (Value, error) {
	switch receiver.Kind {
	case types.LIST, types.ARRAY:
		list := receiver.AsList()
		if receiver.Kind == types.ARRAY {
			list = receiver.AsArray().List
		}
		i, ok := index.AsInt64()
		if !ok {
			return Nil(), vm.runtimeError("list index must be numeric, got %s", index.TypeName())
		}
		v, ok := list.Get(int(i))
		if !ok {
			return Nil(), vm.runtimeError("index %d out of bounds (length %d)", i, list.Len())
		}
		return v, nil
	case types.MAP:
		key := index.String0()
		v, ok := receiver.AsMap().Get(key)
		if !ok {
			return Nil(), nil
		}
		return v, nil
	case types.STRING:
		s := receiver.AsString()
		i, ok := index.AsInt64()
		if !ok || i < 0 || int(i) >= len(s) {
			return Nil(), vm.runtimeError("string index %v out of bounds", index)
		}
		return Str(string(s[i])), nil
	case types.NULL_TYPE:
		return Nil(), vm.runtimeError("cannot index a null value")
	default:
		return Nil(), vm.runtimeError("cannot index a %s value", receiver.TypeName())
	}
}

func (vm *VM) indexSet(receiver, index, value Value) error {
	switch receiver.Kind {
	case types.LIST, types.ARRAY:
		list := receiver.AsList()
		if receiver.Kind == types.ARRAY {
			list = receiver.AsArray().List
		}
		i, ok := index.AsInt64()
		if !ok {
			return vm.runtimeError("list index must be numeric, got %s", index.TypeName())
		}
		for int(i) >= list.Len() {
			list.Append(Nil())
		}
		if !list.Set(int(i), value) {
			return vm.runtimeError("index %d out of bounds", i)
		}
		return nil
	case types.MAP:
		receiver.AsMap().Set(index.String0(), value)
		return nil
	default:
		return vm.runtimeError("cannot index-assign a %s value", receiver.TypeName())
	}
}

func valueLength(v Value) (int, bool) {
	switch v.Kind {
	case types.LIST:
		return v.AsList().Len(), true
	case types.ARRAY:
		return v.AsArray().List.Len(), true
	case types.MAP:
		return v.AsMap().Len(), true
	case types.STRING:
		return len(v.AsString()), true
	}
	return 0, false
}
