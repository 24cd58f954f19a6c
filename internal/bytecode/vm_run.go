package bytecode

import (
	"github.com/jactl-lang/jactl/internal/types"
)

// run is the VM's single dispatch loop. It always executes starting from
// the current top frame and keeps going — popping completed frames and
// falling through to whichever frame is beneath them — until the frame
// stack unwinds back down to stopDepth, at which point it returns the
// value the just-finished frame returned. Run/Resume call this with
// stopDepth 0 (unwind the whole script). A helper that pushes exactly one
// extra frame on top of an already-executing call (field-default
// evaluation, a synchronous `init` invocation) calls it with stopDepth set
// to the frame count that existed before that push, so control returns to
// the helper once — and only once — that one frame (and anything it
// itself calls) has completed, without also running whatever frame was
// already beneath it.
//
// Because every call, however deep, is just another entry appended to
// vm.frames rather than a nested Go call, a *Suspend raised by a builtin
// unwinds this loop immediately with every frame still intact — the
// continuation is simply "whatever vm.frames/vm.stack/vm.globals holds
// right now", exactly what Snapshot captures.
func (vm *VM) run(stopDepth int) (Value, *Suspend, error) {
	var lastReturn Value
	for {
		if len(vm.frames) <= stopDepth {
			return lastReturn, nil, nil
		}
		frame := &vm.frames[len(vm.frames)-1]
		chunk := frame.fn.Chunk
		if frame.ip >= len(chunk.Code) {
			return Nil(), nil, vm.runtimeError("pc ran off the end of %s", frame.fn.Name)
		}
		instr := chunk.Code[frame.ip]
		frame.ip++

		switch instr.Op {
		case OpLoadConst:
			vm.push(vm.constant(chunk, instr.A))
		case OpLoadNil:
			vm.push(Nil())
		case OpLoadTrue:
			vm.push(Bool(true))
		case OpLoadFalse:
			vm.push(Bool(false))
		case OpLoadLocal:
			vm.push(frame.locals[instr.A])
		case OpStoreLocal:
			v := vm.peek()
			frame.locals[instr.A] = v
		case OpLoadUpvalue:
			vm.push(frame.captured[instr.A].Get())
		case OpStoreUpvalue:
			frame.captured[instr.A].Set(vm.peek())
		case OpLoadGlobal:
			vm.push(vm.getGlobal(int(instr.A)))
		case OpStoreGlobal:
			vm.setGlobal(int(instr.A), vm.peek())
		case OpCloseUpvalue:
			vm.closeUpvalueAt(frame, int(instr.A))
		case OpPop:
			vm.pop()
		case OpDup:
			vm.push(vm.peek())

		case OpAdd, OpSub, OpMul, OpDiv, OpMod,
			OpBitAnd, OpBitOr, OpBitXor, OpShiftLeft, OpShiftRight, OpShiftRightUnsigned:
			if err := vm.arith(instr.Op); err != nil {
				return vm.unwindError(err)
			}
		case OpNegate:
			if err := vm.negate(); err != nil {
				return vm.unwindError(err)
			}
		case OpNot:
			vm.push(Bool(!vm.pop().Truthy()))
		case OpBitNot:
			if err := vm.bitNot(); err != nil {
				return vm.unwindError(err)
			}
		case OpEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(Bool(left.Equals(right)))
		case OpNotEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(Bool(!left.Equals(right)))
		case OpIdentEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(Bool(left.IdentEquals(right)))
		case OpNotIdentEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(Bool(!left.IdentEquals(right)))
		case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpCompare:
			if err := vm.compareValues(instr.Op); err != nil {
				return vm.unwindError(err)
			}

		case OpConcat:
			right, left := vm.pop(), vm.pop()
			vm.push(Str(left.String0() + right.String0()))
		case OpStringInterp:
			n := int(instr.A)
			parts := vm.popN(n)
			var sb []byte
			for _, p := range parts {
				sb = append(sb, p.String0()...)
			}
			vm.push(Str(string(sb)))
		case OpMatch:
			flags := vm.pop()
			pattern := vm.pop()
			subject := vm.pop()
			matched, err := vm.regexMatch(subject, pattern, flags)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(Bool(matched))
		case OpSubst:
			flags := vm.pop()
			replacement := vm.pop()
			pattern := vm.pop()
			subject := vm.pop()
			result, err := vm.regexSubst(subject, pattern, replacement, flags)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(Str(result))

		case OpJump:
			frame.ip = int(instr.A)
		case OpJumpIfFalse:
			if !vm.pop().Truthy() {
				frame.ip = int(instr.A)
			}
		case OpJumpIfTrue:
			if vm.pop().Truthy() {
				frame.ip = int(instr.A)
			}
		case OpJumpIfNullSafe:
			if vm.peek().IsNil() {
				frame.ip = int(instr.A)
			}

		case OpLoadFunction:
			fn := chunk.Functions[instr.A]
			vm.push(FunctionVal(vm.makeClosure(frame, fn)))
		case OpCall:
			if err := vm.execCall(instr); err != nil {
				return vm.unwindError(err)
			}
		case OpCallMethod:
			if err := vm.execCallMethod(frame, chunk, instr); err != nil {
				return vm.unwindError(err)
			}
		case OpCallGlobalFunc:
			if err := vm.execCallGlobalFunc(frame, chunk, instr); err != nil {
				return vm.unwindError(err)
			}
		case OpCallSuper:
			if err := vm.execCallSuper(frame, chunk, instr); err != nil {
				return vm.unwindError(err)
			}
		case OpCallBuiltin:
			name := vm.constantString(chunk, instr.A)
			args := vm.popN(int(instr.B))
			result, err := vm.invokeBuiltin(name, args)
			if susp, ok := err.(*Suspend); ok {
				return Nil(), susp, nil
			}
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(result)
		case OpLoadThis:
			if frame.this == nil {
				vm.push(Nil())
			} else {
				vm.push(InstanceVal(frame.this))
			}
		case OpNew:
			name := vm.constantString(chunk, instr.A)
			args := vm.popN(int(instr.B))
			desc := vm.classes[name]
			if desc == nil {
				return vm.unwindError(vm.runtimeError("unknown class %q", name))
			}
			inst, err := vm.newInstance(desc, args)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(InstanceVal(inst))
		case OpReturn:
			v := vm.pop()
			lastReturn = v
			vm.closeUpvaluesFor(frame)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) > stopDepth {
				vm.push(v)
			}
		case OpReturnNil:
			lastReturn = Nil()
			vm.closeUpvaluesFor(frame)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) > stopDepth {
				vm.push(Nil())
			}

		case OpAsyncPrelude:
			// No-op under the flat frame-stack model: vm.frames already
			// is the complete continuation, so there is nothing to
			// reserve here. Kept only so a Chunk compiled by a future
			// compiler revision that does emit it still executes.
		case OpLoadPendingResult:
			vm.push(frame.locals[instr.A])
		case OpCheckpoint:
			v := vm.pop()
			return Nil(), &Suspend{Reason: "checkpoint", Arg: v}, nil

		case OpNewList:
			n := int(instr.A)
			elems := vm.popN(n)
			vm.push(ListVal(NewList(elems)))
		case OpNewMap:
			n := int(instr.A)
			pairs := vm.popN(2 * n)
			m := NewMap()
			for i := 0; i < n; i++ {
				key := pairs[2*i]
				val := pairs[2*i+1]
				m.Set(key.String0(), val)
			}
			vm.push(MapVal(m))
		case OpNewArray:
			n := int(instr.A)
			elems := vm.popN(n)
			elemType := typeFromValue(vm.constant(chunk, instr.B))
			vm.push(ArrayVal(NewArray(elems, elemType)))
		case OpIndexGet:
			index := vm.pop()
			receiver := vm.pop()
			v, err := vm.indexGet(receiver, index)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(v)
		case OpIndexSet:
			value := vm.pop()
			index := vm.pop()
			receiver := vm.pop()
			if err := vm.indexSet(receiver, index, value); err != nil {
				return vm.unwindError(err)
			}
			vm.push(value)
		case OpFieldGet:
			name := vm.constantString(chunk, instr.A)
			receiver := vm.pop()
			v, err := vm.fieldGet(receiver, name)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(v)
		case OpFieldSet:
			name := vm.constantString(chunk, instr.A)
			value := vm.pop()
			receiver := vm.pop()
			if err := vm.fieldSet(receiver, name, value); err != nil {
				return vm.unwindError(err)
			}
			vm.push(value)
		case OpLength:
			v := vm.pop()
			n, ok := valueLength(v)
			if !ok {
				return vm.unwindError(vm.runtimeError("%s has no length", v.TypeName()))
			}
			vm.push(Int(int32(n)))
		case OpAutoCreate:
			name := vm.constantString(chunk, instr.A)
			spec, _ := vm.constant(chunk, instr.B).Data.(AutoCreateSpec)
			receiver := vm.pop()
			existing, err := vm.fieldGet(receiver, name)
			if err != nil {
				return vm.unwindError(err)
			}
			if !existing.IsNil() {
				vm.push(existing)
				continue
			}
			created, err := newForSpec(vm, spec)
			if err != nil {
				return vm.unwindError(err)
			}
			if err := vm.fieldSet(receiver, name, created); err != nil {
				return vm.unwindError(err)
			}
			vm.push(created)

		case OpListAppend:
			value := vm.pop()
			list := frame.locals[instr.A].AsList()
			if list == nil {
				return vm.unwindError(vm.runtimeError("OpListAppend: slot %d is not a list", instr.A))
			}
			list.Append(value)

		case OpCast:
			target := typeFromValue(vm.constant(chunk, instr.A))
			v := vm.pop()
			out, err := vm.castValue(v, target)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(out)
		case OpConvertTo:
			target := typeFromValue(vm.constant(chunk, instr.A))
			v := vm.pop()
			vm.push(vm.convertValue(v, target))
		case OpInstanceOf:
			target := typeFromValue(vm.constant(chunk, instr.A))
			v := vm.pop()
			vm.push(Bool(vm.instanceOf(v, target)))
		case OpDefaultValue:
			target := typeFromValue(vm.constant(chunk, instr.A))
			vm.push(defaultValueFor(target))

		case OpThrow:
			msg := vm.pop()
			handled, err := vm.handleThrow(msg, stopDepth)
			if err != nil {
				return vm.unwindError(err)
			}
			_ = handled
		case OpDie:
			msg := vm.pop()
			return vm.unwindError(vm.runtimeError("%s", msg.String0()))

		case OpPrint:
			v := vm.pop()
			if vm.output != nil {
				if instr.A == 1 {
					vm.output.Write([]byte(v.String0() + "\n"))
				} else {
					vm.output.Write([]byte(v.String0()))
				}
			}
			vm.push(v)
		case OpNoop:
			// nothing.
		case OpEval:
			globals := vm.pop()
			source := vm.pop()
			result, err := vm.evalNested(source, globals)
			if err != nil {
				return vm.unwindError(err)
			}
			vm.push(result)
		case OpHalt:
			return lastReturn, nil, nil

		default:
			return vm.unwindError(vm.runtimeError("unimplemented opcode %s", instr.Op))
		}
	}
}

// unwindError reports a RuntimeError up through run's three-value
// signature; it exists purely so every error-producing case can
// `return vm.unwindError(err)` instead of repeating `Nil(), nil, err`.
func (vm *VM) unwindError(err error) (Value, *Suspend, error) {
	return Nil(), nil, err
}

func (vm *VM) closeUpvalueAt(frame *callFrame, slot int) {
	loc := &frame.locals[slot]
	for i, uv := range vm.openUpvalues {
		if uv.location == loc {
			uv.Close()
			vm.openUpvalues = append(vm.openUpvalues[:i], vm.openUpvalues[i+1:]...)
			return
		}
	}
}

func (vm *VM) execCall(instr Instruction) error {
	argc := int(instr.A)
	named := instr.B == 1
	var namedMap *Map
	if named {
		namedMap = vm.pop().AsMap()
	}
	args := vm.popN(argc)
	callee := vm.pop()
	return vm.callValue(callee, args, namedMap)
}

func (vm *VM) execCallMethod(frame *callFrame, chunk *Chunk, instr Instruction) error {
	name := vm.constantString(chunk, instr.A)
	args := vm.popN(int(instr.B))
	args, named := splitNamedArgs(args)
	receiver := vm.pop()
	switch receiver.Kind {
	case types.CLASS:
		inst := receiver.AsInstance()
		return vm.callMethod(inst.Class, name, inst, args, named)
	default:
		result, err := vm.callBuiltinMethod(receiver, name, args)
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}
}

func (vm *VM) execCallGlobalFunc(frame *callFrame, chunk *Chunk, instr Instruction) error {
	name := vm.constantString(chunk, instr.A)
	args := vm.popN(int(instr.B))
	args, named := splitNamedArgs(args)
	owner := frame.fn.Owner
	fn, _ := owner.LookupMethod(name)
	if fn == nil {
		return vm.runtimeError("call to undefined function %q", name)
	}
	return vm.callFunctionObject(fn, args, named, nil, nil)
}

func (vm *VM) execCallSuper(frame *callFrame, chunk *Chunk, instr Instruction) error {
	name := vm.constantString(chunk, instr.A)
	args := vm.popN(int(instr.B))
	args, named := splitNamedArgs(args)
	var owner *ClassDescriptor
	if frame.fn != nil {
		owner = frame.fn.Owner
	}
	if frame.this == nil || owner == nil || owner.Parent == nil {
		return vm.runtimeError("no superclass for 'super.%s(...)'", name)
	}
	return vm.callMethod(owner.Parent, name, frame.this, args, named)
}
