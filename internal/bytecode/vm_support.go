package bytecode

import (
	"regexp"

	"github.com/jactl-lang/jactl/internal/types"
)

// handleThrow implements OpThrow: walk outward from the current frame
// looking for a TryRange that covers the raising instruction and whose
// ExcType accepts msg, stopping at stopDepth (a suspending builtin call
// several frames up must not let a throw unwind past the point execution
// is allowed to return to). The first match wins; frames above it are
// discarded and the handler's catch slot receives msg.
func (vm *VM) handleThrow(msg Value, stopDepth int) (bool, error) {
	for len(vm.frames) > stopDepth {
		frame := &vm.frames[len(vm.frames)-1]
		pc := frame.ip - 1
		for _, tr := range frame.fn.Chunk.TryRanges {
			if pc < tr.Start || pc >= tr.End {
				continue
			}
			if tr.ExcType != "" && !excTypeMatches(msg, tr.ExcType) {
				continue
			}
			frame.locals[tr.CatchSlot] = msg
			frame.ip = tr.Handler
			return true, nil
		}
		if len(vm.frames)-1 == stopDepth {
			break
		}
		vm.closeUpvaluesFor(frame)
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	return false, vm.runtimeError("uncaught exception: %s", msg.String0())
}

func excTypeMatches(msg Value, excType string) bool {
	if msg.Kind == types.CLASS {
		for d := msg.AsInstance().Class; d != nil; d = d.Parent {
			if d.FQName == excType {
				return true
			}
		}
		return false
	}
	return msg.TypeName() == excType
}

// castValue implements OpCast: a failing cast is a RuntimeError, unlike
// OpConvertTo's best-effort coercion.
func (vm *VM) castValue(v Value, target types.Type) (Value, error) {
	if target.Kind == types.ANY || v.Kind == target.Kind {
		return v, nil
	}
	if v.IsNil() {
		if target.Nilable || target.Kind == types.MAP || target.Kind == types.LIST || target.Kind == types.CLASS || target.Kind == types.ARRAY {
			return v, nil
		}
		return Nil(), vm.runtimeError("cannot cast null to %s", target.String())
	}
	if target.IsNumeric() && isNumericKind(v.Kind) {
		return vm.convertValue(v, target), nil
	}
	if target.Kind == types.CLASS {
		inst := v.AsInstance()
		if inst == nil {
			return Nil(), vm.runtimeError("cannot cast %s to %s", v.TypeName(), target.String())
		}
		for d := inst.Class; d != nil; d = d.Parent {
			if d.FQName == target.FQName {
				return v, nil
			}
		}
		return Nil(), vm.runtimeError("cannot cast %s to %s", inst.Class.FQName, target.String())
	}
	return Nil(), vm.runtimeError("cannot cast %s to %s", v.TypeName(), target.String())
}

// convertValue implements OpConvertTo, which the compiler emits for a
// user-written `expr as Type`: widen/narrow numerics, stringify, or hand
// the value back unchanged when no coercion applies.
func (vm *VM) convertValue(v Value, target types.Type) Value {
	switch target.Kind {
	case types.STRING:
		return Str(v.String0())
	case types.INT:
		if i, ok := v.AsInt64(); ok {
			return Int(int32(i))
		}
	case types.LONG:
		if i, ok := v.AsInt64(); ok {
			return Long(i)
		}
	case types.BYTE:
		if i, ok := v.AsInt64(); ok {
			return Byte(byte(i))
		}
	case types.DOUBLE:
		if f, ok := v.AsFloat64(); ok {
			return Double(f)
		}
	case types.DECIMAL:
		if r, ok := v.AsRat(); ok {
			return Decimal(r)
		}
	}
	return v
}

func (vm *VM) instanceOf(v Value, target types.Type) bool {
	switch target.Kind {
	case types.CLASS:
		inst := v.AsInstance()
		if inst == nil {
			return false
		}
		for d := inst.Class; d != nil; d = d.Parent {
			if d.FQName == target.FQName {
				return true
			}
		}
		return false
	case types.ANY:
		return true
	default:
		return v.Kind == target.Kind
	}
}

func defaultValueFor(t types.Type) Value {
	switch t.Kind {
	case types.BOOL:
		return Bool(false)
	case types.BYTE:
		return Byte(0)
	case types.INT:
		return Int(0)
	case types.LONG:
		return Long(0)
	case types.DOUBLE:
		return Double(0)
	case types.STRING:
		return Str("")
	case types.LIST:
		return ListVal(NewList(nil))
	case types.MAP:
		return MapVal(NewMap())
	default:
		return Nil()
	}
}

// regexMatch/regexSubst ground Jactl's `=~`/`!~` operators and substitution
// expressions on Go's standard regexp package: the corpus carries no
// third-party regex engine, and Go's RE2 syntax is close enough to the
// source language's Java-flavoured regex that no translation layer is
// worth building for a scripting core this size.
func (vm *VM) regexMatch(subject, pattern, flags Value) (bool, error) {
	re, err := compileRegex(pattern.String0(), flags.String0())
	if err != nil {
		return false, vm.runtimeError("%s", err.Error())
	}
	return re.MatchString(subject.String0()), nil
}

func (vm *VM) regexSubst(subject, pattern, replacement, flags Value) (string, error) {
	re, err := compileRegex(pattern.String0(), flags.String0())
	if err != nil {
		return "", vm.runtimeError("%s", err.Error())
	}
	global := containsRune(flags.String0(), 'g')
	repl := regexp.MustCompile(`\$(\d+)`).ReplaceAllString(replacement.String0(), "$${$1}")
	if global {
		return re.ReplaceAllString(subject.String0(), repl), nil
	}
	replaced := false
	return re.ReplaceAllStringFunc(subject.String0(), func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return re.ReplaceAllString(m, repl)
	}), nil
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	if containsRune(flags, 'i') {
		prefix += "i"
	}
	if containsRune(flags, 's') {
		prefix += "s"
	}
	if containsRune(flags, 'm') {
		prefix += "m"
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// evalNested backs the dynamic `eval(source, globals)` expression
// (OpEval). It does not compile or run source: every call returns the
// runtime error "eval is not supported in this build".
func (vm *VM) evalNested(source, globals Value) (Value, error) {
	return Nil(), vm.runtimeError("eval is not supported in this build")
}

// callBuiltinMethod dispatches OpCallMethod against a receiver that isn't
// a user-defined class Instance: Jactl's standard methods on List/Map/
// String/Array (map{}, filter{}, each{}, size(), ...) are registered the
// same way a script class's methods are, just keyed by receiver Kind
// instead of a ClassDescriptor. internal/builtins populates vm.methods at
// startup; this just does the lookup and invokes it like any other
// builtin.
func (vm *VM) callBuiltinMethod(receiver Value, name string, args []Value) (Value, error) {
	if vm.methods == nil {
		return Nil(), vm.runtimeError("no such method %q on %s", name, receiver.TypeName())
	}
	fn, ok := vm.methods[methodKey{receiver.Kind, name}]
	if !ok {
		return Nil(), vm.runtimeError("no such method %q on %s", name, receiver.TypeName())
	}
	return fn(vm, append([]Value{receiver}, args...))
}

// invokeBuiltin dispatches OpCallBuiltin against the global function table
// (print/println/sleep/_checkpoint/...). A builtin signals suspension by
// returning a *Suspend as its error value (see continuation.go); the run
// loop type-asserts for that case specially.
func (vm *VM) invokeBuiltin(name string, args []Value) (Value, error) {
	fn, ok := vm.builtins[name]
	if !ok {
		return Nil(), vm.runtimeError("call to undefined builtin %q", name)
	}
	return fn(vm, args)
}
