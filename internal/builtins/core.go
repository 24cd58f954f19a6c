package builtins

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

var stdinReader = bufio.NewReader(os.Stdin)

// registerCore installs the free functions every script can call without
// qualification: I/O (print/println/nextLine), formatting (sprintf), the
// two always-suspending host operations (sleep/_checkpoint), and a small
// math helper (pow) — the handful of globally visible functions every
// script gets for free.
func registerCore(r *Registry) {
	r.Function().Name("print").Param("value").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		vm.Write(args[0].String0())
		return bytecode.Nil(), nil
	}).Register()

	r.Function().Name("println").Param("value", bytecode.Str("")).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		vm.Write(args[0].String0() + "\n")
		return bytecode.Nil(), nil
	}).Register()

	r.Function().Name("sprintf").Param("format").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		if len(args) == 0 {
			return bytecode.Str(""), nil
		}
		format := args[0].String0()
		rest := make([]any, len(args)-1)
		for i, a := range args[1:] {
			rest[i] = a.String0()
		}
		return bytecode.Str(fmt.Sprintf(format, rest...)), nil
	}).Register()

	r.Function().Name("nextLine").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return bytecode.Nil(), nil
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return bytecode.Str(line), nil
	}).Register()

	r.Function().Name("pow").Param("base").Param("exp").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		base, _ := args[0].AsFloat64()
		exp, _ := args[1].AsFloat64()
		result := 1.0
		for i := 0; i < int(exp); i++ {
			result *= base
		}
		return bytecode.Double(result), nil
	}).Register()

	// sleep/_checkpoint never run to completion inline: they always
	// return a *Suspend, which OpCallBuiltin's handling in the VM's
	// dispatch loop recognizes as a request to pause the whole script
	// rather than an ordinary error.
	// The second argument is the value the caller expects sleep to resolve
	// to once resumed: a real host wires its resumer up to an actual
	// timer, but letting the script pick the value up front makes a
	// deterministic test host (resume immediately with Suspend.Arg) behave
	// the same as a real delayed one, which is how spec examples like
	// `sleep(0, 2) + sleep(0, 3)` are meant to be driven.
	r.Function().Name("sleep").Param("millis").Param("value", bytecode.Nil()).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		arg := bytecode.Nil()
		if len(args) > 1 {
			arg = args[1]
		}
		return bytecode.Nil(), &bytecode.Suspend{Reason: "sleep", Arg: arg}
	}).Register()

	r.Function().Name("_checkpoint").Param("value").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		arg := bytecode.Nil()
		if len(args) > 0 {
			arg = args[0]
		}
		return bytecode.Nil(), &bytecode.Suspend{Reason: "checkpoint", Arg: arg}
	}).Register()
}
