package builtins

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"

	"github.com/jactl-lang/jactl/internal/bytecode"
)

// registerHash wires a password-hashing built-in onto
// golang.org/x/crypto/bcrypt (the same hashing family MongooseMoo-barn's
// auth layer in the retrieval pack reaches for) plus a plain sha256 for
// non-password content digests. Both are tagged async_when: never in
// analyser/builtins.go's sense — a bcrypt round is CPU-bound, not a host
// round-trip, so it never needs to suspend the script.
func registerHash(r *Registry) {
	r.Function().Name("sha256").Param("text").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		sum := sha256.Sum256([]byte(args[0].String0()))
		return bytecode.Str(hex.EncodeToString(sum[:])), nil
	}).Register()

	r.Function().Name("bcryptHash").Param("text").Param("cost", bytecode.Int(bcrypt.DefaultCost)).Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		cost, _ := args[1].AsInt64()
		hashed, err := bcrypt.GenerateFromPassword([]byte(args[0].String0()), int(cost))
		if err != nil {
			return bytecode.Nil(), vm.RuntimeErrorf("bcryptHash: %s", err)
		}
		return bytecode.Str(string(hashed)), nil
	}).Register()

	r.Function().Name("bcryptVerify").Param("text").Param("hash").Impl(func(vm *bytecode.VM, args []bytecode.Value) (bytecode.Value, error) {
		err := bcrypt.CompareHashAndPassword([]byte(args[1].String0()), []byte(args[0].String0()))
		return bytecode.Bool(err == nil), nil
	}).Register()
}
