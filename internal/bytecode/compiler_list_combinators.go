package bytecode

import (
	"github.com/jactl-lang/jactl/internal/ast"
	"github.com/jactl-lang/jactl/internal/types"
)

// listCombinatorArity names the closure-taking List/Array methods whose
// native-builtin implementation (internal/builtins/collections.go) drives
// the closure through vm.CallValue — which refuses to let the closure
// suspend, since the Go for-loop carrying the iteration state isn't part
// of the VM's serializable frame stack. Every call through the flat
// vm.frames model (see run()'s doc comment) already suspends and resumes
// transparently, so the fix is to compile these methods to an ordinary
// bytecode loop over OpIndexGet/OpCall instead of an OpCallMethod into
// the native builtin, whenever the receiver's static type is concrete
// enough (LIST or ARRAY, not a def-typed/ANY receiver that might be a Map
// at runtime) to make the integer-index iteration valid. `sort` is left
// out: a suspending comparator inside sort.SliceStable isn't a bounded
// index walk, and no script in this corpus needs it.
var listCombinatorArity = map[string]int{
	"map":     1,
	"collect": 1,
	"filter":  1,
	"each":    1,
	"reduce":  2,
}

// tryCompileListCombinator compiles m in place of the generic OpCallMethod
// path when m is a map/filter/each/reduce/collect call on a statically
// LIST or ARRAY receiver, reporting whether it did so. It desugars both
// sync and async closures identically: an effectively-sync closure never
// raises a *Suspend, so the loop simply runs start to finish without ever
// touching the checkpoint machinery, matching the zero-suspension-cost
// requirement for statically non-async code just as well as the native
// builtin's Go for-loop would have.
func (c *Compiler) tryCompileListCombinator(m *ast.MethodCall) bool {
	if m.IsSuper || m.NullSafe || m.Receiver == nil {
		return false
	}
	arity, ok := listCombinatorArity[m.Method]
	if !ok || len(m.Args) != arity {
		return false
	}
	rt := m.Receiver.Type()
	if rt.Kind != types.LIST && rt.Kind != types.ARRAY {
		return false
	}

	switch m.Method {
	case "map", "collect":
		c.compileListMapCombinator(m)
	case "filter":
		c.compileListFilterCombinator(m)
	case "each":
		c.compileListEachCombinator(m)
	case "reduce":
		c.compileListReduceCombinator(m)
	default:
		return false
	}
	return true
}

// elementLoop holds the scratch slots and patch sites shared by every
// desugared combinator: a receiver slot, a length slot, an index slot,
// and the loop's condition jump (patched to the loop's exit once the
// body has been emitted) and back-edge target.
type elementLoop struct {
	recvSlot, idxSlot, sizeSlot int
	top                         int
	exitJump                    int
}

// beginElementLoop stores the receiver into a scratch slot, computes its
// length once, and emits the `idx < size` loop guard, leaving the caller
// to emit the body and call endElementLoop.
func (c *Compiler) beginElementLoop(m *ast.MethodCall) *elementLoop {
	recvSlot := c.reserveTempSlot()
	c.compileExpr(m.Receiver)
	c.emitAB(OpStoreLocal, int32(recvSlot), 0, m)
	c.emit(OpPop, m)

	sizeSlot := c.reserveTempSlot()
	c.emitAB(OpLoadLocal, int32(recvSlot), 0, m)
	c.emit(OpLength, m)
	c.emitAB(OpStoreLocal, int32(sizeSlot), 0, m)
	c.emit(OpPop, m)

	idxSlot := c.reserveTempSlot()
	c.emitAB(OpLoadConst, c.constant(Int(0)), 0, m)
	c.emitAB(OpStoreLocal, int32(idxSlot), 0, m)
	c.emit(OpPop, m)

	top := c.here()
	c.emitAB(OpLoadLocal, int32(idxSlot), 0, m)
	c.emitAB(OpLoadLocal, int32(sizeSlot), 0, m)
	c.emit(OpLess, m)
	exitJump := c.emit(OpJumpIfFalse, m)

	return &elementLoop{recvSlot: recvSlot, idxSlot: idxSlot, sizeSlot: sizeSlot, top: top, exitJump: exitJump}
}

// pushElement pushes recv[idx] onto the stack.
func (c *Compiler) pushElement(l *elementLoop, pos ast.Node) {
	c.emitAB(OpLoadLocal, int32(l.recvSlot), 0, pos)
	c.emitAB(OpLoadLocal, int32(l.idxSlot), 0, pos)
	c.emit(OpIndexGet, pos)
}

// endElementLoop increments idx, jumps back to the guard, and patches the
// exit jump to land here.
func (c *Compiler) endElementLoop(l *elementLoop, pos ast.Node) {
	c.emitAB(OpLoadLocal, int32(l.idxSlot), 0, pos)
	c.emitAB(OpLoadConst, c.constant(Int(1)), 0, pos)
	c.emit(OpAdd, pos)
	c.emitAB(OpStoreLocal, int32(l.idxSlot), 0, pos)
	c.emit(OpPop, pos)
	c.emitAB(OpJump, int32(l.top), 0, pos)
	c.patchJump(l.exitJump, c.here())
}

// compileClosureSlot compiles a closure-valued argument once into a fresh
// scratch slot so the loop body can reload it every iteration without
// recompiling (and re-evaluating) the argument expression.
func (c *Compiler) compileClosureSlot(arg ast.Expr, pos ast.Node) int {
	slot := c.reserveTempSlot()
	c.compileExpr(arg)
	c.emitAB(OpStoreLocal, int32(slot), 0, pos)
	c.emit(OpPop, pos)
	return slot
}

func (c *Compiler) compileListMapCombinator(m *ast.MethodCall) {
	closureSlot := c.compileClosureSlot(m.Args[0], m)

	resultSlot := c.reserveTempSlot()
	c.emitAB(OpNewList, 0, 0, m)
	c.emitAB(OpStoreLocal, int32(resultSlot), 0, m)
	c.emit(OpPop, m)

	loop := c.beginElementLoop(m)
	c.emitAB(OpLoadLocal, int32(closureSlot), 0, m)
	c.pushElement(loop, m)
	c.emitAB(OpCall, 1, 0, m)
	c.emitAB(OpListAppend, int32(resultSlot), 0, m)
	c.endElementLoop(loop, m)

	c.emitAB(OpLoadLocal, int32(resultSlot), 0, m)
}

func (c *Compiler) compileListFilterCombinator(m *ast.MethodCall) {
	closureSlot := c.compileClosureSlot(m.Args[0], m)

	resultSlot := c.reserveTempSlot()
	c.emitAB(OpNewList, 0, 0, m)
	c.emitAB(OpStoreLocal, int32(resultSlot), 0, m)
	c.emit(OpPop, m)

	elemSlot := c.reserveTempSlot()

	loop := c.beginElementLoop(m)
	c.pushElement(loop, m)
	c.emitAB(OpStoreLocal, int32(elemSlot), 0, m)
	c.emit(OpPop, m)

	c.emitAB(OpLoadLocal, int32(closureSlot), 0, m)
	c.emitAB(OpLoadLocal, int32(elemSlot), 0, m)
	c.emitAB(OpCall, 1, 0, m)
	skip := c.emit(OpJumpIfFalse, m)
	c.emitAB(OpLoadLocal, int32(elemSlot), 0, m)
	c.emitAB(OpListAppend, int32(resultSlot), 0, m)
	c.patchJump(skip, c.here())

	c.endElementLoop(loop, m)

	c.emitAB(OpLoadLocal, int32(resultSlot), 0, m)
}

func (c *Compiler) compileListEachCombinator(m *ast.MethodCall) {
	closureSlot := c.compileClosureSlot(m.Args[0], m)

	loop := c.beginElementLoop(m)
	c.emitAB(OpLoadLocal, int32(closureSlot), 0, m)
	c.pushElement(loop, m)
	c.emitAB(OpCall, 1, 0, m)
	c.emit(OpPop, m)
	c.endElementLoop(loop, m)

	// each returns its receiver, matching the native builtin.
	c.emitAB(OpLoadLocal, int32(loop.recvSlot), 0, m)
}

func (c *Compiler) compileListReduceCombinator(m *ast.MethodCall) {
	accSlot := c.reserveTempSlot()
	c.compileExpr(m.Args[0])
	c.emitAB(OpStoreLocal, int32(accSlot), 0, m)
	c.emit(OpPop, m)

	closureSlot := c.compileClosureSlot(m.Args[1], m)

	loop := c.beginElementLoop(m)
	c.emitAB(OpLoadLocal, int32(closureSlot), 0, m)
	c.emitAB(OpLoadLocal, int32(accSlot), 0, m)
	c.pushElement(loop, m)
	c.emitAB(OpCall, 2, 0, m)
	c.emitAB(OpStoreLocal, int32(accSlot), 0, m)
	c.emit(OpPop, m)
	c.endElementLoop(loop, m)

	c.emitAB(OpLoadLocal, int32(accSlot), 0, m)
}
