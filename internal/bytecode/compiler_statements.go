package bytecode

import (
	"github.com/jactl-lang/jactl/internal/ast"
)

func (c *Compiler) compileStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch st := s.(type) {
	case *ast.Stmts:
		for _, inner := range st.List {
			c.compileStmt(inner)
		}
	case *ast.Block:
		c.pushScope()
		c.compileStmt(st.Body)
		c.popScope()
	case *ast.If:
		c.compileExpr(st.Cond)
		elseJump := c.emit(OpJumpIfFalse, st.Cond)
		c.compileStmt(st.Then)
		endJump := c.emit(OpJump, st)
		c.patchJump(elseJump, c.here())
		c.compileStmt(st.Else)
		c.patchJump(endJump, c.here())
	case *ast.While:
		c.compileWhile(st)
	case *ast.For:
		c.compileFor(st)
	case *ast.Switch:
		c.compileSwitch(st)
	case *ast.Return:
		if st.Value != nil {
			c.compileExpr(st.Value)
			c.emit(OpReturn, st)
		} else {
			c.emit(OpReturnNil, st)
		}
	case *ast.Break:
		c.emitLoopJump(st.Label, true, st)
	case *ast.Continue:
		c.emitLoopJump(st.Label, false, st)
	case *ast.ExprStmt:
		c.compileExprStatement(st.X)
	case *ast.VarDeclStmt:
		c.compileVarDecls(st.Decls)
	case *ast.FunDeclStmt:
		// Top-level/class function declarations are compiled once up
		// front (compileScriptMain/compileClassBody); encountering the
		// statement form again during body compilation is a no-op, the
		// same way a hoisted declaration has no effect at its own
		// textual position.
	case *ast.ThrowError:
		if st.Message != nil {
			c.compileExpr(st.Message)
		} else {
			c.emit(OpLoadNil, st)
		}
		if st.IsDie {
			c.emit(OpDie, st)
		} else {
			c.emit(OpThrow, st)
		}
	case *ast.TryCatch:
		c.compileTryCatch(st)
	default:
		c.errAt(s, "compiler: unhandled statement form")
	}
}

// compileExprStatement compiles an expression whose value is discarded;
// Jactl expressions used as statements still only push one value, which
// is popped here. The last statement of a script body or closure body,
// when it is an expression statement, is compiled by compileScriptMain /
// compileClosureLiteral instead and its value returned; a named
// function's body returns null unless it executes a return statement.
func (c *Compiler) compileExprStatement(e ast.Expr) {
	if e == nil {
		return
	}
	c.compileExpr(e)
	c.emit(OpPop, e)
}

// compileVarDecls compiles one or more declarations appearing in
// statement position, where the stored value isn't wanted afterwards;
// compileVarDeclExpr does the actual store, which now always leaves the
// stored value on the stack (so it can double as an expression), so the
// statement form pops it back off here.
func (c *Compiler) compileVarDecls(decls []*ast.VarDecl) {
	for _, d := range decls {
		c.compileVarDeclExpr(d)
		c.emit(OpPop, d)
	}
}

// compileVarDeclExpr compiles a single declaration in expression position
// (e.g. `if (def line = nextLine())`), leaving its initial value on the
// stack.
func (c *Compiler) compileVarDeclExpr(d *ast.VarDecl) {
	if d.Init != nil {
		c.compileExpr(d.Init)
	} else {
		c.emitAB(OpDefaultValue, c.constantType(d.Type()), 0, d)
	}
	c.storeBySlot(d.Name, d.Slot, c.isGlobalDecl(d), d)
	c.frame.scope.define(d.Name, d.Slot)
}

// isGlobalDecl reports whether d is stored as a script-level global rather
// than an ordinary function-local: an uncaptured variable declared in the
// script body's own frame (not inside any function/closure) is a global.
func (c *Compiler) isGlobalDecl(d *ast.VarDecl) bool {
	return !d.IsCaptured && c.frame.chunk.Name == "<script>"
}

func (c *Compiler) storeBySlot(name string, slot int, global bool, pos ast.Node) {
	if global {
		c.emitAB(OpStoreGlobal, int32(slot), 0, pos)
		return
	}
	c.emitAB(OpStoreLocal, int32(slot), 0, pos)
}

func (c *Compiler) compileWhile(st *ast.While) {
	start := c.here()
	loop := &loopLabels{}
	c.frame.loopStack = append(c.frame.loopStack, loop)

	if st.IsDoWhile {
		c.compileStmt(st.Body)
		contTarget := c.here()
		c.compileExpr(st.Cond)
		c.emitAB(OpJumpIfTrue, int32(start), 0, st.Cond)
		for _, j := range loop.continueJumps {
			c.patchJump(j, contTarget)
		}
	} else {
		c.compileExpr(st.Cond)
		exitJump := c.emit(OpJumpIfFalse, st.Cond)
		c.compileStmt(st.Body)
		for _, j := range loop.continueJumps {
			c.patchJump(j, start)
		}
		c.emitAB(OpJump, int32(start), 0, st)
		c.patchJump(exitJump, c.here())
	}

	for _, j := range loop.breakJumps {
		c.patchJump(j, c.here())
	}
	c.frame.loopStack = c.frame.loopStack[:len(c.frame.loopStack)-1]
}

func (c *Compiler) compileFor(st *ast.For) {
	c.pushScope()
	c.compileStmt(st.Init)

	condPC := c.here()
	var exitJump int
	hasCond := st.Cond != nil
	if hasCond {
		c.compileExpr(st.Cond)
		exitJump = c.emit(OpJumpIfFalse, st.Cond)
	}

	loop := &loopLabels{}
	c.frame.loopStack = append(c.frame.loopStack, loop)
	c.compileStmt(st.Body)
	incPC := c.here()
	for _, j := range loop.continueJumps {
		c.patchJump(j, incPC)
	}
	c.compileStmt(st.Update)
	c.emitAB(OpJump, int32(condPC), 0, st)

	if hasCond {
		c.patchJump(exitJump, c.here())
	}
	for _, j := range loop.breakJumps {
		c.patchJump(j, c.here())
	}
	c.frame.loopStack = c.frame.loopStack[:len(c.frame.loopStack)-1]
	c.popScope()
}

func (c *Compiler) emitLoopJump(label string, isBreak bool, pos ast.Node) {
	if len(c.frame.loopStack) == 0 {
		c.errAt(pos, "break/continue outside a loop")
		return
	}
	loop := c.frame.loopStack[len(c.frame.loopStack)-1]
	if label != "" {
		for i := len(c.frame.loopStack) - 1; i >= 0; i-- {
			if c.frame.loopStack[i].label == label {
				loop = c.frame.loopStack[i]
				break
			}
		}
	}
	j := c.emit(OpJump, pos)
	if isBreak {
		loop.breakJumps = append(loop.breakJumps, j)
	} else {
		loop.continueJumps = append(loop.continueJumps, j)
	}
}

// compileSwitch lowers a match/switch into a linear chain of pattern
// comparisons; Jactl's switch patterns can be arbitrary expressions
// (destructuring list/map patterns are out of scope here - see
// Non-goals), so a jump table isn't applicable the way it would be for a
// dense integer switch.
func (c *Compiler) compileSwitch(st *ast.Switch) {
	c.compileExpr(st.Subject)
	subjectSlot := c.reserveTempSlot()
	c.emitAB(OpStoreLocal, int32(subjectSlot), 0, st)

	var endJumps []int
	for _, cs := range st.Cases {
		c.emitAB(OpLoadLocal, int32(subjectSlot), 0, cs)
		c.compileExpr(cs.Pattern)
		c.emit(OpEqual, cs.Pattern)
		nextJump := c.emit(OpJumpIfFalse, cs.Pattern)
		c.compileStmt(cs.Body)
		endJumps = append(endJumps, c.emit(OpJump, cs))
		c.patchJump(nextJump, c.here())
	}
	if st.Default != nil {
		c.compileStmt(st.Default)
	}
	for _, j := range endJumps {
		c.patchJump(j, c.here())
	}
}

// reserveTempSlot allocates a compiler-only scratch local slot beyond
// whatever the resolver counted, used for transient values (a switch
// subject) that never correspond to a
// resolver-numbered variable. compileFrame.numLocals() folds these back
// into the FunctionObject's NumLocals once the frame is popped, so the
// VM's locals array is always sized to cover every slot actually used.
func (c *Compiler) reserveTempSlot() int {
	slot := c.frame.baseSlots + c.frame.numTemps
	c.frame.numTemps++
	return slot
}

func (c *Compiler) compileTryCatch(st *ast.TryCatch) {
	startPC := c.here()
	c.compileStmt(st.Body)
	skipHandlers := c.emit(OpJump, st)
	endPC := c.here()

	for _, cc := range st.Catches {
		handlerPC := c.here()
		c.pushScope()
		c.frame.scope.define(cc.Name, cc.Slot)
		c.compileStmt(cc.Body)
		c.popScope()
		c.frame.chunk.TryRanges = append(c.frame.chunk.TryRanges, TryRange{
			Start: startPC, End: endPC, Handler: handlerPC, ExcType: cc.ExcType, CatchSlot: cc.Slot,
		})
	}
	c.patchJump(skipHandlers, c.here())
	if st.Finally != nil {
		c.compileStmt(st.Finally)
	}
}
