package bytecode

// OpCode identifies one VM instruction.
type OpCode byte

// Instruction is one bytecode instruction: an opcode plus up to two
// operands. Unlike a bit-packed 32-bit word, A and B are plain ints —
// Jactl's values are far more dynamically typed than a statically typed
// script language's, so there is no payoff from shaving instruction
// operands down to 8/16 bits; a plain struct keeps Code a straightforward
// Go slice the compiler can append to and the VM can index without any
// bit-unpacking step.
type Instruction struct {
	Op OpCode
	A  int32
	B  int32
}

const (
	// Constants and locals.
	OpLoadConst OpCode = iota
	OpLoadNil
	OpLoadTrue
	OpLoadFalse
	OpLoadLocal
	OpStoreLocal
	OpLoadUpvalue
	OpStoreUpvalue
	OpLoadGlobal
	OpStoreGlobal
	OpCloseUpvalue // close the upvalue (if any) pointing at local slot A
	OpPop
	OpDup

	// Arithmetic and comparison: generic, runtime-typed. A concrete static
	// type still lets the compiler skip these for a typed local used only
	// as e.g. `int`, but since Jactl methods routinely operate on `def`
	// parameters, dispatch-by-Kind happens once in the VM rather than
	// being duplicated across a type-specialized opcode per arithmetic
	// operator (a deliberate simplification from a concrete-statically-
	// typed source language's fully specialized instruction set).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShiftLeft
	OpShiftRight
	OpShiftRightUnsigned
	OpEqual
	OpNotEqual
	OpIdentEqual    // ===
	OpNotIdentEqual // !==
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpCompare // <=> spaceship, leaves an int on the stack

	// String/regex.
	OpConcat
	OpStringInterp // A = number of parts already pushed; joins and pushes one string
	OpMatch        // subject, pattern, flags -> bool, binds capture vars via side table
	OpSubst        // subject, pattern, replacement, flags -> string

	// Control flow. B-less jumps use A as the absolute target pc.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfNullSafe // for `?.`/`?[`: jump over the rest of the chain if TOS is null

	// Function/method calls.
	OpLoadFunction   // A = index into the enclosing Chunk's Functions, -> FunctionValue (captures upvalues per UpvalueDefs)
	OpCall           // A = number of positional args already pushed, B = 1 if a NamedArgs map follows on the stack
	OpCallMethod     // A = constant index of the method name, B = arg count; receiver is just under the args
	OpCallGlobalFunc // A = constant index of the function name, B = arg count; dispatches against the script's own function table, no receiver involved
	OpCallBuiltin    // A = constant index of the builtin name, B = arg count
	OpCallSuper      // A = constant index of the method name, B = arg count; receiver is implicitly `this`
	OpLoadThis
	OpNew // A = constant index of the class FQ name, B = arg count
	OpReturn
	OpReturnNil

	// Continuation ABI. The compiler does not emit these two: an async
	// call site compiles to the same OpCall* as a synchronous one, and a
	// suspension travels back as a *Suspend error returned by the called
	// builtin (see continuation.go).
	OpAsyncPrelude      // A = resumption slot index to reserve
	OpLoadPendingResult // resumes into the slot reserved by the matching OpAsyncPrelude

	// Checkpointing. The compiler does not emit this either: a
	// `_checkpoint(value)` call compiles to OpCallBuiltin like any other
	// builtin.
	OpCheckpoint

	// Collections.
	OpNewList  // A = element count already pushed
	OpNewMap   // A = entry count already pushed (key, value pairs)
	OpNewArray // A = element count, B = constant index of the element Type
	OpIndexGet
	OpIndexSet
	OpFieldGet    // A = constant index of field name
	OpFieldSet    // A = constant index of field name
	OpLength      // array/list/map/string length via `.length`/`.size()`
	OpAutoCreate  // A = constant index of field name, B = constant index of AutoCreateSpec; vivifies a nil intermediate link in a chained assignment
	OpListAppend  // A = local slot holding the accumulator list; pops TOS and appends it in place

	// Type operations.
	OpCast        // A = constant index of the target Type
	OpConvertTo   // A = constant index of the target Type, coercing rather than failing
	OpInstanceOf  // A = constant index of the target Type
	OpDefaultValue // A = constant index of a Type, pushes its zero value

	// Exceptions / control statements. break/continue compile to a plain
	// OpJump patched to the loop's exit/increment point once it is known,
	// so there is no separate opcode for them.
	OpThrow
	OpDie

	// Misc.
	OpPrint   // A = 1 for println, 0 for print
	OpNoop
	OpEval    // dynamic eval(source, globals)
	OpHalt
)

var opcodeNames = [...]string{
	OpLoadConst: "LoadConst", OpLoadNil: "LoadNil", OpLoadTrue: "LoadTrue", OpLoadFalse: "LoadFalse",
	OpLoadLocal: "LoadLocal", OpStoreLocal: "StoreLocal", OpLoadUpvalue: "LoadUpvalue", OpStoreUpvalue: "StoreUpvalue",
	OpLoadGlobal: "LoadGlobal", OpStoreGlobal: "StoreGlobal", OpCloseUpvalue: "CloseUpvalue", OpPop: "Pop", OpDup: "Dup",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpNegate: "Negate", OpNot: "Not",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor", OpBitNot: "BitNot",
	OpShiftLeft: "ShiftLeft", OpShiftRight: "ShiftRight", OpShiftRightUnsigned: "ShiftRightUnsigned",
	OpEqual: "Equal", OpNotEqual: "NotEqual", OpIdentEqual: "IdentEqual", OpNotIdentEqual: "NotIdentEqual",
	OpLess: "Less", OpLessEqual: "LessEqual", OpGreater: "Greater", OpGreaterEqual: "GreaterEqual", OpCompare: "Compare",
	OpConcat: "Concat", OpStringInterp: "StringInterp", OpMatch: "Match", OpSubst: "Subst",
	OpJump: "Jump", OpJumpIfFalse: "JumpIfFalse", OpJumpIfTrue: "JumpIfTrue", OpJumpIfNullSafe: "JumpIfNullSafe",
	OpLoadFunction: "LoadFunction", OpCall: "Call", OpCallMethod: "CallMethod", OpCallGlobalFunc: "CallGlobalFunc",
	OpCallBuiltin: "CallBuiltin", OpCallSuper: "CallSuper", OpLoadThis: "LoadThis",
	OpNew: "New", OpReturn: "Return", OpReturnNil: "ReturnNil",
	OpAsyncPrelude: "AsyncPrelude", OpLoadPendingResult: "LoadPendingResult", OpCheckpoint: "Checkpoint",
	OpNewList: "NewList", OpNewMap: "NewMap", OpNewArray: "NewArray", OpIndexGet: "IndexGet", OpIndexSet: "IndexSet",
	OpFieldGet: "FieldGet", OpFieldSet: "FieldSet", OpLength: "Length", OpAutoCreate: "AutoCreate", OpListAppend: "ListAppend",
	OpCast: "Cast", OpConvertTo: "ConvertTo", OpInstanceOf: "InstanceOf", OpDefaultValue: "DefaultValue",
	OpThrow: "Throw", OpDie: "Die",
	OpPrint: "Print", OpNoop: "Noop", OpEval: "Eval", OpHalt: "Halt",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Op?"
}
