package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a Chunk's instruction stream as human-readable
// text, one line per instruction, annotated with the source line when it
// changes and the referenced constant when an operand indexes one.
func Disassemble(c *Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", c.Name)
	lastLine := -1
	for pc, instr := range c.Code {
		line, _ := c.LineFor(pc)
		if line != lastLine {
			fmt.Fprintf(&sb, "%4d ", line)
			lastLine = line
		} else {
			sb.WriteString("   | ")
		}
		fmt.Fprintf(&sb, "%04d %-18s", pc, instr.Op.String())
		switch instr.Op {
		case OpLoadConst, OpCallBuiltin:
			fmt.Fprintf(&sb, " %d", instr.A)
			if int(instr.A) < len(c.Constants) {
				fmt.Fprintf(&sb, " ; %s", c.Constants[instr.A].String())
			}
		case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpJumpIfNullSafe:
			fmt.Fprintf(&sb, " -> %d", instr.A)
		case OpLoadFunction:
			if int(instr.A) < len(c.Functions) {
				fmt.Fprintf(&sb, " %d ; %s", instr.A, c.Functions[instr.A].Name)
			}
		default:
			if instr.A != 0 || instr.B != 0 {
				fmt.Fprintf(&sb, " %d %d", instr.A, instr.B)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
