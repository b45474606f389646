package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders instructions as one mnemonic per line, prefixed by its
// absolute index, e.g. "0000 CONST 0", for inspecting emitted bytecode.
func Disassemble(insns Instructions) string {
	var b strings.Builder
	for i, insn := range insns {
		fmt.Fprintf(&b, "%04d %s", i, insn.Op)
		if insn.Op.HasOperand() {
			fmt.Fprintf(&b, " %d", insn.Operand)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
