package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "CONST", OpConst.String())
	assert.Equal(t, "JUDGE", OpJudge.String())
	assert.Equal(t, "UNKNOWN", Opcode(255).String())
}

func TestHasOperand(t *testing.T) {
	assert.True(t, OpConst.HasOperand())
	assert.True(t, OpJudge.HasOperand())
	assert.True(t, OpJump.HasOperand())
	assert.False(t, OpAdd.HasOperand())
	assert.False(t, OpPop.HasOperand())
}

func TestDisassemble(t *testing.T) {
	insns := Instructions{
		{Op: OpConst, Operand: 0},
		{Op: OpConst, Operand: 1},
		{Op: OpAdd},
		{Op: OpPop},
	}
	out := Disassemble(insns)
	assert.Equal(t, "0000 CONST 0\n0001 CONST 1\n0002 ADD\n0003 POP\n", out)
}
