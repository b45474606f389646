package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basjoofan/am/pkg/bytecode"
	"github.com/basjoofan/am/pkg/parser"
	"github.com/basjoofan/am/pkg/value"
)

type compilerCase struct {
	input        string
	constants    []value.Value
	instructions bytecode.Instructions
}

func runCompilerTests(t *testing.T, tests []compilerCase) {
	t.Helper()
	for _, tt := range tests {
		exprs, err := parser.New(tt.input).Parse()
		assert.NoError(t, err, tt.input)
		bc, err := Compile(exprs)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.constants, bc.Constants, tt.input)
		assert.Equal(t, tt.instructions, bc.Instructions, tt.input)
	}
}

func TestIntegerArithmetic(t *testing.T) {
	runCompilerTests(t, []compilerCase{
		{
			"1 + 2",
			[]value.Value{value.Integer(1), value.Integer(2)},
			bytecode.Instructions{
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpAdd},
				{Op: bytecode.OpPop},
			},
		},
		{
			"1; 2",
			[]value.Value{value.Integer(1), value.Integer(2)},
			bytecode.Instructions{
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpPop},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpPop},
			},
		},
		{
			"1 - 2",
			[]value.Value{value.Integer(1), value.Integer(2)},
			bytecode.Instructions{
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpSub},
				{Op: bytecode.OpPop},
			},
		},
		{
			"-1",
			[]value.Value{value.Integer(1)},
			bytecode.Instructions{
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpMinus},
				{Op: bytecode.OpPop},
			},
		},
	})
}

func TestBooleanArithmetic(t *testing.T) {
	runCompilerTests(t, []compilerCase{
		{"true", nil, bytecode.Instructions{{Op: bytecode.OpTrue}, {Op: bytecode.OpPop}}},
		{"false", nil, bytecode.Instructions{{Op: bytecode.OpFalse}, {Op: bytecode.OpPop}}},
		{"!true", nil, bytecode.Instructions{{Op: bytecode.OpTrue}, {Op: bytecode.OpBang}, {Op: bytecode.OpPop}}},
		{
			"1 < 2",
			[]value.Value{value.Integer(1), value.Integer(2)},
			bytecode.Instructions{
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpLt},
				{Op: bytecode.OpPop},
			},
		},
	})
}

func TestConditionals(t *testing.T) {
	runCompilerTests(t, []compilerCase{
		{
			"if (true) { 10 }; 3333;",
			[]value.Value{value.Integer(10), value.Integer(3333)},
			bytecode.Instructions{
				{Op: bytecode.OpTrue},
				{Op: bytecode.OpJudge, Operand: 4},
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpJump, Operand: 5},
				{Op: bytecode.OpNone},
				{Op: bytecode.OpPop},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpPop},
			},
		},
		{
			"if (true) { 10 } else { 20 }; 3333;",
			[]value.Value{value.Integer(10), value.Integer(20), value.Integer(3333)},
			bytecode.Instructions{
				{Op: bytecode.OpTrue},
				{Op: bytecode.OpJudge, Operand: 4},
				{Op: bytecode.OpConst, Operand: 0},
				{Op: bytecode.OpJump, Operand: 5},
				{Op: bytecode.OpConst, Operand: 1},
				{Op: bytecode.OpPop},
				{Op: bytecode.OpConst, Operand: 2},
				{Op: bytecode.OpPop},
			},
		},
	})
}

func TestUnsupportedExpression(t *testing.T) {
	exprs, err := parser.New("let x = 5;").Parse()
	assert.NoError(t, err)
	_, err = Compile(exprs)
	assert.ErrorContains(t, err, "unsupported expression")
}
