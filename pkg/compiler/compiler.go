// Package compiler walks an expression tree and emits stack-machine
// bytecode: a linear instruction stream plus the constant pool those
// instructions index into.
//
// Coverage is intentionally the intersection reachable from the bytecode
// VM path: literals, unary/binary arithmetic, parenthesization, and
// if/else. Everything else a script can express — let, functions, calls,
// arrays, maps, indexing, field access, request literals, test blocks —
// runs through pkg/evaluator instead; extending the compiler to cover them
// is a forward-compatibility direction, not a contract of this core.
package compiler

import (
	"fmt"

	"github.com/basjoofan/am/pkg/ast"
	"github.com/basjoofan/am/pkg/bytecode"
	"github.com/basjoofan/am/pkg/value"
)

// Compiler accumulates an instruction stream and a constant pool as it
// walks an expression tree.
type Compiler struct {
	instructions bytecode.Instructions
	constants    []value.Value
}

// New creates an empty Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile compiles a sequence of top-level expressions, emitting Pop after
// each to keep the stack empty between statements, and returns the
// finished Bytecode.
func Compile(exprs []ast.Expr) (*bytecode.Bytecode, error) {
	c := New()
	for i := range exprs {
		if err := c.assemble(&exprs[i]); err != nil {
			return nil, err
		}
		c.emit(bytecode.OpPop)
	}
	return &bytecode.Bytecode{
		Instructions: c.instructions,
		Constants:    c.constants,
	}, nil
}

func (c *Compiler) emit(op bytecode.Opcode) int {
	return c.emitOperand(op, 0)
}

func (c *Compiler) emitOperand(op bytecode.Opcode, operand int) int {
	c.instructions = append(c.instructions, bytecode.Instruction{Op: op, Operand: operand})
	return len(c.instructions) - 1
}

func (c *Compiler) save(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

// insert splices an instruction into the stream at position, used by the
// if/else jump backpatch: the Judge/Jump slot is reserved by remembering
// its position, the consequence/alternative compiled, then the jump
// instruction is spliced in with its now-known target.
func (c *Compiler) insert(position int, insn bytecode.Instruction) {
	c.instructions = append(c.instructions, bytecode.Instruction{})
	copy(c.instructions[position+1:], c.instructions[position:])
	c.instructions[position] = insn
}

func (c *Compiler) assemble(expr *ast.Expr) error {
	switch expr.Kind {
	case ast.Integer:
		idx := c.save(value.Integer(expr.IntegerValue))
		c.emitOperand(bytecode.OpConst, idx)
	case ast.Float:
		idx := c.save(value.Float(expr.FloatValue))
		c.emitOperand(bytecode.OpConst, idx)
	case ast.String:
		idx := c.save(value.String(expr.StringValue))
		c.emitOperand(bytecode.OpConst, idx)
	case ast.Boolean:
		if expr.BooleanValue {
			c.emit(bytecode.OpTrue)
		} else {
			c.emit(bytecode.OpFalse)
		}
	case ast.Unary:
		if err := c.assemble(expr.Right); err != nil {
			return err
		}
		switch expr.Token.Literal {
		case "-":
			c.emit(bytecode.OpMinus)
		case "!":
			c.emit(bytecode.OpBang)
		default:
			return fmt.Errorf("unknown operator: %s", expr.Token.Literal)
		}
	case ast.Binary:
		if err := c.assemble(expr.Left); err != nil {
			return err
		}
		if err := c.assemble(expr.Right); err != nil {
			return err
		}
		switch expr.Token.Literal {
		case "+":
			c.emit(bytecode.OpAdd)
		case "-":
			c.emit(bytecode.OpSub)
		case "*":
			c.emit(bytecode.OpMul)
		case "/":
			c.emit(bytecode.OpDiv)
		case "<":
			c.emit(bytecode.OpLt)
		case ">":
			c.emit(bytecode.OpGt)
		case "==":
			c.emit(bytecode.OpEq)
		case "!=":
			c.emit(bytecode.OpNe)
		default:
			return fmt.Errorf("unknown operator: %s", expr.Token.Literal)
		}
	case ast.Paren:
		return c.assemble(expr.Right)
	case ast.If:
		return c.assembleIf(expr)
	default:
		return fmt.Errorf("unsupported expression")
	}
	return nil
}

func (c *Compiler) assembleIf(expr *ast.Expr) error {
	if err := c.assemble(expr.Left); err != nil {
		return err
	}
	judgePosition := len(c.instructions)
	if err := c.assembleBlock(expr.Block); err != nil {
		return err
	}
	c.insert(judgePosition, bytecode.Instruction{Op: bytecode.OpJudge, Operand: len(c.instructions) + 2})

	jumpPosition := len(c.instructions)
	if err := c.assembleBlock(expr.Alternative); err != nil {
		return err
	}
	c.insert(jumpPosition, bytecode.Instruction{Op: bytecode.OpJump, Operand: len(c.instructions) + 1})
	return nil
}

func (c *Compiler) assembleBlock(block []ast.Expr) error {
	if len(block) == 0 {
		c.emit(bytecode.OpNone)
		return nil
	}
	for i := range block {
		if err := c.assemble(&block[i]); err != nil {
			return err
		}
	}
	return nil
}
