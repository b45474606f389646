// Package vm implements the single-threaded stack machine that executes
// compiled bytecode.
//
// One Vm instance owns its stack, constant pool, and instruction vector
// exclusively. There are no suspension points inside the dispatch loop:
// execution runs instructions 0..N in order, only ever deviating via Judge
// or Jump, both of which carry absolute instruction indices. Blocking I/O
// never happens here — the vm package only ever sees the arithmetic and
// control-flow opcodes the compiler emits; http dispatch lives in
// pkg/evaluator, one layer up.
package vm

import (
	"github.com/basjoofan/am/pkg/bytecode"
	"github.com/basjoofan/am/pkg/value"
)

const stackSize = 2048

// Vm executes a single Bytecode program to completion.
type Vm struct {
	instructions bytecode.Instructions
	constants    []value.Value

	stack []value.Value
	sp    int // number of live slots; stack[sp] holds the last popped value
}

// New creates a Vm ready to Run the given program.
func New(bc *bytecode.Bytecode) *Vm {
	return &Vm{
		instructions: bc.Instructions,
		constants:    bc.Constants,
		stack:        make([]value.Value, stackSize),
	}
}

// Run executes the instruction stream from position 0. The instruction
// pointer normally advances by one each iteration; Judge and Jump instead
// set it directly.
func (vm *Vm) Run() error {
	for ip := 0; ip < len(vm.instructions); ip++ {
		insn := vm.instructions[ip]
		switch insn.Op {
		case bytecode.OpConst:
			vm.push(vm.constants[insn.Operand].Clone())
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpTrue:
			vm.push(value.True)
		case bytecode.OpFalse:
			vm.push(value.False)
		case bytecode.OpNone:
			vm.push(value.None)
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			if err := vm.execBinaryArithmetic(ip, insn.Op); err != nil {
				return err
			}
		case bytecode.OpMinus:
			if err := vm.execMinus(ip); err != nil {
				return err
			}
		case bytecode.OpBang:
			vm.execBang()
		case bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpGt:
			if err := vm.execComparison(ip, insn.Op); err != nil {
				return err
			}
		case bytecode.OpJudge:
			condition := vm.pop()
			if !condition.Truthy() {
				ip = insn.Operand - 1 // loop increment brings it to Operand
			}
		case bytecode.OpJump:
			ip = insn.Operand - 1
		default:
			return newRuntimeError(ip, "unknown opcode: %s", insn.Op)
		}
	}
	return nil
}

func (vm *Vm) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *Vm) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

// Past returns the most recently popped value: the final expression result
// when the compiler has emitted a terminal Pop.
func (vm *Vm) Past() value.Value {
	return vm.stack[vm.sp]
}

func (vm *Vm) execBinaryArithmetic(ip int, op bytecode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch {
	case left.Kind == value.IntegerKind && right.Kind == value.IntegerKind:
		return vm.execIntegerArithmetic(ip, op, left.Integer, right.Integer)
	case isNumeric(left) && isNumeric(right):
		lf, _ := toFloat(left)
		rf, _ := toFloat(right)
		vm.execFloatArithmetic(op, lf, rf)
		return nil
	case left.Kind == value.StringKind && right.Kind == value.StringKind && op == bytecode.OpAdd:
		vm.push(value.String(left.String + right.String))
		return nil
	default:
		return newRuntimeError(ip, "unsupported types for binary operation: %s %s %s", left.TypeName(), op, right.TypeName())
	}
}

func (vm *Vm) execIntegerArithmetic(ip int, op bytecode.Opcode, left, right int64) error {
	switch op {
	case bytecode.OpAdd:
		vm.push(value.Integer(left + right))
	case bytecode.OpSub:
		vm.push(value.Integer(left - right))
	case bytecode.OpMul:
		vm.push(value.Integer(left * right))
	case bytecode.OpDiv:
		if right == 0 {
			vm.push(value.Errorf("division by zero"))
			return nil
		}
		vm.push(value.Integer(left / right))
	}
	return nil
}

func (vm *Vm) execFloatArithmetic(op bytecode.Opcode, left, right float64) {
	switch op {
	case bytecode.OpAdd:
		vm.push(value.Float(left + right))
	case bytecode.OpSub:
		vm.push(value.Float(left - right))
	case bytecode.OpMul:
		vm.push(value.Float(left * right))
	case bytecode.OpDiv:
		vm.push(value.Float(left / right))
	}
}

func (vm *Vm) execMinus(ip int) error {
	operand := vm.pop()
	switch operand.Kind {
	case value.IntegerKind:
		vm.push(value.Integer(-operand.Integer))
	case value.FloatKind:
		vm.push(value.Float(-operand.Float))
	default:
		return newRuntimeError(ip, "unsupported type for negation: %s", operand.TypeName())
	}
	return nil
}

func (vm *Vm) execBang() {
	operand := vm.pop()
	vm.push(value.Boolean(!operand.Truthy()))
}

func (vm *Vm) execComparison(ip int, op bytecode.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if op == bytecode.OpEq {
		vm.push(value.Boolean(value.Equal(left, right)))
		return nil
	}
	if op == bytecode.OpNe {
		vm.push(value.Boolean(!value.Equal(left, right)))
		return nil
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return newRuntimeError(ip, "unsupported types for comparison: %s %s %s", left.TypeName(), op, right.TypeName())
	}
	switch op {
	case bytecode.OpLt:
		vm.push(value.Boolean(lf < rf))
	case bytecode.OpGt:
		vm.push(value.Boolean(lf > rf))
	}
	return nil
}

func isNumeric(v value.Value) bool {
	return v.Kind == value.IntegerKind || v.Kind == value.FloatKind
}

func toFloat(v value.Value) (float64, bool) {
	switch v.Kind {
	case value.IntegerKind:
		return float64(v.Integer), true
	case value.FloatKind:
		return v.Float, true
	default:
		return 0, false
	}
}
