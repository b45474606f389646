package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basjoofan/am/pkg/compiler"
	"github.com/basjoofan/am/pkg/parser"
	"github.com/basjoofan/am/pkg/value"
)

func runVmTest(t *testing.T, input string) value.Value {
	t.Helper()
	exprs, err := parser.New(input).Parse()
	assert.NoError(t, err, input)
	bc, err := compiler.Compile(exprs)
	assert.NoError(t, err, input)
	machine := New(bc)
	assert.NoError(t, machine.Run(), input)
	return machine.Past()
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"1", 1},
		{"2", 2},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"1 * 2", 2},
		{"4 / 2", 2},
		{"50 / 2 * 2 + 10 - 5", 55},
		{"5 * (2 + 10)", 60},
		{"5 + 5 + 5 + 5 - 10", 10},
		{"2 * 2 * 2 * 2 * 2", 32},
	}
	for _, tt := range tests {
		got := runVmTest(t, tt.input)
		assert.Equal(t, value.IntegerKind, got.Kind, tt.input)
		assert.Equal(t, tt.expected, got.Integer, tt.input)
	}
}

func TestDivisionByZero(t *testing.T) {
	got := runVmTest(t, "4 / 0")
	assert.True(t, got.IsError())
}

func TestBooleanAndConditionals(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"if (true) { 10 } else { 20 }", 10},
		{"if (false) { 10 } else { 20 }", 20},
	}
	for _, tt := range tests {
		got := runVmTest(t, tt.input)
		assert.Equal(t, tt.expected, got.Integer, tt.input)
	}
}

func TestComparisonsAndBang(t *testing.T) {
	assert.True(t, runVmTest(t, "1 < 2").Boolean)
	assert.True(t, runVmTest(t, "1 == 1").Boolean)
	assert.False(t, runVmTest(t, "1 != 1").Boolean)
	assert.False(t, runVmTest(t, "!true").Boolean)
}

func TestFloatPromotion(t *testing.T) {
	got := runVmTest(t, "1 + 2.5")
	assert.Equal(t, value.FloatKind, got.Kind)
	assert.Equal(t, 3.5, got.Float)
}

func TestStringConcatenation(t *testing.T) {
	got := runVmTest(t, `"foo" + "bar"`)
	assert.Equal(t, value.StringKind, got.Kind)
	assert.Equal(t, "foobar", got.String)
}
