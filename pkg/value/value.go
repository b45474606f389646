// Package value defines the runtime value domain the VM and evaluator share.
//
// Value is a closed tagged sum, switched over exhaustively rather than
// implemented as a Go interface hierarchy — the same design as pkg/ast.Expr.
// Error and Return are in-band: any operation that receives an Error Value
// propagates it unchanged, and block evaluation short-circuits on either.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/basjoofan/am/pkg/ast"
)

// Kind discriminates the variant a Value holds.
type Kind int

const (
	NoneKind Kind = iota
	IntegerKind
	FloatKind
	BooleanKind
	StringKind
	ArrayKind
	MapKind
	FunctionKind
	NativeKind
	RequestKind
	ReturnKind
	ErrorKind
)

// Value is a single runtime value. Only the fields relevant to Kind are
// populated.
type Value struct {
	Kind Kind

	Integer int64
	Float   float64
	Boolean bool
	String  string

	Array []Value
	Map   map[string]Value

	Parameters []string  // Function
	Body       []ast.Expr // Function body
	Context    *Context   // Function closure environment

	Native int // index into the native function table

	RequestName    string    // Request
	RequestPieces  []ast.Expr
	RequestAsserts []ast.Expr

	Return *Value // boxed value of a Return
	Error  string // message of an Error
}

var (
	None  = Value{Kind: NoneKind}
	True  = Value{Kind: BooleanKind, Boolean: true}
	False = Value{Kind: BooleanKind, Boolean: false}
)

func Integer(i int64) Value  { return Value{Kind: IntegerKind, Integer: i} }
func Float(f float64) Value  { return Value{Kind: FloatKind, Float: f} }
func Boolean(b bool) Value {
	if b {
		return True
	}
	return False
}
func String(s string) Value { return Value{Kind: StringKind, String: s} }
func Array(items []Value) Value {
	return Value{Kind: ArrayKind, Array: items}
}
func Map(m map[string]Value) Value {
	return Value{Kind: MapKind, Map: m}
}
func Native(index int) Value { return Value{Kind: NativeKind, Native: index} }
func Function(parameters []string, body []ast.Expr, ctx *Context) Value {
	return Value{Kind: FunctionKind, Parameters: parameters, Body: body, Context: ctx}
}
func Request(name string, pieces, asserts []ast.Expr) Value {
	return Value{Kind: RequestKind, RequestName: name, RequestPieces: pieces, RequestAsserts: asserts}
}
func Errorf(format string, args ...any) Value {
	return Value{Kind: ErrorKind, Error: fmt.Sprintf(format, args...)}
}
func Returned(v Value) Value {
	return Value{Kind: ReturnKind, Return: &v}
}

// IsError reports whether v is an in-band Error.
func (v Value) IsError() bool { return v.Kind == ErrorKind }

// IsReturn reports whether v is an in-band Return wrapper.
func (v Value) IsReturn() bool { return v.Kind == ReturnKind }

// Truthy implements the VM/evaluator's falsey rule: only Boolean(false) and
// None are falsey; every other value, including Integer(0) and "", is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case NoneKind:
		return false
	case BooleanKind:
		return v.Boolean
	default:
		return true
	}
}

// Clone performs a deep copy so aliasing between Values is never observable.
func (v Value) Clone() Value {
	switch v.Kind {
	case ArrayKind:
		items := make([]Value, len(v.Array))
		for i, item := range v.Array {
			items[i] = item.Clone()
		}
		return Array(items)
	case MapKind:
		m := make(map[string]Value, len(v.Map))
		for k, item := range v.Map {
			m[k] = item.Clone()
		}
		return Map(m)
	case ReturnKind:
		inner := v.Return.Clone()
		return Returned(inner)
	default:
		return v
	}
}

// Display renders a human-readable form, used by print/println/format and by
// error messages.
func (v Value) Display() string {
	switch v.Kind {
	case NoneKind:
		return "None"
	case IntegerKind:
		return strconv.FormatInt(v.Integer, 10)
	case FloatKind:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case BooleanKind:
		return strconv.FormatBool(v.Boolean)
	case StringKind:
		return v.String
	case ArrayKind:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.Display()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case MapKind:
		parts := make([]string, 0, len(v.Map))
		for k, item := range v.Map {
			parts = append(parts, fmt.Sprintf("%s: %s", k, item.Display()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case FunctionKind:
		return "fn(" + strings.Join(v.Parameters, ", ") + ")"
	case NativeKind:
		return "native"
	case RequestKind:
		return "rq " + v.RequestName
	case ReturnKind:
		return v.Return.Display()
	case ErrorKind:
		return "Error: " + v.Error
	default:
		return ""
	}
}

// TypeName names the Kind for diagnostics ("Integer", "String", ...).
func (v Value) TypeName() string {
	switch v.Kind {
	case NoneKind:
		return "None"
	case IntegerKind:
		return "Integer"
	case FloatKind:
		return "Float"
	case BooleanKind:
		return "Boolean"
	case StringKind:
		return "String"
	case ArrayKind:
		return "Array"
	case MapKind:
		return "Map"
	case FunctionKind:
		return "Function"
	case NativeKind:
		return "Native"
	case RequestKind:
		return "Request"
	case ReturnKind:
		return "Return"
	case ErrorKind:
		return "Error"
	default:
		return "Unknown"
	}
}

// Equal implements the Eq/Ne opcode comparison rule: values compare equal
// only when their tags match (with numeric promotion between Integer and
// Float); mismatched tags are never equal.
func Equal(left, right Value) bool {
	switch {
	case left.Kind == IntegerKind && right.Kind == IntegerKind:
		return left.Integer == right.Integer
	case left.Kind == FloatKind || right.Kind == FloatKind:
		lf, lok := asFloat(left)
		rf, rok := asFloat(right)
		return lok && rok && lf == rf
	case left.Kind == BooleanKind && right.Kind == BooleanKind:
		return left.Boolean == right.Boolean
	case left.Kind == StringKind && right.Kind == StringKind:
		return left.String == right.String
	case left.Kind == NoneKind && right.Kind == NoneKind:
		return true
	default:
		return false
	}
}

func asFloat(v Value) (float64, bool) {
	switch v.Kind {
	case IntegerKind:
		return float64(v.Integer), true
	case FloatKind:
		return v.Float, true
	default:
		return 0, false
	}
}
