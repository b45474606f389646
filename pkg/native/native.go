// Package native implements the fixed host-function table the evaluator
// dispatches into by index: print, println, format, length, append, and
// http. The bytecode VM does not call natives.
package native

import (
	"fmt"
	"regexp"

	"github.com/basjoofan/am/pkg/value"
)

// Index identifies a native function by its fixed position in the table.
const (
	Http = iota - 1 // -1, kept negative so it sorts before the rest
	Print
	Println
	Format
	Length
	Append
)

// Func is a host function: it receives evaluated arguments and returns a
// Value, in-band Error included — wrong arity or wrong type is reported as
// value.Errorf, never a Go error.
type Func func(args []value.Value) value.Value

// Sender dispatches a raw HTTP request message to the external HTTP client.
// Wired in by the front end so pkg/native never imports pkg/httpclient
// directly (avoids giving the bytecode-reachable layer a network
// dependency); the evaluator supplies this at construction time.
type Sender func(message string) value.Value

// names maps the fixed symbol table to its index, mirroring the original
// lookup used by the parser/evaluator to resolve a bare identifier to a
// native call.
var names = map[string]int{
	"http":    Http,
	"print":   Print,
	"println": Println,
	"format":  Format,
	"length":  Length,
	"append":  Append,
}

// Lookup resolves a native function name to its index, ok=false if name
// isn't a native.
func Lookup(name string) (int, bool) {
	idx, ok := names[name]
	return idx, ok
}

// Table binds every native index to its implementation. http is supplied by
// the caller via send; the rest are pure.
func Table(send Sender) map[int]Func {
	return map[int]Func{
		Print:   print,
		Println: println_,
		Format:  format,
		Length:  length,
		Append:  append_,
		Http: func(args []value.Value) value.Value {
			if len(args) != 1 {
				return value.Errorf("wrong number of arguments. got=%d, want=1", len(args))
			}
			if args[0].Kind != value.StringKind {
				return value.Errorf("function send not supported type %s", args[0].TypeName())
			}
			return send(args[0].String)
		},
	}
}

func println_(args []value.Value) value.Value {
	formatted := format(args)
	if formatted.IsError() {
		return formatted
	}
	fmt.Println(formatted.String)
	return value.None
}

func print(args []value.Value) value.Value {
	formatted := format(args)
	if formatted.IsError() {
		return formatted
	}
	fmt.Print(formatted.String)
	return value.None
}

var placeholder = regexp.MustCompile(`\{\s*[a-zA-Z_][a-zA-Z0-9_]*\s*\}`)

// format substitutes `{name}` placeholders in args[0] (a String template)
// with args[1:] in order of appearance. Arity mismatch between the
// placeholder count and the remaining argument count yields an Error.
func format(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.Errorf("function format need a parameter")
	}
	if args[0].Kind != value.StringKind {
		return value.Errorf("first parameter must be a string")
	}
	template := args[0].String
	ranges := placeholder.FindAllStringIndex(template, -1)
	values := args[1:]
	if len(values) != len(ranges) {
		return value.Errorf("wrong number of arguments. got=%d, want=%d", len(values), len(ranges))
	}
	var out []byte
	last := 0
	for i, r := range ranges {
		out = append(out, template[last:r[0]]...)
		out = append(out, values[i].Display()...)
		last = r[1]
	}
	out = append(out, template[last:]...)
	return value.String(string(out))
}

func length(args []value.Value) value.Value {
	if len(args) != 1 {
		return value.Errorf("wrong number of arguments. got=%d, want=1", len(args))
	}
	switch args[0].Kind {
	case value.StringKind:
		return value.Integer(int64(len(args[0].String)))
	case value.ArrayKind:
		return value.Integer(int64(len(args[0].Array)))
	case value.MapKind:
		return value.Integer(int64(len(args[0].Map)))
	default:
		return value.Errorf("function length not supported type %s", args[0].TypeName())
	}
}

func append_(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.Errorf("function append need a parameter")
	}
	if args[0].Kind != value.ArrayKind {
		return value.Errorf("first parameter must be a array")
	}
	result := make([]value.Value, len(args[0].Array), len(args[0].Array)+len(args)-1)
	copy(result, args[0].Array)
	result = append(result, args[1:]...)
	return value.Array(result)
}
