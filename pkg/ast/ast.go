// Package ast defines the expression tree produced by the parser.
//
// Expr is a closed, tagged sum rather than an interface hierarchy: every
// variant lives on the same struct behind a Kind discriminant, and callers
// switch over Kind exhaustively. This keeps pattern matching static and
// mirrors how the value domain in pkg/value is organized.
package ast

import (
	"strings"

	"github.com/basjoofan/am/pkg/token"
)

// Kind discriminates the variant an Expr holds.
type Kind int

const (
	Integer Kind = iota
	Float
	Boolean
	String
	Ident
	Let
	Return
	Unary
	Binary
	Paren
	If
	Function
	Call
	Array
	Map
	Index
	Field
	Request
	Test
)

// Pair is one key/value entry of a Map literal, in source order.
type Pair struct {
	Key   Expr
	Value Expr
}

// Expr is a single node of the expression tree. Every variant carries the
// originating Token for diagnostics; the fields relevant to its Kind are
// populated, the rest left zero. Per the two-argument Ident resolution
// (token + name), identifier-bearing variants keep both.
type Expr struct {
	Kind  Kind
	Token token.Token

	IntegerValue int64
	FloatValue   float64
	BooleanValue bool
	StringValue  string // literal string value
	Name         string // Ident/Let/Field/Request/Test name

	Left  *Expr // Binary left operand, Index/Field receiver, If condition
	Right *Expr // Unary operand, Binary right operand, Paren inner, Index key, Let/Return value

	Block       []Expr // If consequence, Function/Test body
	Alternative []Expr // If alternative

	Parameters []string // Function parameters
	Arguments  []Expr   // Call arguments
	Callee     *Expr    // Call target

	Elements []Expr // Array elements, Request template pieces
	Pairs    []Pair // Map entries

	Asserts []Expr // Request assertion expressions
}

// IsLiteral reports whether e is built entirely from literal sub-expressions
// (integer, float, boolean, string, or arrays/maps of such), so its value
// does not depend on any binding in a Context.
func (e *Expr) IsLiteral() bool {
	switch e.Kind {
	case Integer, Float, Boolean, String:
		return true
	case Array:
		for i := range e.Elements {
			if !e.Elements[i].IsLiteral() {
				return false
			}
		}
		return true
	case Map:
		for _, p := range e.Pairs {
			if !p.Key.IsLiteral() || !p.Value.IsLiteral() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a normalized, reparsable form of the expression. Used for
// parser round-trip testing and diagnostics.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch e.Kind {
	case Integer, Float:
		b.WriteString(e.Token.Literal)
	case Boolean:
		if e.BooleanValue {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case String:
		b.WriteByte('"')
		b.WriteString(stringEscaper.Replace(e.StringValue))
		b.WriteByte('"')
	case Ident:
		b.WriteString(e.Name)
	case Let:
		b.WriteString("let ")
		b.WriteString(e.Name)
		b.WriteString(" = ")
		b.WriteString(e.Right.String())
	case Return:
		b.WriteString("return")
		if e.Right != nil {
			b.WriteByte(' ')
			b.WriteString(e.Right.String())
		}
	case Unary:
		b.WriteString(e.Token.Literal)
		b.WriteString(e.Right.String())
	case Binary:
		b.WriteString(e.Left.String())
		b.WriteByte(' ')
		b.WriteString(e.Token.Literal)
		b.WriteByte(' ')
		b.WriteString(e.Right.String())
	case Paren:
		b.WriteByte('(')
		b.WriteString(e.Right.String())
		b.WriteByte(')')
	case If:
		b.WriteString("if (")
		b.WriteString(e.Left.String())
		b.WriteString(") { ")
		writeBlock(b, e.Block)
		if len(e.Alternative) > 0 {
			b.WriteString(" } else { ")
			writeBlock(b, e.Alternative)
		}
		b.WriteString(" }")
	case Function:
		b.WriteString("fn(")
		b.WriteString(strings.Join(e.Parameters, ", "))
		b.WriteString(") { ")
		writeBlock(b, e.Block)
		b.WriteString(" }")
	case Call:
		b.WriteString(e.Callee.String())
		b.WriteByte('(')
		for i := range e.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Arguments[i].String())
		}
		b.WriteByte(')')
	case Array:
		b.WriteByte('[')
		for i := range e.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Elements[i].String())
		}
		b.WriteByte(']')
	case Map:
		b.WriteByte('{')
		for i, p := range e.Pairs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Key.String())
			b.WriteString(": ")
			b.WriteString(p.Value.String())
		}
		b.WriteByte('}')
	case Index:
		b.WriteString(e.Left.String())
		b.WriteByte('[')
		b.WriteString(e.Right.String())
		b.WriteByte(']')
	case Field:
		b.WriteString(e.Left.String())
		b.WriteByte('.')
		b.WriteString(e.Name)
	case Request:
		if e.Name != "" {
			b.WriteString("rq ")
			b.WriteString(e.Name)
			b.WriteByte(' ')
		}
		b.WriteByte('`')
		for i := range e.Elements {
			if e.Elements[i].Kind == String {
				b.WriteString(e.Elements[i].StringValue)
			} else {
				b.WriteString("${")
				b.WriteString(e.Elements[i].String())
				b.WriteByte('}')
			}
		}
		b.WriteByte('`')
		if len(e.Asserts) > 0 {
			b.WriteString(" [")
			for i := range e.Asserts {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(e.Asserts[i].String())
			}
			b.WriteByte(']')
		}
	case Test:
		b.WriteString("test ")
		b.WriteString(e.Name)
		b.WriteString(" { ")
		writeBlock(b, e.Block)
		b.WriteString(" }")
	}
}

// stringEscaper undoes the lexer's string-literal escapes.
var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

func writeBlock(b *strings.Builder, block []Expr) {
	for i := range block {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(block[i].String())
	}
}
