// Package parser implements a Pratt (precedence-climbing) parser that turns
// a token stream into the tagged-sum expression tree defined by pkg/ast.
//
// Parser Architecture:
//
// The parser keeps a two-token lookahead window:
//   - curTok: the token currently being examined
//   - peekTok: the next token
//
// Prefix handlers exist for identifiers, literals, `!`, unary `-`, `(`,
// `[`, `{`, `if`, `fn`, `rq`, `let`, `return`, `test`. Infix handlers exist
// for every binary operator, `(` (call), `[` (index), and `.` (field).
// Each handler consumes exactly the tokens belonging to its construct and
// leaves curTok on the last token consumed, the convention precedence
// climbing depends on to decide whether to keep absorbing infix operators.
//
// Error Handling:
//
// The parser reports the first syntax error as a one-line string and
// halts; it does not attempt error recovery.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/basjoofan/am/pkg/ast"
	"github.com/basjoofan/am/pkg/lexer"
	"github.com/basjoofan/am/pkg/token"
)

type (
	prefixFn func() (ast.Expr, error)
	infixFn  func(ast.Expr) (ast.Expr, error)
)

// Parser turns a token stream into an expression tree. It is stateful and
// single-use: construct a new Parser per source unit.
type Parser struct {
	l       *lexer.Lexer
	curTok  token.Token
	peekTok token.Token

	prefixFns map[token.Kind]prefixFn
	infixFns  map[token.Kind]infixFn
}

// New creates a Parser over source text, primed with the first two tokens.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.prefixFns = map[token.Kind]prefixFn{
		token.Ident:    p.parseIdent,
		token.Integer:  p.parseInteger,
		token.Float:    p.parseFloat,
		token.True:     p.parseBoolean,
		token.False:    p.parseBoolean,
		token.String:   p.parseString,
		token.Bang:     p.parseUnary,
		token.Minus:    p.parseUnary,
		token.Lp:       p.parseGroup,
		token.Ls:       p.parseArray,
		token.Lb:       p.parseMap,
		token.If:       p.parseIf,
		token.Fn:       p.parseFunction,
		token.Rq:       p.parseRequest,
		token.Let:      p.parseLet,
		token.Return:   p.parseReturn,
		token.Test:     p.parseTest,
		token.Template: p.parseRequestFromTemplate,
	}
	p.infixFns = map[token.Kind]infixFn{
		token.Plus:    p.parseBinary,
		token.Minus:   p.parseBinary,
		token.Star:    p.parseBinary,
		token.Slash:   p.parseBinary,
		token.Percent: p.parseBinary,
		token.Bx:      p.parseBinary,
		token.Bo:      p.parseBinary,
		token.Ba:      p.parseBinary,
		token.Ll:      p.parseBinary,
		token.Gg:      p.parseBinary,
		token.Lo:      p.parseBinary,
		token.La:      p.parseBinary,
		token.Lt:      p.parseBinary,
		token.Gt:      p.parseBinary,
		token.Le:      p.parseBinary,
		token.Ge:      p.parseBinary,
		token.Eq:      p.parseBinary,
		token.Ne:      p.parseBinary,
		token.Lp:      p.parseCall,
		token.Ls:      p.parseIndex,
		token.Dot:     p.parseField,
	}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.curTok = p.peekTok
	p.peekTok = p.l.Next()
}

func (p *Parser) curIs(kind token.Kind) bool  { return p.curTok.Kind == kind }
func (p *Parser) peekIs(kind token.Kind) bool { return p.peekTok.Kind == kind }

func (p *Parser) expect(kind token.Kind) error {
	if !p.peekIs(kind) {
		return fmt.Errorf("expected next token to be %s, got %s instead", kind, p.peekTok.Kind)
	}
	p.next()
	return nil
}

// Parse parses every top-level expression in the source, each terminated
// by an optional semicolon, until EOF. It halts and returns the first
// syntax error encountered.
func (p *Parser) Parse() ([]ast.Expr, error) {
	var exprs []ast.Expr
	for !p.curIs(token.Eof) {
		expr, err := p.parseExpr(token.Lowest)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if p.peekIs(token.Semi) {
			p.next()
		}
		p.next()
	}
	return exprs, nil
}

func (p *Parser) parseExpr(precedence int) (ast.Expr, error) {
	prefix, ok := p.prefixFns[p.curTok.Kind]
	if !ok {
		return ast.Expr{}, fmt.Errorf("no prefix parse function for %s found", p.curTok.Kind)
	}
	left, err := prefix()
	if err != nil {
		return ast.Expr{}, err
	}
	for !p.peekIs(token.Semi) && precedence < p.peekTok.Precedence() {
		infix, ok := p.infixFns[p.peekTok.Kind]
		if !ok {
			return left, nil
		}
		p.next()
		left, err = infix(left)
		if err != nil {
			return ast.Expr{}, err
		}
	}
	return left, nil
}

func (p *Parser) parseIdent() (ast.Expr, error) {
	return ast.Expr{Kind: ast.Ident, Token: p.curTok, Name: p.curTok.Literal}, nil
}

func (p *Parser) parseInteger() (ast.Expr, error) {
	v, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
	if err != nil {
		return ast.Expr{}, fmt.Errorf("could not parse %q as integer", p.curTok.Literal)
	}
	return ast.Expr{Kind: ast.Integer, Token: p.curTok, IntegerValue: v}, nil
}

func (p *Parser) parseFloat() (ast.Expr, error) {
	v, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		return ast.Expr{}, fmt.Errorf("could not parse %q as float", p.curTok.Literal)
	}
	return ast.Expr{Kind: ast.Float, Token: p.curTok, FloatValue: v}, nil
}

func (p *Parser) parseBoolean() (ast.Expr, error) {
	return ast.Expr{Kind: ast.Boolean, Token: p.curTok, BooleanValue: p.curIs(token.True)}, nil
}

func (p *Parser) parseString() (ast.Expr, error) {
	return ast.Expr{Kind: ast.String, Token: p.curTok, StringValue: p.curTok.Literal}, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.curTok
	p.next()
	right, err := p.parseExpr(token.Prefix)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Unary, Token: tok, Right: &right}, nil
}

func (p *Parser) parseBinary(left ast.Expr) (ast.Expr, error) {
	tok := p.curTok
	precedence := p.curTok.Precedence()
	p.next()
	right, err := p.parseExpr(precedence)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Binary, Token: tok, Left: &left, Right: &right}, nil
}

func (p *Parser) parseGroup() (ast.Expr, error) {
	tok := p.curTok
	p.next()
	inner, err := p.parseExpr(token.Lowest)
	if err != nil {
		return ast.Expr{}, err
	}
	if err := p.expect(token.Rp); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Paren, Token: tok, Right: &inner}, nil
}

func (p *Parser) parseExprList(end token.Kind) ([]ast.Expr, error) {
	var list []ast.Expr
	if p.peekIs(end) {
		p.next()
		return list, nil
	}
	p.next()
	first, err := p.parseExpr(token.Lowest)
	if err != nil {
		return nil, err
	}
	list = append(list, first)
	for p.peekIs(token.Comma) {
		p.next()
		p.next()
		next, err := p.parseExpr(token.Lowest)
		if err != nil {
			return nil, err
		}
		list = append(list, next)
	}
	if err := p.expect(end); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseArray() (ast.Expr, error) {
	tok := p.curTok
	elements, err := p.parseExprList(token.Rs)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Array, Token: tok, Elements: elements}, nil
}

func (p *Parser) parseMap() (ast.Expr, error) {
	tok := p.curTok
	var pairs []ast.Pair
	for !p.peekIs(token.Rb) {
		p.next()
		key, err := p.parseExpr(token.Lowest)
		if err != nil {
			return ast.Expr{}, err
		}
		if err := p.expect(token.Colon); err != nil {
			return ast.Expr{}, err
		}
		p.next()
		val, err := p.parseExpr(token.Lowest)
		if err != nil {
			return ast.Expr{}, err
		}
		pairs = append(pairs, ast.Pair{Key: key, Value: val})
		if !p.peekIs(token.Rb) {
			if err := p.expect(token.Comma); err != nil {
				return ast.Expr{}, err
			}
		}
	}
	if err := p.expect(token.Rb); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Map, Token: tok, Pairs: pairs}, nil
}

func (p *Parser) parseBlock() ([]ast.Expr, error) {
	var block []ast.Expr
	p.next() // consume '{'
	for !p.curIs(token.Rb) && !p.curIs(token.Eof) {
		expr, err := p.parseExpr(token.Lowest)
		if err != nil {
			return nil, err
		}
		block = append(block, expr)
		if p.peekIs(token.Semi) {
			p.next()
		}
		p.next()
	}
	return block, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Lp); err != nil {
		return ast.Expr{}, err
	}
	p.next()
	condition, err := p.parseExpr(token.Lowest)
	if err != nil {
		return ast.Expr{}, err
	}
	if err := p.expect(token.Rp); err != nil {
		return ast.Expr{}, err
	}
	if err := p.expect(token.Lb); err != nil {
		return ast.Expr{}, err
	}
	consequence, err := p.parseBlock()
	if err != nil {
		return ast.Expr{}, err
	}
	expr := ast.Expr{Kind: ast.If, Token: tok, Left: &condition, Block: consequence}
	if p.peekIs(token.Else) {
		p.next()
		if err := p.expect(token.Lb); err != nil {
			return ast.Expr{}, err
		}
		alternative, err := p.parseBlock()
		if err != nil {
			return ast.Expr{}, err
		}
		expr.Alternative = alternative
	}
	return expr, nil
}

func (p *Parser) parseFunctionParameters() ([]string, error) {
	var params []string
	if p.peekIs(token.Rp) {
		p.next()
		return params, nil
	}
	p.next()
	params = append(params, p.curTok.Literal)
	for p.peekIs(token.Comma) {
		p.next()
		p.next()
		params = append(params, p.curTok.Literal)
	}
	if err := p.expect(token.Rp); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFunction() (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Lp); err != nil {
		return ast.Expr{}, err
	}
	parameters, err := p.parseFunctionParameters()
	if err != nil {
		return ast.Expr{}, err
	}
	if err := p.expect(token.Lb); err != nil {
		return ast.Expr{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Function, Token: tok, Parameters: parameters, Block: body}, nil
}

func (p *Parser) parseCall(callee ast.Expr) (ast.Expr, error) {
	tok := p.curTok
	arguments, err := p.parseExprList(token.Rp)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Call, Token: tok, Callee: &callee, Arguments: arguments}, nil
}

func (p *Parser) parseIndex(left ast.Expr) (ast.Expr, error) {
	tok := p.curTok
	p.next()
	index, err := p.parseExpr(token.Lowest)
	if err != nil {
		return ast.Expr{}, err
	}
	if err := p.expect(token.Rs); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Index, Token: tok, Left: &left, Right: &index}, nil
}

func (p *Parser) parseField(left ast.Expr) (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Ident); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Field, Token: tok, Left: &left, Name: p.curTok.Literal}, nil
}

func (p *Parser) parseLet() (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Ident); err != nil {
		return ast.Expr{}, err
	}
	name := p.curTok.Literal
	if err := p.expect(token.Assign); err != nil {
		return ast.Expr{}, err
	}
	p.next()
	value, err := p.parseExpr(token.Lowest)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Let, Token: tok, Name: name, Right: &value}, nil
}

func (p *Parser) parseReturn() (ast.Expr, error) {
	tok := p.curTok
	if p.peekIs(token.Semi) || p.peekIs(token.Rb) || p.peekIs(token.Eof) {
		return ast.Expr{Kind: ast.Return, Token: tok}, nil
	}
	p.next()
	value, err := p.parseExpr(token.Lowest)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Return, Token: tok, Right: &value}, nil
}

func (p *Parser) parseTest() (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Ident); err != nil {
		return ast.Expr{}, err
	}
	name := p.curTok.Literal
	if err := p.expect(token.Lb); err != nil {
		return ast.Expr{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Test, Token: tok, Name: name, Block: body}, nil
}

// parseRequest parses `rq name` followed by a template literal and an
// optional bracketed assertion list: rq name `TEMPLATE` [a == b, ...].
func (p *Parser) parseRequest() (ast.Expr, error) {
	tok := p.curTok
	if err := p.expect(token.Ident); err != nil {
		return ast.Expr{}, err
	}
	name := p.curTok.Literal
	if err := p.expect(token.Template); err != nil {
		return ast.Expr{}, err
	}
	pieces, err := splitTemplate(p.curTok.Literal)
	if err != nil {
		return ast.Expr{}, err
	}
	expr := ast.Expr{Kind: ast.Request, Token: tok, Name: name, Elements: pieces}
	if p.peekIs(token.Ls) {
		p.next()
		asserts, err := p.parseExprList(token.Rs)
		if err != nil {
			return ast.Expr{}, err
		}
		expr.Asserts = asserts
	}
	return expr, nil
}

// parseRequestFromTemplate handles a bare template literal encountered in
// prefix position without a preceding `rq name`; it yields an anonymous
// request.
func (p *Parser) parseRequestFromTemplate() (ast.Expr, error) {
	tok := p.curTok
	pieces, err := splitTemplate(p.curTok.Literal)
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.Request, Token: tok, Elements: pieces}, nil
}

// splitTemplate splits a template literal's raw text into an alternating
// sequence of string pieces and parsed `${expr}` pieces.
func splitTemplate(literal string) ([]ast.Expr, error) {
	var pieces []ast.Expr
	var text strings.Builder
	runes := []rune(literal)
	i := 0
	for i < len(runes) {
		if runes[i] == '$' && i+1 < len(runes) && runes[i+1] == '{' {
			if text.Len() > 0 {
				pieces = append(pieces, ast.Expr{Kind: ast.String, StringValue: text.String()})
				text.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(runes) && depth > 0 {
				switch runes[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unterminated interpolation in template")
			}
			inner := string(runes[i+2 : j])
			sub := New(inner)
			expr, err := sub.parseExpr(token.Lowest)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, expr)
			i = j + 1
			continue
		}
		text.WriteRune(runes[i])
		i++
	}
	if text.Len() > 0 {
		pieces = append(pieces, ast.Expr{Kind: ast.String, StringValue: text.String()})
	}
	return pieces, nil
}
