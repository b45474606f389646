// Package evaluator tree-walks the full expression set directly over the
// parsed syntax, covering every Expr variant the bytecode compiler leaves
// unreached — let/return, functions and calls, arrays/maps, index/field
// access, request literals, and test blocks.
package evaluator

import (
	"strings"
	"time"

	"github.com/basjoofan/am/pkg/ast"
	"github.com/basjoofan/am/pkg/httpclient"
	"github.com/basjoofan/am/pkg/native"
	"github.com/basjoofan/am/pkg/record"
	"github.com/basjoofan/am/pkg/value"
)

// Evaluator runs a parsed program. It owns the native function table and
// the HTTP client that request literals dispatch through, and accumulates
// a Record for every request call it makes.
type Evaluator struct {
	natives map[int]native.Func
	client  *httpclient.Client
	Records []*record.Record
}

// New creates an Evaluator that dispatches request literals through
// client.
func New(client *httpclient.Client) *Evaluator {
	e := &Evaluator{client: client}
	e.natives = native.Table(e.send)
	return e
}

// Run evaluates exprs against ctx, returning the value of the last
// expression with any trailing Return unwrapped.
func (e *Evaluator) Run(exprs []ast.Expr, ctx *value.Context) value.Value {
	result := e.evalBlock(exprs, ctx)
	if result.IsReturn() {
		return *result.Return
	}
	return result
}

func (e *Evaluator) evalBlock(exprs []ast.Expr, ctx *value.Context) value.Value {
	result := value.None
	for i := range exprs {
		result = e.evalExpr(&exprs[i], ctx)
		if result.IsError() || result.IsReturn() {
			return result
		}
	}
	return result
}

func (e *Evaluator) evalExpr(expr *ast.Expr, ctx *value.Context) value.Value {
	switch expr.Kind {
	case ast.Integer:
		return value.Integer(expr.IntegerValue)
	case ast.Float:
		return value.Float(expr.FloatValue)
	case ast.Boolean:
		return value.Boolean(expr.BooleanValue)
	case ast.String:
		return value.String(expr.StringValue)
	case ast.Ident:
		return e.evalIdent(expr, ctx)
	case ast.Let:
		return e.evalLet(expr, ctx)
	case ast.Return:
		return e.evalReturn(expr, ctx)
	case ast.Unary:
		return e.evalUnary(expr, ctx)
	case ast.Binary:
		return e.evalBinary(expr, ctx)
	case ast.Paren:
		return e.evalExpr(expr.Right, ctx)
	case ast.If:
		return e.evalIf(expr, ctx)
	case ast.Function:
		return value.Function(expr.Parameters, expr.Block, ctx)
	case ast.Call:
		return e.evalCall(expr, ctx)
	case ast.Array:
		return e.evalArray(expr, ctx)
	case ast.Map:
		return e.evalMap(expr, ctx)
	case ast.Index:
		return e.evalIndex(expr, ctx)
	case ast.Field:
		return e.evalField(expr, ctx)
	case ast.Request:
		req := value.Request(expr.Name, expr.Elements, expr.Asserts)
		if expr.Name != "" {
			ctx.Set(expr.Name, req)
		}
		return req
	case ast.Test:
		test := value.Function(nil, expr.Block, ctx)
		if expr.Name != "" {
			ctx.Set(expr.Name, test)
		}
		return test
	default:
		return value.Errorf("unsupported expression")
	}
}

func (e *Evaluator) evalIdent(expr *ast.Expr, ctx *value.Context) value.Value {
	if v, ok := ctx.Get(expr.Name); ok {
		return v
	}
	if idx, ok := native.Lookup(expr.Name); ok {
		return value.Native(idx)
	}
	return value.Errorf("ident: %s not found", expr.Name)
}

func (e *Evaluator) evalLet(expr *ast.Expr, ctx *value.Context) value.Value {
	v := e.evalExpr(expr.Right, ctx)
	if v.IsError() {
		return v
	}
	ctx.Set(expr.Name, v)
	return v
}

func (e *Evaluator) evalReturn(expr *ast.Expr, ctx *value.Context) value.Value {
	if expr.Right == nil {
		return value.Returned(value.None)
	}
	v := e.evalExpr(expr.Right, ctx)
	if v.IsError() {
		return v
	}
	return value.Returned(v)
}

func (e *Evaluator) evalUnary(expr *ast.Expr, ctx *value.Context) value.Value {
	right := e.evalExpr(expr.Right, ctx)
	if right.IsError() {
		return right
	}
	switch expr.Token.Literal {
	case "!":
		return value.Boolean(!right.Truthy())
	case "-":
		switch right.Kind {
		case value.IntegerKind:
			return value.Integer(-right.Integer)
		case value.FloatKind:
			return value.Float(-right.Float)
		default:
			return value.Errorf("unknown operator: -%s", right.TypeName())
		}
	default:
		return value.Errorf("unknown operator: %s%s", expr.Token.Literal, right.TypeName())
	}
}

func (e *Evaluator) evalBinary(expr *ast.Expr, ctx *value.Context) value.Value {
	left := e.evalExpr(expr.Left, ctx)
	if left.IsError() {
		return left
	}
	right := e.evalExpr(expr.Right, ctx)
	if right.IsError() {
		return right
	}
	return evalBinaryOp(expr.Token.Literal, left, right)
}

// evalBinaryOp matches vm.go's promotion rules for + - * /, so the compiled
// and tree-walked execution paths agree on arithmetic. Comparisons differ:
// here mismatched types are an Error and < > also order Strings and
// Booleans, where the VM compares only numbers with < > and treats
// mismatched types as unequal.
func evalBinaryOp(op string, left, right value.Value) value.Value {
	switch {
	case left.Kind == value.IntegerKind && right.Kind == value.IntegerKind:
		return evalIntegerOp(op, left.Integer, right.Integer)
	case isNumeric(left) && isNumeric(right):
		lf, _ := toFloat(left)
		rf, _ := toFloat(right)
		return evalFloatOp(op, lf, rf)
	case left.Kind == value.BooleanKind && right.Kind == value.BooleanKind:
		return evalBooleanOp(op, left.Boolean, right.Boolean)
	case left.Kind == value.StringKind && right.Kind == value.StringKind:
		return evalStringOp(op, left.String, right.String)
	default:
		return value.Errorf("type mismatch: %s %s %s", left.TypeName(), op, right.TypeName())
	}
}

func evalIntegerOp(op string, left, right int64) value.Value {
	switch op {
	case "+":
		return value.Integer(left + right)
	case "-":
		return value.Integer(left - right)
	case "*":
		return value.Integer(left * right)
	case "/":
		if right == 0 {
			return value.Errorf("division by zero")
		}
		return value.Integer(left / right)
	case "<":
		return value.Boolean(left < right)
	case ">":
		return value.Boolean(left > right)
	case "==":
		return value.Boolean(left == right)
	case "!=":
		return value.Boolean(left != right)
	default:
		return value.Errorf("not support operator: %d %s %d", left, op, right)
	}
}

func evalFloatOp(op string, left, right float64) value.Value {
	switch op {
	case "+":
		return value.Float(left + right)
	case "-":
		return value.Float(left - right)
	case "*":
		return value.Float(left * right)
	case "/":
		return value.Float(left / right)
	case "<":
		return value.Boolean(left < right)
	case ">":
		return value.Boolean(left > right)
	case "==":
		return value.Boolean(left == right)
	case "!=":
		return value.Boolean(left != right)
	default:
		return value.Errorf("not support operator: %v %s %v", left, op, right)
	}
}

func evalBooleanOp(op string, left, right bool) value.Value {
	switch op {
	case "<":
		return value.Boolean(left && !right)
	case ">":
		return value.Boolean(!left && right)
	case "==":
		return value.Boolean(left == right)
	case "!=":
		return value.Boolean(left != right)
	default:
		return value.Errorf("not support operator: %v %s %v", left, op, right)
	}
}

func evalStringOp(op string, left, right string) value.Value {
	switch op {
	case "+":
		return value.String(left + right)
	case "<":
		return value.Boolean(left < right)
	case ">":
		return value.Boolean(left > right)
	case "==":
		return value.Boolean(left == right)
	case "!=":
		return value.Boolean(left != right)
	default:
		return value.Errorf("not support operator: %s %s %s", left, op, right)
	}
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

func (e *Evaluator) evalIf(expr *ast.Expr, ctx *value.Context) value.Value {
	condition := e.evalExpr(expr.Left, ctx)
	if condition.IsError() {
		return condition
	}
	if condition.Truthy() {
		return e.evalBlock(expr.Block, ctx)
	}
	return e.evalBlock(expr.Alternative, ctx)
}

func (e *Evaluator) evalArray(expr *ast.Expr, ctx *value.Context) value.Value {
	elements, errv := e.evalExprs(expr.Elements, ctx)
	if errv != nil {
		return *errv
	}
	return value.Array(elements)
}

func (e *Evaluator) evalExprs(exprs []ast.Expr, ctx *value.Context) ([]value.Value, *value.Value) {
	values := make([]value.Value, 0, len(exprs))
	for i := range exprs {
		v := e.evalExpr(&exprs[i], ctx)
		if v.IsError() {
			return nil, &v
		}
		values = append(values, v)
	}
	return values, nil
}

func (e *Evaluator) evalMap(expr *ast.Expr, ctx *value.Context) value.Value {
	pairs := make(map[string]value.Value, len(expr.Pairs))
	for _, p := range expr.Pairs {
		key := e.evalExpr(&p.Key, ctx)
		if key.IsError() {
			return key
		}
		val := e.evalExpr(&p.Value, ctx)
		if val.IsError() {
			return val
		}
		pairs[key.Display()] = val
	}
	return value.Map(pairs)
}

func (e *Evaluator) evalIndex(expr *ast.Expr, ctx *value.Context) value.Value {
	left := e.evalExpr(expr.Left, ctx)
	if left.IsError() {
		return left
	}
	index := e.evalExpr(expr.Right, ctx)
	if index.IsError() {
		return index
	}
	switch {
	case left.Kind == value.ArrayKind && index.Kind == value.IntegerKind:
		if index.Integer < 0 || index.Integer >= int64(len(left.Array)) {
			return value.None
		}
		return left.Array[index.Integer]
	case left.Kind == value.MapKind:
		if v, ok := left.Map[index.Display()]; ok {
			return v
		}
		return value.None
	default:
		return value.Errorf("index operator not support: %s", left.TypeName())
	}
}

func (e *Evaluator) evalField(expr *ast.Expr, ctx *value.Context) value.Value {
	object := e.evalExpr(expr.Left, ctx)
	if object.IsError() {
		return object
	}
	if object.Kind != value.MapKind {
		return value.Errorf("field operator not support: %s", object.TypeName())
	}
	if v, ok := object.Map[expr.Name]; ok {
		return v
	}
	return value.None
}

func (e *Evaluator) evalCall(expr *ast.Expr, ctx *value.Context) value.Value {
	callee := e.evalExpr(expr.Callee, ctx)
	if callee.IsError() {
		return callee
	}
	arguments, errv := e.evalExprs(expr.Arguments, ctx)
	if errv != nil {
		return *errv
	}
	return e.applyCall(callee, arguments, ctx)
}

// Call invokes callee (a Function, Native, or Request Value previously
// bound by Run) with arguments against ctx. It is applyCall's exported
// entry point for callers outside the package — the test runner looks up
// a named test's Value in the top-level Context and calls it this way.
func (e *Evaluator) Call(callee value.Value, arguments []value.Value, ctx *value.Context) value.Value {
	return e.applyCall(callee, arguments, ctx)
}

// applyCall dispatches a called Value to its implementation: a Function
// runs its body in a fresh child of its closure Context, a Native index
// resolves through the natives table, and a Request dispatches an HTTP
// round trip via callRequest.
func (e *Evaluator) applyCall(callee value.Value, arguments []value.Value, ctx *value.Context) value.Value {
	switch callee.Kind {
	case value.FunctionKind:
		if len(arguments) != len(callee.Parameters) {
			return value.Errorf("expect %d parameters but %d", len(callee.Parameters), len(arguments))
		}
		frame := callee.Context.Enclose()
		for i, name := range callee.Parameters {
			frame.Set(name, arguments[i])
		}
		return e.Run(callee.Body, frame)
	case value.NativeKind:
		fn, ok := e.natives[callee.Native]
		if !ok {
			return value.Errorf("native function %d not found", callee.Native)
		}
		return fn(arguments)
	case value.RequestKind:
		return e.callRequest(callee, ctx)
	default:
		return value.Errorf("not a function or request")
	}
}

// callRequest renders a request literal's template pieces to a wire
// message, sends it, projects the response into the calling Context, runs
// its asserts, and records the round trip.
func (e *Evaluator) callRequest(req value.Value, ctx *value.Context) value.Value {
	var message strings.Builder
	for i := range req.RequestPieces {
		message.WriteString(e.evalExpr(&req.RequestPieces[i], ctx).Display())
	}

	start := time.Now()
	httpReq, httpRes, _, err := e.client.Send(message.String())
	end := time.Now()

	rr := toRecordRequest(httpReq)
	var errMsg string
	var rres record.Response
	var responseValue value.Value
	if err != nil {
		errMsg = err.Error()
		responseValue = value.Errorf("%s", errMsg)
	} else {
		rres = toRecordResponse(httpRes)
		responseValue = rres.Value()
		for k, v := range responseValue.Map {
			ctx.Set(k, v)
		}
	}

	asserts := e.evalAsserts(req.RequestAsserts, ctx)
	e.Records = append(e.Records, record.Capture(start, end, rr, rres, asserts, errMsg))

	return responseValue
}

func (e *Evaluator) evalAsserts(exprs []ast.Expr, ctx *value.Context) []record.Assert {
	asserts := make([]record.Assert, 0, len(exprs))
	for i := range exprs {
		expr := &exprs[i]
		if expr.Kind != ast.Binary {
			continue
		}
		left := value.None
		if expr.Left != nil {
			left = e.evalExpr(expr.Left, ctx)
		}
		right := value.None
		if expr.Right != nil {
			right = e.evalExpr(expr.Right, ctx)
		}
		result := evalBinaryOp(expr.Token.Literal, left, right)
		asserts = append(asserts, record.Assert{
			Expression: expr.String(),
			Left:       left,
			Comparison: expr.Token.Literal,
			Right:      right,
			Result:     result.Kind == value.BooleanKind && result.Boolean,
		})
	}
	return asserts
}

// send is the native.Sender wired into the native "http" entry: a bare
// `http(message)` call in script text goes through the same client and
// gets the same diagnostics as a request literal, but isn't recorded —
// only named request literals produce a Record. It always returns a
// Map{request, response, time, error}, success or failure alike, matching
// the original native http() — a failed send still carries its parsed
// request, a zero-valued response, and the accumulated Time, with error
// holding the failure's message instead of the in-band Error channel.
func (e *Evaluator) send(message string) value.Value {
	req, res, tm, err := e.client.Send(message)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return value.Map(map[string]value.Value{
		"request":  toRecordRequest(req).Value(),
		"response": toRecordResponse(res).Value(),
		"time":     timeValue(tm),
		"error":    value.String(errMsg),
	})
}

// timeValue projects an httpclient.Time's phase durations, in nanoseconds,
// the same way record's duration fields are projected as plain Integers.
func timeValue(tm httpclient.Time) value.Value {
	return value.Map(map[string]value.Value{
		"resolve": value.Integer(int64(tm.Resolve)),
		"connect": value.Integer(int64(tm.Connect)),
		"write":   value.Integer(int64(tm.Write)),
		"delay":   value.Integer(int64(tm.Delay)),
		"read":    value.Integer(int64(tm.Read)),
		"total":   value.Integer(int64(tm.Total)),
	})
}

func toRecordRequest(req httpclient.Request) record.Request {
	return record.Request{
		Method:  req.Method,
		URL:     req.URL,
		Version: req.Version,
		Headers: toRecordPairs(req.Headers),
		Fields:  toRecordFields(req.Fields),
		Content: req.Content,
	}
}

func toRecordResponse(res httpclient.Response) record.Response {
	return record.Response{
		Version: res.Version,
		Status:  res.Status,
		Reason:  res.Reason,
		Headers: toRecordPairs(res.Headers),
		Content: res.Content,
	}
}

func toRecordPairs(headers []httpclient.Header) []record.Pair {
	pairs := make([]record.Pair, len(headers))
	for i, h := range headers {
		pairs[i] = record.Pair{Name: h.Name, Value: h.Value}
	}
	return pairs
}

func toRecordFields(fields []httpclient.Field) []record.Pair {
	pairs := make([]record.Pair, len(fields))
	for i, f := range fields {
		pairs[i] = record.Pair{Name: f.Name, Value: f.Value}
	}
	return pairs
}
