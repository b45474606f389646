package evaluator

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basjoofan/am/pkg/httpclient"
	"github.com/basjoofan/am/pkg/parser"
	"github.com/basjoofan/am/pkg/value"
)

func run(t *testing.T, input string) value.Value {
	t.Helper()
	exprs, err := parser.New(input).Parse()
	assert.NoError(t, err, input)
	eval := New(httpclient.New(httpclient.Config{}))
	return eval.Run(exprs, value.NewContext())
}

func TestEvalIntegerExpr(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"5", 5},
		{"-5", -5},
		{"5 + 5 + 5 + 5 - 10", 10},
		{"2 * 2 * 2 * 2 * 2", 32},
		{"-50 + 100 + -50", 0},
		{"50 / 2 * 2 + 10", 60},
		{"2 * (5 + 10)", 30},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
	}
	for _, tt := range tests {
		got := run(t, tt.input)
		assert.Equal(t, value.IntegerKind, got.Kind, tt.input)
		assert.Equal(t, tt.expected, got.Integer, tt.input)
	}
}

func TestEvalFloatExpr(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"0.5", 0.5},
		{"1 + 0.10", 1.1},
		{"0.1 - 1", -0.9},
		{"5 / 0.2", 25.0},
	}
	for _, tt := range tests {
		got := run(t, tt.input)
		assert.Equal(t, value.FloatKind, got.Kind, tt.input)
		assert.InDelta(t, tt.expected, got.Float, 1e-9, tt.input)
	}
}

func TestEvalIfExpr(t *testing.T) {
	assert.Equal(t, int64(10), run(t, "if (true) { 10 }").Integer)
	assert.Equal(t, value.NoneKind, run(t, "if (false) { 10 }").Kind)
	assert.Equal(t, int64(20), run(t, "if (1 > 2) { 10 } else { 20 }").Integer)
}

func TestEvalLetExpr(t *testing.T) {
	assert.Equal(t, int64(5), run(t, "let a = 5; a;").Integer)
	assert.Equal(t, int64(15), run(t, "let a = 5; let b = a; let c = a + b + 5; c;").Integer)
}

func TestEvalReturnExpr(t *testing.T) {
	assert.Equal(t, int64(10), run(t, "return 10; 9;").Integer)
	assert.Equal(t, int64(10), run(t, "if (10 > 1) { if (10 > 1) { return 10; } return 1; }").Integer)
}

func TestEvalFunctionCall(t *testing.T) {
	assert.Equal(t, int64(5), run(t, "let identity = fn(x) { x; }; identity(5);").Integer)
	assert.Equal(t, int64(5), run(t, "let identity = fn(x) { return x; }; identity(5);").Integer)
	assert.Equal(t, int64(10), run(t, "let double = fn(x) { x * 2; }; double(5);").Integer)
	assert.Equal(t, int64(20), run(t, "let add = fn(x, y) { x + y; }; add(5 + 5, add(5, 5));").Integer)
	assert.Equal(t, int64(5), run(t, "fn(x) { x; }(5)").Integer)
}

func TestEvalEnclosingContext(t *testing.T) {
	text := `
	let first = 10;
	let second = 10;
	let third = 10;
	let ourFunction = fn(first) {
		let second = 20;
		first + second + third;
	};
	ourFunction(20) + first + second;
	`
	assert.Equal(t, int64(70), run(t, text).Integer)
}

func TestEvalClosure(t *testing.T) {
	text := `
	let newAdder = fn(x) {
		fn(y) { x + y };
	};
	let addTwo = newAdder(2);
	addTwo(2);
	`
	assert.Equal(t, int64(4), run(t, text).Integer)
}

func TestEvalArrayAndIndex(t *testing.T) {
	got := run(t, "[1, 2 * 2, 3 + 3]")
	assert.Equal(t, []value.Value{value.Integer(1), value.Integer(4), value.Integer(6)}, got.Array)

	assert.Equal(t, int64(3), run(t, "[1, 2, 3][2]").Integer)
	assert.Equal(t, value.NoneKind, run(t, "[1, 2, 3][3]").Kind)
}

func TestEvalMapAndField(t *testing.T) {
	got := run(t, `{"foo": 5}["foo"]`)
	assert.Equal(t, int64(5), got.Integer)

	got = run(t, `{"foo": 5}.foo`)
	assert.Equal(t, int64(5), got.Integer)

	assert.Equal(t, value.NoneKind, run(t, `{"foo": 5}.bar`).Kind)
}

func TestEvalNativeFunctions(t *testing.T) {
	assert.Equal(t, int64(0), run(t, `length("")`).Integer)
	assert.Equal(t, int64(4), run(t, `length("four")`).Integer)
	assert.True(t, run(t, `length(1)`).IsError())
}

func TestEvalRequestExpr(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	text := fmt.Sprintf(`
	rq request`+"`"+`
      GET %s/get
      Connection: close
    `+"`"+`[status == 200];
	let response = request();
	response.status`, server.URL)

	eval := New(httpclient.New(httpclient.Config{}))
	exprs, err := parser.New(text).Parse()
	assert.NoError(t, err)
	got := eval.Run(exprs, value.NewContext())
	assert.Equal(t, int64(200), got.Integer)
	assert.Len(t, eval.Records, 1)
	assert.True(t, eval.Records[0].Asserts[0].Result)
}
