// Package record captures one executed request/response round trip —
// wire-level request and response, elapsed timing, and the assertions
// evaluated against it — and projects it two ways: into a value.Value for
// in-language inspection, and into an Avro-encodable Row for durable
// storage.
package record

import (
	"time"

	"github.com/google/uuid"

	"github.com/basjoofan/am/pkg/value"
)

// Pair is an ordered header or form-field entry. Duplicate Names are kept
// in arrival order; Value projects them by folding same-named entries into
// an array.
type Pair struct {
	Name  string
	Value string
}

// Request is the request half of a captured round trip.
type Request struct {
	Method  string
	URL     string
	Version string
	Headers []Pair
	Fields  []Pair
	Content string
}

// Response is the response half of a captured round trip.
type Response struct {
	Version string
	Status  int
	Reason  string
	Headers []Pair
	Content string
}

// Assert is one evaluated assertion from a request literal's assertion list.
type Assert struct {
	Expression string
	Left       value.Value
	Comparison string
	Right      value.Value
	Result     bool
}

// Record is one captured round trip: timing, request, response, and every
// assertion run against it.
type Record struct {
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Request   Request
	Response  Response
	Asserts   []Assert
	Error     string
}

// Capture assembles a Record from one round trip's request/response,
// its start/end timestamps, and the asserts evaluated against it. A
// fresh trace id is minted on every call.
func Capture(start, end time.Time, req Request, res Response, asserts []Assert, errMsg string) *Record {
	return &Record{
		TraceID:   uuid.NewString(),
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Request:   req,
		Response:  res,
		Asserts:   asserts,
		Error:     errMsg,
	}
}

// Value projects the Record into a value.Value Map: duration, request,
// response, and asserts, each itself a Map or Array of Maps. (A request
// call in the evaluator returns and binds Response.Value, not this.)
func (r *Record) Value() value.Value {
	return value.Map(map[string]value.Value{
		"duration": value.Integer(int64(r.Duration)),
		"request":  r.Request.Value(),
		"response": r.Response.Value(),
		"asserts":  value.Array(assertsValue(r.Asserts)),
	})
}

func assertsValue(asserts []Assert) []value.Value {
	out := make([]value.Value, len(asserts))
	for i, a := range asserts {
		out[i] = value.Map(map[string]value.Value{
			"expression": value.String(a.Expression),
			"left":       a.Left,
			"comparison": value.String(a.Comparison),
			"right":      a.Right,
			"result":     value.Boolean(a.Result),
		})
	}
	return out
}

// Value projects Request fields, folding repeated header/field names into
// arrays the way a single-valued header and a multi-valued one are told
// apart in the calling language.
func (req Request) Value() value.Value {
	return value.Map(map[string]value.Value{
		"method":  value.String(req.Method),
		"url":     value.String(req.URL),
		"version": value.String(req.Version),
		"headers": pairsValue(req.Headers),
		"fields":  pairsValue(req.Fields),
		"content": value.String(req.Content),
	})
}

// Value projects Response fields the same way Request does. Content is kept
// as an opaque String; it is not parsed as JSON.
func (res Response) Value() value.Value {
	return value.Map(map[string]value.Value{
		"version": value.String(res.Version),
		"status":  value.Integer(int64(res.Status)),
		"reason":  value.String(res.Reason),
		"headers": pairsValue(res.Headers),
		"content": value.String(res.Content),
	})
}

func pairsValue(pairs []Pair) value.Value {
	folded := make(map[string][]value.Value)
	var order []string
	for _, p := range pairs {
		if _, seen := folded[p.Name]; !seen {
			order = append(order, p.Name)
		}
		folded[p.Name] = append(folded[p.Name], value.String(p.Value))
	}
	out := make(map[string]value.Value, len(order))
	for _, name := range order {
		out[name] = value.Array(folded[name])
	}
	return value.Map(out)
}
