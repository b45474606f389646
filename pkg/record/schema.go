package record

import "github.com/hamba/avro/v2"

// Schema is the Avro schema every Row encodes against: one flat record per
// captured round trip, suitable for appending to a columnar log.
const Schema = `
{
	"name": "record",
	"type": "record",
	"fields": [
		{"name": "trace_id", "type": "string", "logicalType": "uuid"},
		{"name": "start_time", "type": "long", "logicalType": "timestamp-micros"},
		{"name": "end_time", "type": "long", "logicalType": "timestamp-micros"},
		{"name": "duration", "type": "long"},
		{"name": "request_method", "type": "string"},
		{"name": "request_url", "type": "string"},
		{"name": "request_version", "type": "string"},
		{"name": "request_headers", "type": {"type": "array", "items": {"type": "array", "items": "string"}}},
		{"name": "request_fields", "type": {"type": "array", "items": {"type": "array", "items": "string"}}},
		{"name": "request_content", "type": "string"},
		{"name": "response_version", "type": "string"},
		{"name": "response_status", "type": "int"},
		{"name": "response_reason", "type": "string"},
		{"name": "response_headers", "type": {"type": "array", "items": {"type": "array", "items": "string"}}},
		{"name": "response_body", "type": "string"},
		{"name": "asserts", "type":
			{
				"type": "array",
				"items": {
					"name": "assert",
					"type": "record",
					"fields": [
						{"name": "expression", "type": "string"},
						{"name": "left", "type": "string"},
						{"name": "comparison", "type": "string"},
						{"name": "right", "type": "string"},
						{"name": "result", "type": "boolean"}
					]
				}
			}
		},
		{"name": "error", "type": "string"}
	]
}
`

var schema = avro.MustParse(Schema)

// Row is the flat, avro-tagged shape Record.Row produces. A Writer appends
// Rows directly; the nested Pair/Assert types above stay Go-shaped for
// the rest of the package.
type Row struct {
	TraceID          string      `avro:"trace_id"`
	StartTime        int64       `avro:"start_time"`
	EndTime          int64       `avro:"end_time"`
	Duration         int64       `avro:"duration"`
	RequestMethod    string      `avro:"request_method"`
	RequestURL       string      `avro:"request_url"`
	RequestVersion   string      `avro:"request_version"`
	RequestHeaders   [][]string  `avro:"request_headers"`
	RequestFields    [][]string  `avro:"request_fields"`
	RequestContent   string      `avro:"request_content"`
	ResponseVersion  string      `avro:"response_version"`
	ResponseStatus   int32       `avro:"response_status"`
	ResponseReason   string      `avro:"response_reason"`
	ResponseHeaders  [][]string  `avro:"response_headers"`
	ResponseBody     string      `avro:"response_body"`
	Asserts          []AssertRow `avro:"asserts"`
	Error            string      `avro:"error"`
}

// AssertRow is one Avro-encoded assertion: left/right are rendered to
// their display strings, since the schema's assert record is untyped text
// rather than a union over every Value kind.
type AssertRow struct {
	Expression string `avro:"expression"`
	Left       string `avro:"left"`
	Comparison string `avro:"comparison"`
	Right      string `avro:"right"`
	Result     bool   `avro:"result"`
}

// Row projects the Record into its Avro-encodable flat form.
func (r *Record) Row() Row {
	asserts := make([]AssertRow, len(r.Asserts))
	for i, a := range r.Asserts {
		asserts[i] = AssertRow{
			Expression: a.Expression,
			Left:       a.Left.Display(),
			Comparison: a.Comparison,
			Right:      a.Right.Display(),
			Result:     a.Result,
		}
	}
	return Row{
		TraceID:         r.TraceID,
		StartTime:       r.StartTime.UnixMicro(),
		EndTime:         r.EndTime.UnixMicro(),
		Duration:        int64(r.Duration),
		RequestMethod:   r.Request.Method,
		RequestURL:      r.Request.URL,
		RequestVersion:  r.Request.Version,
		RequestHeaders:  pairsToRows(r.Request.Headers),
		RequestFields:   pairsToRows(r.Request.Fields),
		RequestContent:  r.Request.Content,
		ResponseVersion: r.Response.Version,
		ResponseStatus:  int32(r.Response.Status),
		ResponseReason:  r.Response.Reason,
		ResponseHeaders: pairsToRows(r.Response.Headers),
		ResponseBody:    r.Response.Content,
		Asserts:         asserts,
		Error:           r.Error,
	}
}

func pairsToRows(pairs []Pair) [][]string {
	out := make([][]string, len(pairs))
	for i, p := range pairs {
		out[i] = []string{p.Name, p.Value}
	}
	return out
}

// Marshal encodes a Row against Schema, ready to append to a Writer.
func Marshal(row Row) ([]byte, error) {
	return avro.Marshal(schema, row)
}
