package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/basjoofan/am/pkg/value"
)

func TestValueFoldsRepeatedHeaders(t *testing.T) {
	req := Request{
		Method: "GET",
		URL:    "http://httpbin.org/get",
		Headers: []Pair{
			{Name: "set-cookie", Value: "a=1"},
			{Name: "set-cookie", Value: "b=2"},
			{Name: "host", Value: "httpbin.org"},
		},
	}
	v := req.Value()
	headers := v.Map["headers"].Map
	assert.Equal(t, []value.Value{value.String("a=1"), value.String("b=2")}, headers["set-cookie"].Array)
	assert.Equal(t, []value.Value{value.String("httpbin.org")}, headers["host"].Array)
}

func TestRecordRoundTrip(t *testing.T) {
	start := time.Unix(0, 0)
	req := Request{Method: "GET", URL: "http://httpbin.org/get", Version: "HTTP/1.1"}
	res := Response{Version: "HTTP/1.1", Status: 200, Reason: "OK", Content: "This is body"}
	asserts := []Assert{{
		Expression: "status == 200",
		Left:       value.Integer(200),
		Comparison: "==",
		Right:      value.Integer(200),
		Result:     true,
	}}
	r := Capture(start, start.Add(1234567), req, res, asserts, "")
	assert.NotEmpty(t, r.TraceID)

	v := r.Value()
	assert.Equal(t, int64(1234567), v.Map["duration"].Integer)
	assertValues := v.Map["asserts"].Array
	assert.Len(t, assertValues, 1)
	assert.True(t, assertValues[0].Map["result"].Boolean)

	row := r.Row()
	assert.Equal(t, "GET", row.RequestMethod)
	assert.Equal(t, int32(200), row.ResponseStatus)
	assert.Len(t, row.Asserts, 1)
	assert.Equal(t, "200", row.Asserts[0].Left)

	encoded, err := Marshal(row)
	assert.NoError(t, err)
	assert.NotEmpty(t, encoded)
}
