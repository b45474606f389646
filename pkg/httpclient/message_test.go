package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessageGet(t *testing.T) {
	msg, err := ParseMessage("GET http://example.com/\r\nAccept: */*\r\n\r\n")
	assert.NoError(t, err)
	assert.Equal(t, "GET", msg.Method)
	assert.Equal(t, "http://example.com/", msg.URL)
	assert.Equal(t, []Header{{Name: "Accept", Value: "*/*"}}, msg.Headers)
	assert.Empty(t, msg.Content)
}

func TestParseMessagePostJSON(t *testing.T) {
	msg, err := ParseMessage("POST http://example.com/\r\nContent-Type: application/json\r\n\r\n{\"a\":1}")
	assert.NoError(t, err)
	assert.Equal(t, "POST", msg.Method)
	assert.Equal(t, "{\"a\":1}", msg.Content)
	assert.Empty(t, msg.Fields)
}

func TestParseMessagePostForm(t *testing.T) {
	msg, err := ParseMessage("POST http://example.com/\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\na: 1\r\nb: 2\r\n")
	assert.NoError(t, err)
	assert.Equal(t, []Field{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, msg.Fields)
}

func TestParseMessagePostMultipart(t *testing.T) {
	msg, err := ParseMessage("POST http://example.com/\r\nContent-Type: multipart/form-data\r\n\r\nname: joe\r\nf: @testdata/upload.txt\r\n")
	assert.NoError(t, err)
	assert.Equal(t, []Field{{Name: "name", Value: "joe"}, {Name: "f", Value: "@testdata/upload.txt"}}, msg.Fields)
	assert.True(t, msg.Fields[1].IsFile())
	assert.Equal(t, "testdata/upload.txt", msg.Fields[1].Path())
}

func TestParseMessageMalformed(t *testing.T) {
	_, err := ParseMessage("")
	assert.Error(t, err)

	_, err = ParseMessage("GET")
	assert.Error(t, err)
}
