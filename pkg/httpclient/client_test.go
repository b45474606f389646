package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		w.Header().Set("X-Echo", "ok")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	client := New(Config{})
	req, res, tm, err := client.Send(fmt.Sprintf("GET %s/ping\r\n\r\n", server.URL))
	assert.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "pong", res.Content)
	assert.Equal(t, tm.Total, tm.Resolve+tm.Connect+tm.Write+tm.Delay+tm.Read)
}

func TestSendPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(Config{})
	message := fmt.Sprintf("POST %s/items\r\nContent-Type: application/json\r\n\r\n{\"a\":1}", server.URL)
	_, res, tm, err := client.Send(message)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, tm.Total, tm.Resolve+tm.Connect+tm.Write+tm.Delay+tm.Read)
}

func TestSendPostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "1", r.FormValue("a"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{})
	message := fmt.Sprintf("POST %s/form\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\na: 1\r\n", server.URL)
	_, res, _, err := client.Send(message)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestSendPostMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "joe", r.FormValue("name"))
		file, _, err := r.FormFile("f")
		assert.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "upload\n", string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(Config{})
	message := fmt.Sprintf("POST %s/upload\r\nContent-Type: multipart/form-data\r\n\r\nname: joe\r\nf: @testdata/upload.txt\r\n", server.URL)
	_, res, _, err := client.Send(message)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestSendConnectFailure(t *testing.T) {
	client := New(Config{})
	req, res, tm, err := client.Send("GET http://127.0.0.1:1\r\n\r\n")
	assert.Error(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, 0, res.Status)
	assert.True(t, tm.Total > 0)
}
