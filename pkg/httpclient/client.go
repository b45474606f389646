// Package httpclient sends a raw request message over the network and
// reports the round trip split into its DNS/connect/write/wait/read phases.
//
// The socket and TLS layers are net/http's own transport; this package only
// adds the raw-message parsing, multipart/form encoding, and phase timing a
// scripted request needs.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config bounds how long a single Send may spend connecting or waiting for
// a response. Zero means no timeout.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Request is the request half of a completed round trip, echoed back with
// whatever the transport actually sent (method/url/version as parsed,
// headers and fields as given, content as encoded onto the wire).
type Request struct {
	Method  string
	URL     string
	Version string
	Headers []Header
	Fields  []Field
	Content string
}

// Response is the response half of a completed round trip. Status is 0 and
// every other field is zero-valued when Send fails before a response is
// received.
type Response struct {
	Version string
	Status  int
	Reason  string
	Headers []Header
	Content string
}

// Time splits one round trip into its phases. Total is measured directly;
// Write is whatever Total doesn't otherwise account for, since net/http
// gives no direct hook for "time spent writing the request body" the way
// the other four phases are each bounded by a distinct trace callback.
type Time struct {
	Resolve time.Duration
	Connect time.Duration
	Write   time.Duration
	Delay   time.Duration
	Read    time.Duration
	Total   time.Duration
	End     time.Time
}

// Client sends raw request messages.
type Client struct {
	Config Config
	Logger zerolog.Logger
}

// New creates a Client with the given Config. Logging defaults to
// zerolog.Nop(); set Logger after construction to capture diagnostics.
func New(config Config) *Client {
	return &Client{Config: config, Logger: zerolog.Nop()}
}

// Send parses message as a raw request, performs the round trip, and
// reports timing. On any failure — malformed message, DNS, connect, write,
// or read — it returns the Request parsed so far, a zero Response, the
// Time accumulated up to the failure, and a non-nil error.
func (c *Client) Send(message string) (Request, Response, Time, error) {
	start := time.Now()
	var tm Time

	parsed, err := ParseMessage(message)
	if err != nil {
		tm.Total = time.Since(start)
		tm.End = time.Now()
		c.Logger.Error().Err(err).Msg("parse request message")
		return Request{}, Response{}, tm, errors.Wrap(err, "httpclient: parse message")
	}
	req := Request{
		Method:  parsed.Method,
		URL:     parsed.URL,
		Version: parsed.Version,
		Headers: parsed.Headers,
		Fields:  parsed.Fields,
	}

	body, contentType, err := encodeBody(parsed)
	if err != nil {
		tm.Total = time.Since(start)
		tm.End = time.Now()
		c.Logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("encode request body")
		return req, Response{}, tm, errors.Wrap(err, "httpclient: encode body")
	}
	req.Content = body.String()

	httpReq, err := http.NewRequest(req.Method, req.URL, bytes.NewReader(body.Bytes()))
	if err != nil {
		tm.Total = time.Since(start)
		tm.End = time.Now()
		c.Logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("build request")
		return req, Response{}, tm, err
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Name, h.Value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if c.Config.ReadTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Config.ReadTimeout)
		defer cancel()
	}

	var dnsStart, dnsDone, connectStart, connectDone, gotFirstByte time.Time
	trace := &httptrace.ClientTrace{
		DNSStart:             func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:              func(httptrace.DNSDoneInfo) { dnsDone = time.Now() },
		ConnectStart:         func(string, string) { connectStart = time.Now() },
		ConnectDone:          func(string, string, error) { connectDone = time.Now() },
		GotFirstResponseByte: func() { gotFirstByte = time.Now() },
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace))

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&timeoutDialer{connectTimeout: c.Config.ConnectTimeout}).dial,
		},
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		tm.Resolve = subSince(dnsDone, dnsStart)
		tm.Connect = subSince(connectDone, connectStart)
		tm.Total = time.Since(start)
		tm.End = time.Now()
		c.Logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("dial request")
		return req, Response{}, tm, errors.Wrap(err, "httpclient: dial")
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	readDone := time.Now()
	tm.End = readDone
	tm.Total = readDone.Sub(start)
	tm.Resolve = subSince(dnsDone, dnsStart)
	tm.Connect = subSince(connectDone, connectStart)
	if !gotFirstByte.IsZero() {
		tm.Delay = gotFirstByte.Sub(start) - tm.Resolve - tm.Connect
		tm.Read = readDone.Sub(gotFirstByte)
	} else {
		tm.Read = readDone.Sub(start) - tm.Resolve - tm.Connect
	}
	tm.Write = tm.Total - tm.Resolve - tm.Connect - tm.Delay - tm.Read
	if err != nil {
		c.Logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("read response body")
		return req, Response{}, tm, errors.Wrap(err, "httpclient: read body")
	}

	res := Response{
		Version: resp.Proto,
		Status:  resp.StatusCode,
		Reason:  http.StatusText(resp.StatusCode),
		Content: string(content),
	}
	for name, values := range resp.Header {
		for _, v := range values {
			res.Headers = append(res.Headers, Header{Name: name, Value: v})
		}
	}
	c.Logger.Info().Str("method", req.Method).Str("url", req.URL).Int("status", res.Status).Dur("total", tm.Total).Msg("sent request")
	return req, res, tm, nil
}

func subSince(done, start time.Time) time.Duration {
	if done.IsZero() || start.IsZero() {
		return 0
	}
	return done.Sub(start)
}

// encodeBody turns a parsed message's body section into the bytes to send
// and the Content-Type to use, choosing url-encoded form, multipart form
// (when any field names a file with "@path"), or the raw content blob.
func encodeBody(msg Message) (*bytes.Buffer, string, error) {
	if len(msg.Fields) == 0 {
		return bytes.NewBufferString(msg.Content), "", nil
	}
	hasFile := false
	for _, f := range msg.Fields {
		if f.IsFile() {
			hasFile = true
			break
		}
	}
	if !hasFile {
		values := url.Values{}
		for _, f := range msg.Fields {
			values.Add(f.Name, f.Value)
		}
		return bytes.NewBufferString(values.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range msg.Fields {
		if f.IsFile() {
			path := f.Path()
			file, err := os.Open(path)
			if err != nil {
				return nil, "", errors.Wrapf(err, "httpclient: open %s", path)
			}
			part, err := writer.CreateFormFile(f.Name, path)
			if err != nil {
				file.Close()
				return nil, "", err
			}
			if _, err := io.Copy(part, file); err != nil {
				file.Close()
				return nil, "", err
			}
			file.Close()
		} else if err := writer.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

type timeoutDialer struct {
	connectTimeout time.Duration
}

func (d *timeoutDialer) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.connectTimeout}
	return dialer.DialContext(ctx, network, addr)
}
