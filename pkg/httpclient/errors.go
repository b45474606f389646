package httpclient

import "errors"

var (
	errEmptyMessage       = errors.New("httpclient: empty request message")
	errMalformedStartLine = errors.New("httpclient: malformed start line, want \"METHOD URL [VERSION]\"")
)
