package httpclient

import (
	"strings"
)

// Header is one key/value pair from a raw request/response header list.
// Sequences preserve arrival order and may repeat a key.
type Header struct {
	Name  string
	Value string
}

// Field is one form field parsed from the body section of a request
// message. A Value prefixed with '@' names a file to upload as part of a
// multipart body.
type Field struct {
	Name  string
	Value string
}

// IsFile reports whether this field's value names a file to upload.
func (f Field) IsFile() bool { return strings.HasPrefix(f.Value, "@") }

// Path returns the file path for a file field with the leading '@'
// stripped.
func (f Field) Path() string { return strings.TrimPrefix(f.Value, "@") }

// Message is a parsed raw HTTP request message: method line, headers, and
// a body section that is either form fields (one `name: value` pair per
// line) or a raw content blob, depending on Content-Type.
type Message struct {
	Method  string
	URL     string
	Version string
	Headers []Header
	Fields  []Field
	Content string
}

// ContentType returns the Content-Type header's value, case-sensitively as
// written, or "" if absent.
func (m Message) ContentType() string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			return h.Value
		}
	}
	return ""
}

// ParseMessage parses the wire format described in the external interface:
//
//	METHOD URL [VERSION]
//	Header-Name: value
//	...
//	<blank line>
//	body-bytes-or-form-fields
//
// Content-Type selects whether the body section is read as form fields
// (one "name: value" per line, file fields prefixed "@path") or as a raw
// content blob.
func ParseMessage(text string) (Message, error) {
	lines := splitLines(text)

	var msg Message
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return msg, errEmptyMessage
	}

	fields := strings.Fields(strings.TrimSpace(lines[i]))
	if len(fields) < 2 {
		return msg, errMalformedStartLine
	}
	msg.Method = strings.ToUpper(fields[0])
	msg.URL = fields[1]
	if len(fields) > 2 {
		msg.Version = fields[2]
	}
	i++

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		i++
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		msg.Headers = append(msg.Headers, Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}

	formLike := isFormContentType(msg.ContentType())
	var body []string
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if formLike {
			name, value, ok := strings.Cut(line, ":")
			if ok {
				msg.Fields = append(msg.Fields, Field{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
				continue
			}
		}
		body = append(body, lines[i])
	}
	if len(body) > 0 {
		msg.Content = strings.Join(body, "\n")
	}
	return msg, nil
}

func isFormContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	// Leading indentation in triple-quoted source literals is common; the
	// original source's own request literals are indented. Trim a uniform
	// leading blank-line run without disturbing interior whitespace.
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return lines
}
