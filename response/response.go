// Package response holds the parsed form of an HTTP response that the
// visitors read from: status line, header multimap and the decoded body.
package response

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/value"
)

// Response is an HTTP response with its body already decoded.
type Response struct {
	StatusCode int
	Reason     string
	Header     *Header
	Body       value.Value
}

// New builds a Response around an already decoded body.
func New(status int, header *Header, body value.Value) *Response {
	if header == nil {
		header = NewHeader()
	}
	return &Response{StatusCode: status, Reason: http.StatusText(status), Header: header, Body: body}
}

// FromHTTP reads and decodes the body of r and closes it.
func FromHTTP(r *http.Response, opts ...guzzle.ParseOpt) (*Response, error) {
	if r == nil {
		return nil, fmt.Errorf("response: nil *http.Response")
	}
	out := &Response{
		StatusCode: r.StatusCode,
		Reason:     reason(r),
		Header:     HeaderFromHTTP(r.Header),
		Body:       value.Null(),
	}
	if r.Body == nil {
		return out, nil
	}
	defer r.Body.Close()
	body, err := guzzle.DecodeJSONReader(r.Body, opts...)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// Read parses a raw HTTP/1.x response message, status line included, and
// decodes its body.
func Read(raw []byte, opts ...guzzle.ParseOpt) (*Response, error) {
	r, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return nil, fmt.Errorf("response: read: %w", err)
	}
	out, err := FromHTTP(r, opts...)
	if err != nil {
		return nil, err
	}
	// http.ReadResponse canonicalizes names; recover the raw spelling and order
	out.Header = rawHeader(raw, out.Header)
	return out, nil
}

func reason(r *http.Response) string {
	// Status is "200 OK"
	if _, text, ok := strings.Cut(r.Status, " "); ok {
		return text
	}
	return http.StatusText(r.StatusCode)
}

func rawHeader(raw []byte, parsed *Header) *Header {
	head, _, _ := bytes.Cut(raw, []byte("\r\n\r\n"))
	if bytes.Equal(head, raw) {
		head, _, _ = bytes.Cut(raw, []byte("\n\n"))
	}
	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	out := NewHeader()
	for _, line := range lines[1:] {
		name, v, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		out.Add(name, strings.TrimSpace(v))
	}
	if out.Len() == 0 {
		return parsed
	}
	return out
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
