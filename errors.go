package guzzle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zubr/guzzle/i18n"
)

// Issue codes.
const (
	CodeUnknownLocation    = "unknown_location"
	CodeResponseClass      = "response_class"
	CodeUnknownModel       = "unknown_model"
	CodeInvalidModel       = "invalid_model"
	CodeFilter             = "filter_error"
	CodeParseError         = "parse_error"
	CodeDuplicateKey       = "duplicate_key"
	CodeTruncated          = "truncated"
	CodeInvalidDescription = "invalid_description"
)

// Sentinels for errors.Is. An Issues error matches a sentinel when any of its
// entries carries the sentinel's code.
var (
	ErrUnknownLocation    error = sentinel(CodeUnknownLocation)
	ErrResponseClass      error = sentinel(CodeResponseClass)
	ErrUnknownModel       error = sentinel(CodeUnknownModel)
	ErrInvalidModel       error = sentinel(CodeInvalidModel)
	ErrFilter             error = sentinel(CodeFilter)
	ErrParse              error = sentinel(CodeParseError)
	ErrInvalidDescription error = sentinel(CodeInvalidDescription)
)

type sentinel string

func (s sentinel) Error() string { return "guzzle: " + string(s) }

// Issue is a single failure entry.
type Issue struct {
	Path    string // JSON Pointer into the document or schema, when known.
	Code    string
	Message string
	Cause   error
	// Params carries the details embedded in Message (location, class, ...).
	Params map[string]string
}

// Issues is a collection of failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		b.WriteString(it.Message)
		if it.Path != "" {
			fmt.Fprintf(b, " at %s", it.Path)
		}
		if it.Cause != nil {
			fmt.Fprintf(b, ": %v", it.Cause)
		}
	}
	if n := len(iss); n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Is matches the package sentinels by code.
func (iss Issues) Is(target error) bool {
	s, ok := target.(sentinel)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == string(s) {
			return true
		}
	}
	return false
}

// Unwrap exposes the causes so errors.Is/As reach through an Issues value.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// NewIssue builds a single-entry Issues with a localized message.
func NewIssue(code, path string, params map[string]string, cause error) Issues {
	return Issues{{Path: path, Code: code, Message: i18n.T(code, params), Cause: cause, Params: params}}
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// CodeOf returns the code of the first issue carried by err, or "" when err is
// not an Issues error.
func CodeOf(err error) string {
	if iss, ok := AsIssues(err); ok && len(iss) > 0 {
		return iss[0].Code
	}
	return ""
}
