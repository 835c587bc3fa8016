package guzzle

import (
	"bytes"
	"errors"
	"io"

	eng "github.com/zubr/guzzle/internal/engine"
	"github.com/zubr/guzzle/source/gojson"
	"github.com/zubr/guzzle/value"
)

// DecodeJSON decodes a response body into an ordered document. Blank input
// decodes to Null. Decoding failures are reported as Issues so they surface
// before any schema-driven parsing starts.
func DecodeJSON(data []byte, opts ...ParseOpt) (value.Value, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return value.Null(), NewIssue(CodeTruncated, "", nil, nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return value.Null(), nil
	}
	return decodeFrom(gojson.NewBytes(data), opt)
}

// DecodeJSONReader reads r fully (bounded by MaxBytes when set) and decodes it.
func DecodeJSONReader(r io.Reader, opts ...ParseOpt) (value.Value, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 {
		r = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return value.Null(), NewIssue(CodeParseError, "", nil, err)
	}
	return DecodeJSON(data, opt)
}

func decodeFrom(src eng.TokenSource, opt ParseOpt) (value.Value, error) {
	var sink func(eng.SimpleIssue)
	if opt.OnIssue != nil {
		sink = func(si eng.SimpleIssue) {
			opt.OnIssue(Issue{Path: si.Path, Code: si.Code, Message: si.Message})
		}
	}
	enforced := eng.WrapWithEnforcement(src, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		IssueSink:   sink,
	})
	conv := eng.JSONNumber
	if opt.NumberMode == NumberFloat64 {
		conv = eng.Float64
	}
	doc, err := eng.Decode(enforced, conv)
	if err != nil {
		return value.Null(), toIssues(err)
	}
	// trailing garbage after the first document is malformed input
	if _, err := enforced.NextToken(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return value.Null(), NewIssue(CodeParseError, "", nil, err)
	}
	return doc, nil
}

func toIssues(err error) Issues {
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return Issues{{Code: ie.Code, Path: ie.Path, Message: ie.Message}}
	}
	return NewIssue(CodeParseError, "", nil, err)
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

func lastOpt(opts []ParseOpt) ParseOpt {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return ParseOpt{}
}
