package engine

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/zubr/guzzle/value"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// NumberConv turns the literal text of a number token into a scalar payload.
type NumberConv func(string) (any, error)

// JSONNumber keeps numbers as json.Number so no precision is lost.
func JSONNumber(s string) (any, error) { return json.Number(s), nil }

// Float64 parses numbers into float64.
func Float64(s string) (any, error) { return strconv.ParseFloat(s, 64) }

// Decode builds a value.Value from the token stream. Object keys keep the order
// in which the source produced them; a repeated key overwrites in place.
// An empty source decodes to Null.
func Decode(src TokenSource, conv NumberConv) (value.Value, error) {
	if conv == nil {
		conv = JSONNumber
	}
	tok, err := src.NextToken()
	if err == io.EOF {
		return value.Null(), nil
	}
	if err != nil {
		return value.Null(), err
	}
	return decodeValue(src, tok, conv)
}

func decodeValue(src TokenSource, tok Token, conv NumberConv) (value.Value, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src, conv)
	case KindBeginArray:
		return decodeArray(src, conv)
	case KindString:
		return value.String(tok.String), nil
	case KindNumber:
		n, err := conv(tok.Number)
		if err != nil {
			return value.Null(), err
		}
		return value.Scalar(n), nil
	case KindBool:
		return value.Scalar(tok.Bool), nil
	case KindNull:
		return value.Null(), nil
	default:
		return value.Null(), io.ErrUnexpectedEOF
	}
}

func decodeObject(src TokenSource, conv NumberConv) (value.Value, error) {
	m := value.NewMap(0)
	for {
		tok, err := src.NextToken()
		if err != nil {
			return value.Null(), unexpected(err)
		}
		if tok.Kind == KindEndObject {
			return value.Object(m), nil
		}
		if tok.Kind != KindKey {
			return value.Null(), io.ErrUnexpectedEOF
		}
		vt, err := src.NextToken()
		if err != nil {
			return value.Null(), unexpected(err)
		}
		v, err := decodeValue(src, vt, conv)
		if err != nil {
			return value.Null(), err
		}
		m.Set(tok.String, v)
	}
}

func decodeArray(src TokenSource, conv NumberConv) (value.Value, error) {
	items := []value.Value{}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return value.Null(), unexpected(err)
		}
		if tok.Kind == KindEndArray {
			return value.Seq(items...), nil
		}
		v, err := decodeValue(src, tok, conv)
		if err != nil {
			return value.Null(), err
		}
		items = append(items, v)
	}
}

// unexpected maps a premature EOF inside a container to io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
