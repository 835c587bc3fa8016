package visitor

import (
	"strings"

	"github.com/zubr/guzzle/response"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

const headerState = "header.matched"

// HeaderVisitor extracts fields from response headers. Headers are read from
// the Scope's response; the only per-parse state is the set of header names
// matched or written so far, keyed in lower case.
type HeaderVisitor struct{}

// Before starts tracking matched header names for this parse.
func (HeaderVisitor) Before(s *Scope, _ *schema.Parameter) error {
	if _, ok := s.Get(headerState); !ok {
		s.Set(headerState, map[string]struct{}{})
	}
	return nil
}

// After drops the tracked names.
func (HeaderVisitor) After(s *Scope, _ *schema.Parameter, _ *value.Value) error {
	s.Delete(headerState)
	return nil
}

func headerMatched(s *Scope) map[string]struct{} {
	if v, ok := s.Get(headerState); ok {
		return v.(map[string]struct{})
	}
	return map[string]struct{}{}
}

// Visit stores the header named by p's wire key under p's name, then applies
// p's additional properties policy to the remaining headers:
//
//   - Allow copies every header, the one matched by this visit included,
//     keyed by its raw name and filtered with p's own filters. Headers
//     matched or written by earlier visits of the same parse are skipped.
//     Other collisions resolve last write wins.
//   - A nested schema combined with a wire key treats the wire key as a
//     case-insensitive prefix. Matching headers are stored under
//     result[p.Name], keyed by the part of the name after the prefix.
//   - A nested schema without a wire key copies the headers no earlier visit
//     matched, keyed by raw name and filtered with the nested schema. A whole
//     visit also skips the wire keys of p's declared properties. The copied
//     names count as matched for later visits.
//   - Deny copies nothing.
func (HeaderVisitor) Visit(s *Scope, p *schema.Parameter, result *value.Value, whole bool) error {
	h := s.Response.Header
	matched := headerMatched(s)
	key := p.WireName()
	found := key != "" && h.Has(key)
	if found {
		v, err := p.Filter(headerValue(h.Values(key)))
		if err != nil {
			return atPath(err, "header:"+key)
		}
		result.Put(p.Name, v)
	}

	var err error
	switch add := p.AdditionalProperties; add.Mode {
	case schema.AdditionalAllow:
		err = copyHeaders(h, p, result, matched, nil, false)
	case schema.AdditionalSchema:
		if key == "" {
			var declared map[string]struct{}
			if whole {
				declared = make(map[string]struct{}, len(p.Properties))
				for _, prop := range p.Properties {
					declared[strings.ToLower(prop.WireName())] = struct{}{}
				}
			}
			err = copyHeaders(h, add.Schema, result, matched, declared, true)
			break
		}
		err = prefixed(h, p, add.Schema, key, result)
	}
	if err != nil {
		return err
	}
	if found {
		matched[strings.ToLower(key)] = struct{}{}
	}
	return nil
}

// prefixed collects the headers starting with prefix under result[p.Name].
func prefixed(h *response.Header, p, nested *schema.Parameter, prefix string, result *value.Value) error {
	out := value.Object(nil)
	if cur, ok := existing(result, p.Name); ok {
		out.Merge(cur)
	}
	lower := strings.ToLower(prefix)
	var err error
	h.Range(func(name string, vs []string) bool {
		if len(name) <= len(lower) || strings.ToLower(name[:len(lower)]) != lower {
			return true
		}
		var v value.Value
		if v, err = nested.Filter(headerValue(vs)); err != nil {
			err = atPath(err, "header:"+name)
			return false
		}
		out.Put(name[len(lower):], v)
		return true
	})
	if err != nil {
		return err
	}
	if p.Name == "" {
		result.Merge(out)
	} else {
		result.Put(p.Name, out)
	}
	return nil
}

// copyHeaders copies every header not in matched or skip into result,
// filtered with p. With mark set the copied names are added to matched.
func copyHeaders(h *response.Header, p *schema.Parameter, result *value.Value, matched, skip map[string]struct{}, mark bool) error {
	var err error
	h.Range(func(name string, vs []string) bool {
		lower := strings.ToLower(name)
		if _, ok := matched[lower]; ok {
			return true
		}
		if _, ok := skip[lower]; ok {
			return true
		}
		var v value.Value
		if v, err = p.Filter(headerValue(vs)); err != nil {
			err = atPath(err, "header:"+name)
			return false
		}
		result.Put(name, v)
		if mark {
			matched[lower] = struct{}{}
		}
		return true
	})
	return err
}

func existing(result *value.Value, name string) (value.Value, bool) {
	if name == "" || result.Map() == nil {
		return value.Value{}, false
	}
	v, ok := result.Map().Get(name)
	return v, ok && value.ObjectLike(v)
}

// headerValue collapses a single value to a scalar and keeps several values
// as a sequence.
func headerValue(vs []string) value.Value {
	if len(vs) == 1 {
		return value.String(vs[0])
	}
	items := make([]value.Value, len(vs))
	for i, v := range vs {
		items[i] = value.String(v)
	}
	return value.Seq(items...)
}

// StatusCodeVisitor stores the response status code as an integer.
type StatusCodeVisitor struct{}

func (StatusCodeVisitor) Before(*Scope, *schema.Parameter) error { return nil }

func (StatusCodeVisitor) After(*Scope, *schema.Parameter, *value.Value) error { return nil }

func (StatusCodeVisitor) Visit(s *Scope, p *schema.Parameter, result *value.Value, _ bool) error {
	v, err := p.Filter(value.Scalar(int64(s.Response.StatusCode)))
	if err != nil {
		return atPath(err, "status")
	}
	result.Put(p.Name, v)
	return nil
}

// ReasonPhraseVisitor stores the reason phrase of the status line.
type ReasonPhraseVisitor struct{}

func (ReasonPhraseVisitor) Before(*Scope, *schema.Parameter) error { return nil }

func (ReasonPhraseVisitor) After(*Scope, *schema.Parameter, *value.Value) error { return nil }

func (ReasonPhraseVisitor) Visit(s *Scope, p *schema.Parameter, result *value.Value, _ bool) error {
	v, err := p.Filter(value.String(s.Response.Reason))
	if err != nil {
		return atPath(err, "reason")
	}
	result.Put(p.Name, v)
	return nil
}
