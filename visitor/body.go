package visitor

import (
	"strconv"

	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

const bodyState = "body.document"

// bodyDoc is the per-parse state of the body visitor: the document and the
// top-level keys matched or written so far.
type bodyDoc struct {
	doc     value.Value
	matched map[string]struct{}
}

func newBodyDoc(doc value.Value) *bodyDoc {
	return &bodyDoc{doc: doc, matched: map[string]struct{}{}}
}

// BodyVisitor extracts fields from the decoded response body.
type BodyVisitor struct{}

// Before captures the body document for this parse. Locations sharing the
// body visitor within one parse share the captured state.
func (BodyVisitor) Before(s *Scope, _ *schema.Parameter) error {
	if _, ok := s.Get(bodyState); !ok {
		s.Set(bodyState, newBodyDoc(s.Response.Body))
	}
	return nil
}

// After discards the captured document.
func (BodyVisitor) After(s *Scope, _ *schema.Parameter, _ *value.Value) error {
	s.Delete(bodyState)
	return nil
}

// state returns the captured document. Without Before the visit works on the
// response body alone and nothing is stored in the scope.
func state(s *Scope) *bodyDoc {
	if v, ok := s.Get(bodyState); ok {
		return v.(*bodyDoc)
	}
	return newBodyDoc(s.Response.Body)
}

// Visit extracts the node p from the captured document.
//
// An array node that is visited whole, or has no wire key, takes the entire
// document as its target. Any other node takes document[wire key] when the
// document is object-like. Independently, the visited node's own additional
// properties policy is applied to the top-level document entries:
//
//   - Allow merges the remaining entries raw and unfiltered, last write wins.
//     Remaining means not matched by this visit and not matched or written by
//     any earlier visit of the same parse, so a raw merge does not bring back
//     an entry another visit already extracted. Other collisions still
//     resolve last write wins.
//   - A nested schema processes every remaining entry and stores it under its
//     original key. A whole visit also skips the wire keys of p's declared
//     properties, which their own visits extract. The keys it writes count
//     as matched for later visits.
//   - Deny adds nothing.
//
// Raw document values are deep-copied into result, which never shares
// storage with the response body.
func (BodyVisitor) Visit(s *Scope, p *schema.Parameter, result *value.Value, whole bool) error {
	st := state(s)
	doc := st.doc
	key := p.WireName()

	switch {
	case p.Is(schema.TypeArray) && (whole || key == "" || p.SentAsEmpty()):
		v, err := Process(p, doc)
		if err != nil {
			return err
		}
		if whole || p.Name == "" {
			result.Merge(v)
		} else {
			result.Put(p.Name, v)
		}
	case key != "" && value.ObjectLike(doc):
		raw, ok := doc.Map().Get(key)
		if !ok {
			break
		}
		st.matched[key] = struct{}{}
		v, err := process(p, raw, joinPath("", key))
		if err != nil {
			return err
		}
		if p.Name == "" {
			result.Merge(v)
		} else {
			result.Put(p.Name, v)
		}
	}

	if !value.ObjectLike(doc) {
		return nil
	}
	switch add := p.AdditionalProperties; add.Mode {
	case schema.AdditionalAllow:
		rest := value.NewMap(doc.Len())
		doc.Map().Range(func(k string, raw value.Value) bool {
			if _, ok := st.matched[k]; !ok {
				rest.Set(k, raw.Clone())
			}
			return true
		})
		result.Merge(value.Object(rest))
	case schema.AdditionalSchema:
		var declared map[string]struct{}
		if whole {
			declared = declaredKeys(p)
		}
		var err error
		doc.Map().Range(func(k string, raw value.Value) bool {
			if _, ok := st.matched[k]; ok {
				return true
			}
			if _, ok := declared[k]; ok {
				return true
			}
			var v value.Value
			if v, err = process(add.Schema, raw, joinPath("", k)); err != nil {
				return false
			}
			result.Put(k, v)
			st.matched[k] = struct{}{}
			return true
		})
		return err
	}
	return nil
}

// declaredKeys collects the wire keys of p's declared properties.
func declaredKeys(p *schema.Parameter) map[string]struct{} {
	keys := make(map[string]struct{}, len(p.Properties))
	for _, prop := range p.Properties {
		keys[prop.WireName()] = struct{}{}
	}
	return keys
}

// Process shapes raw according to p, recursively.
//
//   - Null stays Null and skips the filters.
//   - A scalar goes through p's filters.
//   - An array node maps its item node over the elements of any composite and
//     filters the resulting sequence.
//   - An object node over an object-like value picks declared properties by
//     wire key in declaration order, applies the additional properties policy
//     to the keys left over, then filters the assembled map.
//   - Any other composite becomes an empty container before filtering. In
//     particular a sequence under an object node is never matched against
//     the declared properties.
func Process(p *schema.Parameter, raw value.Value) (value.Value, error) {
	return process(p, raw, "")
}

func process(p *schema.Parameter, raw value.Value, path string) (value.Value, error) {
	if p == nil {
		return raw.Clone(), nil
	}
	switch {
	case raw.IsNull():
		return raw, nil
	case !raw.IsComposite():
		v, err := p.Filter(raw)
		return v, atPath(err, path)
	case p.Is(schema.TypeArray):
		elems := value.Elements(raw)
		items := make([]value.Value, len(elems))
		for i, el := range elems {
			v, err := process(p.Items, el, joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		v, err := p.Filter(value.Seq(items...))
		return v, atPath(err, path)
	case p.Is(schema.TypeObject) && value.ObjectLike(raw):
		v, err := processObject(p, raw.Map(), path)
		if err != nil {
			return value.Null(), err
		}
		v, err = p.Filter(v)
		return v, atPath(err, path)
	default:
		empty := value.Seq()
		if p.Is(schema.TypeObject) {
			empty = value.Object(nil)
		}
		v, err := p.Filter(empty)
		return v, atPath(err, path)
	}
}

func processObject(p *schema.Parameter, src *value.Map, path string) (value.Value, error) {
	rest := src.Clone()
	out := value.Object(nil)
	for _, prop := range p.Properties {
		key := prop.WireName()
		raw, ok := rest.Get(key)
		if !ok {
			continue
		}
		v, err := process(prop, raw, joinPath(path, key))
		if err != nil {
			return value.Null(), err
		}
		out.Put(prop.Name, v)
		rest.Delete(key)
	}
	if rest.Len() == 0 {
		return out, nil
	}
	switch add := p.AdditionalProperties; add.Mode {
	case schema.AdditionalAllow:
		out.Merge(value.Object(rest).Clone())
	case schema.AdditionalSchema:
		var err error
		rest.Range(func(k string, raw value.Value) bool {
			var v value.Value
			if v, err = process(add.Schema, raw, joinPath(path, k)); err != nil {
				return false
			}
			out.Put(k, v)
			return true
		})
		if err != nil {
			return value.Null(), err
		}
	}
	return out, nil
}
