package value

import (
	"sort"
	"strconv"
)

// ObjectLike reports whether v should be treated as an object when matched
// against an object schema: it must be a Map that is not shaped like a
// zero-based contiguous sequence.
//
// Classification rules:
//   - Seq is never object-like.
//   - An empty Map is object-like; the decoder distinguishes {} from [].
//   - A Map whose keys are exactly "0".."n-1" (any order) is sequence-shaped,
//     which is how list data arrives from hosts that model lists as maps.
//   - Sparse or non-canonical numeric keys ("0","2" or "00") are object-like.
func ObjectLike(v Value) bool {
	if v.kind != KindMap {
		return false
	}
	return !sequenceShaped(v.m)
}

// Elements returns the members of a composite in iteration order: the items of
// a Seq, the entries of a sequence-shaped Map by index, or the values of any
// other Map in key order. Scalars and Null have no elements.
func Elements(v Value) []Value {
	switch v.kind {
	case KindSeq:
		return v.items
	case KindMap:
		out := make([]Value, 0, v.m.Len())
		if sequenceShaped(v.m) {
			for i := 0; i < v.m.Len(); i++ {
				out = append(out, v.m.vals[strconv.Itoa(i)])
			}
			return out
		}
		for _, k := range v.m.keys {
			out = append(out, v.m.vals[k])
		}
		return out
	default:
		return nil
	}
}

func sequenceShaped(m *Map) bool {
	n := m.Len()
	if n == 0 {
		return false
	}
	for _, k := range m.keys {
		i, ok := canonicalIndex(k)
		if !ok || i >= n {
			return false
		}
	}
	// keys are unique, so n distinct indexes below n cover 0..n-1
	return true
}

func canonicalIndex(k string) (int, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(k)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Put stores x under key in the container v, turning v into a Map first when
// needed. A Seq receiver is re-keyed by index so no element is lost.
func (v *Value) Put(key string, x Value) {
	v.ensureMap()
	v.m.Set(key, x)
}

// Merge folds x into the container v with last-write-wins semantics.
//
//   - Map into anything: entries are copied over v (as a Map).
//   - Seq into Null, an empty Map or a Seq: elements are appended.
//   - Seq into a non-empty Map: elements are appended under integer keys
//     following the highest integer key already present.
//   - Null and scalars carry no entries and leave v untouched.
func (v *Value) Merge(x Value) {
	switch x.kind {
	case KindMap:
		v.ensureMap()
		v.m.Merge(x.m)
	case KindSeq:
		switch {
		case v.kind == KindSeq:
			v.items = append(append([]Value(nil), v.items...), x.items...)
		case v.kind == KindNull || (v.kind == KindMap && v.m.Len() == 0):
			*v = Seq(append([]Value(nil), x.items...)...)
		default:
			v.ensureMap()
			next := nextIndex(v.m)
			for _, it := range x.items {
				v.m.Set(strconv.Itoa(next), it)
				next++
			}
		}
	}
}

// Retain prunes a Map container down to the given keys. Other kinds are left
// untouched.
func (v *Value) Retain(keys []string) {
	if v.kind != KindMap {
		return
	}
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	v.m.Retain(keep)
}

func (v *Value) ensureMap() {
	switch v.kind {
	case KindMap:
		return
	case KindSeq:
		m := NewMap(len(v.items))
		for i, it := range v.items {
			m.Set(strconv.Itoa(i), it)
		}
		*v = Object(m)
	default:
		*v = Object(NewMap(0))
	}
}

func nextIndex(m *Map) int {
	idx := make([]int, 0, m.Len())
	for _, k := range m.keys {
		if i, ok := canonicalIndex(k); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}
	sort.Ints(idx)
	return idx[len(idx)-1] + 1
}
