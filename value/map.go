package value

// Map is an insertion-ordered string-keyed collection. Replacing an existing key
// keeps its position; new keys are appended.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map with room for n entries.
func NewMap(n int) *Map {
	return &Map{keys: make([]string, 0, n), vals: make(map[string]Value, n)}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order. Callers must not mutate the returned slice.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Get looks up key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.vals[key]
	return ok
}

// Set stores v under key; last write wins.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Merge copies every entry of o into m in o's order; colliding keys are
// overwritten silently.
func (m *Map) Merge(o *Map) {
	for _, k := range o.Keys() {
		m.Set(k, o.vals[k])
	}
}

// Retain drops every entry whose key is not in keep.
func (m *Map) Retain(keep map[string]struct{}) {
	kept := m.keys[:0:0]
	for _, k := range m.keys {
		if _, ok := keep[k]; ok {
			kept = append(kept, k)
			continue
		}
		delete(m.vals, k)
	}
	m.keys = kept
}

// Clone returns a shallow copy; nested Values are shared.
func (m *Map) Clone() *Map {
	c := NewMap(m.Len())
	for _, k := range m.Keys() {
		c.Set(k, m.vals[k])
	}
	return c
}

// Range calls fn for each entry in order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	for _, k := range m.Keys() {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}
