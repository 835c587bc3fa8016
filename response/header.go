package response

import (
	"net/http"
	"strings"
)

// Header is a case-insensitive multimap of header fields. It keeps the first
// spelling seen for each name and the order in which names first appeared.
type Header struct {
	names  []string            // raw names, first-seen order
	index  map[string]int      // lowercase name -> position in names
	values map[string][]string // lowercase name -> values
}

// NewHeader returns an empty Header.
func NewHeader() *Header {
	return &Header{index: map[string]int{}, values: map[string][]string{}}
}

// HeaderFromHTTP copies an http.Header. Names are sorted because http.Header does
// not remember arrival order.
func HeaderFromHTTP(h http.Header) *Header {
	out := NewHeader()
	for _, name := range sortedKeys(h) {
		for _, v := range h[name] {
			out.Add(name, v)
		}
	}
	return out
}

// Add appends a value to name.
func (h *Header) Add(name, v string) {
	key := strings.ToLower(name)
	if _, ok := h.index[key]; !ok {
		h.index[key] = len(h.names)
		h.names = append(h.names, name)
	}
	h.values[key] = append(h.values[key], v)
}

// Set replaces all values of name.
func (h *Header) Set(name string, vs ...string) {
	key := strings.ToLower(name)
	if _, ok := h.index[key]; !ok {
		h.index[key] = len(h.names)
		h.names = append(h.names, name)
	}
	h.values[key] = append([]string(nil), vs...)
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Get returns the first value of name, or "".
func (h *Header) Get(name string) string {
	vs := h.Values(name)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values of name in arrival order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	return h.values[strings.ToLower(name)]
}

// Names lists raw header names in first-seen order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.names...)
}

// Len is the number of distinct names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Range calls fn for every name in order until fn returns false.
func (h *Header) Range(fn func(name string, values []string) bool) {
	if h == nil {
		return
	}
	for _, n := range h.names {
		if !fn(n, h.values[strings.ToLower(n)]) {
			return
		}
	}
}
