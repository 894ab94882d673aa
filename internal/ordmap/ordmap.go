// Package ordmap provides an insertion-order-preserving string map.
//
// The build pipeline relies on insertion order throughout: property
// contexts are assembled by a sequence of writers where earlier writes win,
// and XML attribute emission must be deterministic across builds. A plain
// Go map gives neither guarantee.
package ordmap

// Map is a string-to-string map that remembers the order keys were first
// inserted in. It is not safe for concurrent use.
type Map struct {
	keys   []string
	values map[string]string
}

// New returns an empty Map.
func New() *Map {
	return &Map{values: make(map[string]string)}
}

// FromMap builds a Map from a plain map, ordering keys by the order they
// appear when ranging (callers that care about determinism should prefer
// Set in a known order instead).
func FromMap(m map[string]string) *Map {
	o := New()
	for k, v := range m {
		o.Set(k, v)
	}
	return o
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	if m == nil {
		return New()
	}
	c := &Map{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// GetOr returns the value for key, or def if absent.
func (m *Map) GetOr(key, def string) string {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key is present with a non-empty value, matching the
// condition-evaluator's notion of "set".
func (m *Map) Has(key string) bool {
	v, ok := m.Get(key)
	return ok && v != ""
}

// Set inserts or updates key. New keys are appended to the insertion order.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetIfAbsent sets key only if it is not already present, returning true if
// the write happened. This is the write-if-absent primitive the context
// builder (C7) uses for every step after the baseline copy.
func (m *Map) SetIfAbsent(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.Set(key, value)
	return true
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// ToMap returns a plain map copy, discarding order.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		out[k] = m.values[k]
	}
	return out
}
