package plist

import (
	"sort"
)

// Document is an in-memory property-list dictionary.
type Document map[string]any

// New returns an empty document.
func New() Document {
	return make(Document)
}

// Clone returns a deep copy of the document. Transforms that want to stay
// pure can clone before mutating.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// String returns the string stored under key, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the boolean stored under key.
func (d Document) Bool(key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// Set stores value under key.
func (d Document) Set(key string, value any) {
	d[key] = value
}

// Delete removes key.
func (d Document) Delete(key string) {
	delete(d, key)
}

// Keys returns the document keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dict returns the nested dictionary stored under key, if any.
func (d Document) Dict(key string) (Document, bool) {
	switch t := d[key].(type) {
	case Document:
		return t, true
	case map[string]any:
		return Document(t), true
	}
	return nil, false
}

// Array returns the array stored under key. A []string value is widened.
func (d Document) Array(key string) ([]any, bool) {
	switch t := d[key].(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// StringArray returns the string members of the array stored under key.
func (d Document) StringArray(key string) []string {
	arr, _ := d.Array(key)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AppendUnique appends the given strings to the array under key, skipping
// values already present. Non-string members are kept.
func (d Document) AppendUnique(key string, values ...string) {
	arr, _ := d.Array(key)
	seen := make(map[string]bool, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			seen[s] = true
		}
	}
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		arr = append(arr, v)
	}
	d[key] = arr
}
