package flowgraph

import "maps"

// State is the data flowing through a graph: field name to value.
//
// Nodes receive a State by value and return a partial State as their update.
// Neither the engine nor well-behaved nodes mutate a State they were handed;
// slices and maps inside a State must be copied before being appended to.
type State map[string]any

// Clone returns a shallow copy of the state.
// Nested values are shared, not copied.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Has reports whether the field is present.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the string value for key, or "" if missing or not a string.
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the boolean value for key, or false if missing or not a bool.
func (s State) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Int returns the integer value for key, or 0 if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int only if there's no fractional part
func (s State) Int(key string) int {
	switch val := s[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return 0
}

// Strings returns a copy of the string slice for key.
// Returns nil if missing or not convertible.
//
// Accepts:
//   - []string: copied
//   - []any: each element must be a string
func (s State) Strings(key string) []string {
	switch val := s[key].(type) {
	case []string:
		if val == nil {
			return nil
		}
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, str)
		}
		return out
	}
	return nil
}

// Get returns the value for key as T, or the zero value of T if the field
// is missing or holds a different type.
func Get[T any](s State, key string) T {
	v, _ := s[key].(T)
	return v
}
