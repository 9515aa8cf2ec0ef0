package flowgraph

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/bytedance/sonic"
)

// Reducer merges a node's update for one field into the current value.
// It must not mutate either argument.
type Reducer func(current, update any) (any, error)

// Overwrite replaces the current value with the update. It is the default policy.
func Overwrite(_, update any) (any, error) {
	return update, nil
}

// AddInt accumulates integers: the result is current + update.
// Nodes using it report only their own increment.
func AddInt(current, update any) (any, error) {
	cur, ok := current.(int)
	if !ok && current != nil {
		return nil, fmt.Errorf("%w: accumulate needs int, have %T", ErrFieldType, current)
	}
	inc, ok := update.(int)
	if !ok {
		return nil, fmt.Errorf("%w: accumulate needs int, got %T", ErrFieldType, update)
	}
	return cur + inc, nil
}

// Field declares one entry of a state shape.
type Field struct {
	// Name is the state key.
	Name string

	// Default is the initial value. Its dynamic type is the field's declared
	// type: updates must carry the same type, and decoding restores it.
	// A nil Default leaves the field untyped.
	Default any

	// Reducer is the merge policy. Nil means Overwrite.
	Reducer Reducer
}

// Schema is the state shape of a graph: the set of declared fields and
// the merge policy of each. It is immutable once built.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema creates a schema from the given fields.
//
// Panics if a field name is empty or declared twice.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			panic("flowgraph: schema field name cannot be empty")
		}
		if _, exists := s.fields[f.Name]; exists {
			panic(fmt.Sprintf("flowgraph: duplicate schema field: %s", f.Name))
		}
		if f.Reducer == nil {
			f.Reducer = Overwrite
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s
}

// Fields returns the declared field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// New returns a state holding every field's default, overwritten by the
// values in initial. Initial values bypass reducers: they seed the state.
func (s *Schema) New(initial State) (State, error) {
	state := make(State, len(s.fields))
	for _, name := range s.order {
		state[name] = s.fields[name].Default
	}
	for key, value := range initial {
		f, ok := s.fields[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndeclaredField, key)
		}
		if value == nil {
			continue
		}
		if err := checkType(f, value); err != nil {
			return nil, err
		}
		state[key] = value
	}
	return state, nil
}

// Apply merges a partial update into state according to each field's
// reducer and returns the merged state. Neither argument is modified.
// A nil value resets the field to its default without consulting the reducer.
func (s *Schema) Apply(state, update State) (State, error) {
	merged := state.Clone()
	for key, value := range update {
		f, ok := s.fields[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndeclaredField, key)
		}
		if value == nil {
			merged[key] = f.Default
			continue
		}
		if err := checkType(f, value); err != nil {
			return nil, err
		}
		next, err := f.Reducer(merged[key], value)
		if err != nil {
			return nil, fmt.Errorf("merge field %s: %w", key, err)
		}
		merged[key] = next
	}
	return merged, nil
}

// checkType verifies value matches the type of the field's default.
func checkType(f Field, value any) error {
	if f.Default == nil || value == nil {
		return nil
	}
	want := reflect.TypeOf(f.Default)
	got := reflect.TypeOf(value)
	if !got.AssignableTo(want) {
		return fmt.Errorf("%w: field %s wants %s, got %s", ErrFieldType, f.Name, want, got)
	}
	return nil
}

// Marshal encodes the declared fields of state as a JSON object.
// Undeclared keys are dropped.
func (s *Schema) Marshal(state State) ([]byte, error) {
	out := make(map[string]any, len(s.order))
	for _, name := range s.order {
		if v, ok := state[name]; ok {
			out[name] = v
		}
	}
	data, err := sonic.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializeState, err)
	}
	return data, nil
}

// Unmarshal decodes a JSON object produced by Marshal. Each declared field
// is restored to the Go type of its default, so Marshal followed by
// Unmarshal yields an equal state. Missing fields take their defaults.
func (s *Schema) Unmarshal(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	state := make(State, len(s.fields))
	for _, name := range s.order {
		f := s.fields[name]
		msg, ok := raw[name]
		if !ok {
			state[name] = f.Default
			continue
		}

		if f.Default == nil {
			var v any
			if err := sonic.Unmarshal(msg, &v); err != nil {
				return nil, fmt.Errorf("%w: field %s: %v", ErrDeserializeState, name, err)
			}
			state[name] = v
			continue
		}

		ptr := reflect.New(reflect.TypeOf(f.Default))
		if err := sonic.Unmarshal(msg, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrDeserializeState, name, err)
		}
		state[name] = ptr.Elem().Interface()
	}
	return state, nil
}
