package dto

import (
	"bytes"
	"encoding/json"
)

// Optional carries a patch field together with whether the client sent it.
// A field absent from the JSON payload stays unset. A field present with
// null is set with T's zero value and Null marked, which for pointer types
// clears the field; services reject null for fields that cannot be cleared.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Nullable is implemented by every Optional.
type Nullable interface {
	IsNull() bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// IsNull reports whether the field was sent as an explicit null.
func (o Optional[T]) IsNull() bool {
	return o.Set && o.Null
}

// UnmarshalJSON is only invoked for keys present in the payload, which is
// what marks the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value, o.Set, o.Null = zero, true, true
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	o.Null = false
	return nil
}

// MarshalJSON writes the value, or null when unset.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
