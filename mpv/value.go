package mpv

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Scalar is the closed set of types a property can be read as.
type Scalar interface {
	int64 | uint64 | float64 | bool
}

// Coerce converts a raw JSON value to T. Integers only accept integral numbers
// within range; float64 accepts any number; bool accepts only JSON booleans.
func Coerce[T Scalar](raw json.RawMessage) (T, bool) {
	var zero T

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return zero, false
	}

	var out any
	switch any(zero).(type) {
	case bool:
		b, ok := v.(bool)
		if !ok {
			return zero, false
		}
		out = b
	case int64:
		n, ok := v.(json.Number)
		if !ok {
			return zero, false
		}
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return zero, false
		}
		out = i
	case uint64:
		n, ok := v.(json.Number)
		if !ok {
			return zero, false
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return zero, false
		}
		out = u
	case float64:
		n, ok := v.(json.Number)
		if !ok {
			return zero, false
		}
		f, err := n.Float64()
		if err != nil {
			return zero, false
		}
		out = f
	}

	return out.(T), true
}
