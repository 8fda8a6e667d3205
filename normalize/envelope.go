package normalize

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrMalformed is returned when a response body is not JSON at all.
var ErrMalformed = errors.New("malformed response body")

// DefaultKeys are the wrapper keys tried, in order, when a collection
// response is an object instead of a bare array.
var DefaultKeys = []string{"data", "battles", "bets", "contestants", "items", "users", "listings"}

// Collection decodes a list response. Known shapes are tried in priority
// order: bare array, then each wrapper key. A {message} body, null, an empty
// body and unknown shapes all yield an empty sequence.
func Collection(raw []byte, keys ...string) ([]map[string]any, error) {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	v, err := decode(raw)
	if err != nil {
		return []map[string]any{}, err
	}
	return collect(v, keys), nil
}

// Object decodes a single-object response. Non-object bodies yield an empty map.
func Object(raw []byte) (map[string]any, error) {
	v, err := decode(raw)
	if err != nil {
		return map[string]any{}, err
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}

// List extracts a nested list field from an already decoded object.
func List(v any) []map[string]any {
	return collect(v, nil)
}

func decode(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

func collect(v any, keys []string) []map[string]any {
	switch x := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		for _, k := range keys {
			if arr, ok := x[k].([]any); ok {
				return collect(arr, nil)
			}
		}
	}
	return []map[string]any{}
}
