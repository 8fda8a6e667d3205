package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Num coerces a loosely-typed JSON value to a number. Anything that is not
// a finite number (nil, "", "abc", objects) becomes 0.
func Num(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		f, _ = x.Float64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int is Num truncated toward zero.
func Int(v any) int {
	return int(Num(v))
}

// IntOr returns def when the coerced value is zero.
func IntOr(v any, def int) int {
	if n := Int(v); n != 0 {
		return n
	}
	return def
}

// Str coerces ids and names. Numeric ids are rendered without a trailing ".0".
func Str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case map[string]any, []any:
		return ""
	}
	return fmt.Sprint(v)
}

// StrOr returns def when the coerced value is empty.
func StrOr(v any, def string) string {
	if s := Str(v); s != "" {
		return s
	}
	return def
}

// Bool follows JavaScript truthiness.
func Bool(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	}
	return true
}

// FirstStr returns the first non-empty string among the given keys.
func FirstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := Str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// First returns the first present, non-null value among the given keys.
func First(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Last returns the last n characters of id, or id itself when shorter.
func Last(id string, n int) string {
	r := []rune(id)
	if len(r) <= n {
		return id
	}
	return string(r[len(r)-n:])
}
