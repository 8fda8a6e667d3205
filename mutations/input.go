package mutations

import (
	"math"
	"strings"

	"luchaserver/normalize"
)

// Input is the decoded body of an action request.
type Input map[string]any

func (in Input) Str(key string) string {
	return strings.TrimSpace(normalize.Str(in[key]))
}

// StrOr returns def when key is missing or blank.
func (in Input) StrOr(key, def string) string {
	if s := in.Str(key); s != "" {
		return s
	}
	return def
}

func (in Input) Int(key string) int {
	return normalize.Int(in[key])
}

// IntOr returns def when key is absent; an explicit 0 is kept.
func (in Input) IntOr(key string, def int) int {
	if _, ok := in[key]; !ok {
		return def
	}
	return in.Int(key)
}

func (in Input) Num(key string) float64 {
	return normalize.Num(in[key])
}

func (in Input) Bool(key string) bool {
	return normalize.Bool(in[key])
}

func (in Input) Has(key string) bool {
	v, ok := in[key]
	return ok && v != nil
}

// snap rounds amount to the nearest multiple of step.
func snap(amount float64, step int) int {
	return int(math.Round(amount/float64(step))) * step
}
