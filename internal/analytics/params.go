package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
)

// Params is the free-form "params" object of a task request. Form-driven
// clients send numbers as strings just as often as numbers, so the typed
// getters accept both.
type Params map[string]any

// Result is a task response body.
type Result map[string]any

func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value as a trimmed string; absent keys yield "".
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns a finite numeric param, def when absent or empty.
func (p Params) Float(key string, def float64) (float64, error) {
	f, err := p.float(key, def)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Invalid("%s must be a finite number", key)
	}
	return f, nil
}

func (p Params) float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, apperr.Invalid("%s must be a number", key)
		}
		return f, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, apperr.Invalid("%s must be a number", key)
		}
		return f, nil
	}
	return 0, apperr.Invalid("%s must be a number", key)
}

// Int is Float truncated toward zero; fractional input is rejected.
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, apperr.Invalid("%s must be an integer", key)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, apperr.Invalid("%s is out of range", key)
	}
	return int(f), nil
}

// IntIn is Int limited to [lo, hi]. Size params go through it so a single
// request cannot ask for an unbounded allocation.
func (p Params) IntIn(key string, def, lo, hi int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f < float64(lo) || f > float64(hi) {
		return 0, apperr.Invalid("%s must be between %d and %d", key, lo, hi)
	}
	if f != math.Trunc(f) {
		return 0, apperr.Invalid("%s must be an integer", key)
	}
	return int(f), nil
}

// Strings accepts a JSON list or a comma-separated string.
func (p Params) Strings(key string) []string {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, it := range t {
			raw = append(raw, fmt.Sprint(it))
		}
	case string:
		raw = strings.Split(t, ",")
	default:
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Object returns a nested object param, decoding it when sent as a JSON string.
func (p Params) Object(key string) map[string]any {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(t), &m) == nil {
			return m
		}
	}
	return nil
}

// Seed returns params.seed, falling back to def.
func (p Params) Seed(def int64) (int64, error) {
	n, err := p.Int("seed", int(def))
	return int64(n), err
}
