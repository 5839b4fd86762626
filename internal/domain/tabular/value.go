package tabular

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a single CSV cell: either a number or a piece of text.
// The zero Value is empty text, which is also how a missing cell reads.
type Value struct {
	num   float64
	text  string
	isNum bool
}

// Num wraps a float.
func Num(f float64) Value { return Value{num: f, isNum: true} }

// Text wraps a string verbatim.
func Text(s string) Value { return Value{text: s} }

// Parse turns a raw cell into a number when it parses as a finite one,
// text otherwise. "NaN" and "Inf" stay text so no statistic sees them.
func Parse(cell string) Value {
	if f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Num(f)
	}
	return Text(cell)
}

// FromAny converts a decoded JSON value, coercing numeric strings.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Text("")
	case float64:
		return Num(t)
	case int:
		return Num(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Num(f)
		}
		return Text(t.String())
	case bool:
		if t {
			return Num(1)
		}
		return Num(0)
	case string:
		return Parse(t)
	case Value:
		return t
	default:
		b, _ := json.Marshal(t)
		return Text(string(b))
	}
}

func (v Value) IsNum() bool { return v.isNum }

// Float returns the numeric payload; text yields 0.
func (v Value) Float() float64 {
	if !v.isNum {
		return 0
	}
	return v.num
}

// IsBlank reports whether the cell is empty or whitespace text.
func (v Value) IsBlank() bool {
	return !v.isNum && strings.TrimSpace(v.text) == ""
}

func (v Value) String() string {
	if !v.isNum {
		return v.text
	}
	return FormatFloat(v.num)
}

// Less orders numbers before text, numbers by magnitude and text lexically.
func Less(a, b Value) bool {
	if a.isNum != b.isNum {
		return a.isNum
	}
	if a.isNum {
		return a.num < b.num
	}
	return a.text < b.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.isNum {
		return json.Marshal(v.text)
	}
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.num)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FormatFloat renders integral values with a trailing ".0" so that numeric
// labels stay distinguishable from integer-looking text.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
