package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Finite returns the value behind v and whether it is usable.
// A value is usable only when it is present and neither NaN nor infinite.
func Finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// ParseFinite parses user text into a finite number or nil.
// Blank text, "null", "-", unparseable text, NaN and Inf all yield nil.
func ParseFinite(s string) *float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nil", "-", "none":
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseSeries parses a comma-separated series where blank or "null" entries stay as gaps.
func ParseSeries(s string) []*float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	series := make([]*float64, len(parts))
	for i, p := range parts {
		series[i] = ParseFinite(p)
	}
	return series
}

// FormatFixed formats v with the given precision. Missing values render as "-".
func FormatFixed(v *float64, precision int) string {
	f, ok := Finite(v)
	if !ok {
		return "-"
	}
	if precision < 0 {
		precision = 0
	}
	return strconv.FormatFloat(f, 'f', precision, 64)
}

// Number is a loosely-typed numeric value coming from backend JSON.
// Numbers and numeric strings decode to a valid value. Anything else,
// including null, booleans and non-finite values, decodes to a missing value.
type Number struct {
	Value float64
	Valid bool
}

// NumberOf builds a valid Number.
func NumberOf(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Ptr returns the value as a pointer, nil when missing.
func (n Number) Ptr() *float64 {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return nil
	}
	v := n.Value
	return &v
}

// UnmarshalJSON never fails on malformed numeric content.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if p := ParseFinite(s); p != nil {
			*n = NumberOf(*p)
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = NumberOf(v)
	return nil
}

// MarshalJSON writes missing values as null.
func (n Number) MarshalJSON() ([]byte, error) {
	p := n.Ptr()
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*p)
}
