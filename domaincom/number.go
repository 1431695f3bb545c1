package domaincom

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a portal-formatted number such as "$1,250,000",
// "1,200 m²" or "$1.2m". The first number in s is used; it reports false
// when s holds no readable number.
func ParseNumber(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}

	var b strings.Builder
	if start > 0 && s[start-1] == '-' {
		b.WriteByte('-')
	}
	end := start
	for ; end < len(s); end++ {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' {
			b.WriteByte(c)
		} else if c != ',' {
			break
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	rest := strings.TrimLeft(s[end:], " ")
	switch {
	case hasUnitSuffix(rest, "k"):
		v *= 1e3
	case hasUnitSuffix(rest, "m"), strings.HasPrefix(rest, "mil"):
		v *= 1e6
	}
	return v, true
}

// hasUnitSuffix reports whether rest starts with unit and the unit is not
// the prefix of a longer word or an area unit.
func hasUnitSuffix(rest, unit string) bool {
	if !strings.HasPrefix(rest, unit) {
		return false
	}
	next := rest[len(unit):]
	if next == "" {
		return true
	}
	c := next[0]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80)
}

// flexFloat decodes a JSON number or a formatted numeric string.
// Values that cannot be read decode as an unset zero.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		f.value, f.set = ParseNumber(s)
	default:
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return nil
		}
		f.value, f.set = v, true
	}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// flexInt is a flexFloat rounded to the nearest integer.
type flexInt struct {
	flexFloat
}

func (i flexInt) int() int {
	return int(math.Round(i.value))
}

func (i flexInt) ptr() *int {
	if !i.set {
		return nil
	}
	v := i.int()
	return &v
}

// flexString decodes a JSON string or number as text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return nil
		}
		*s = flexString(v)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		return nil
	}
	*s = flexString(b)
	return nil
}

// flexBool decodes a JSON boolean, a "true"/"false" string or a number.
// Anything else decodes as false.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(string(s)))
	if err != nil {
		if n, ok := ParseNumber(string(s)); ok {
			v = n != 0
		}
	}
	*f = flexBool(v)
	return nil
}
