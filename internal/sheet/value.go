// AngelaMos | 2026
// value.go

package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a single cell: string, number, boolean or null.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Null() Value            { return Value{} }

// Infer types a raw cell the way spreadsheet exports read back: numerics
// become numbers, TRUE/FALSE become booleans, everything else stays text.
func Infer(raw string) Value {
	trimmed := strings.TrimSpace(raw)

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}

	if trimmed != "" && looksNumeric(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Number(n)
		}
	}

	return String(raw)
}

// ParseFloat accepts things like "Inf" and "0x1p-2" which no spreadsheet
// means as a number.
func looksNumeric(s string) bool {
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (r == 'e' || r == 'E') && i > 0:
		default:
			return false
		}
	}
	return true
}

func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null()
	case bytes.Equal(data, []byte("true")):
		*v = Bool(true)
	case bytes.Equal(data, []byte("false")):
		*v = Bool(false)
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string cell: %w", err)
		}
		*v = String(s)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode cell %s: %w", data, err)
		}
		*v = Number(n)
	}

	return nil
}
