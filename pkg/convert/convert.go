// Package convert normalizes raw survey cells into typed values.
//
// Every cell loaded from a datafile is a string. Convert maps each string to
// exactly one of four variants: Int when it parses as a number with no
// fractional part, Float when it parses with one, Missing when it is empty,
// and Str otherwise. The mapping is total; no input raises.
package convert

import (
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindMissing marks an empty cell.
	KindMissing Kind = iota
	// KindInt marks a numeric cell with no fractional part.
	KindInt
	// KindFloat marks a numeric cell with a fractional part.
	KindFloat
	// KindStr marks a non-numeric, non-empty cell.
	KindStr
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	default:
		return "unknown"
	}
}

// Value is the tagged union produced by Convert. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
}

// Missing is the value for an empty cell.
var Missing = Value{Kind: KindMissing}

// IntValue wraps an integer.
func IntValue(n int64) Value { return Value{Kind: KindInt, Int: n} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StrValue wraps a string.
func StrValue(s string) Value { return Value{Kind: KindStr, Str: s} }

// Convert maps a raw cell to a typed value. It is pure and total: the same
// input always produces the same variant and no input can fail.
func Convert(raw string) Value {
	if len(raw) == 0 {
		return Missing
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return StrValue(raw)
	}

	if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return IntValue(int64(f))
	}
	return FloatValue(f)
}

// IsNumeric reports whether the raw cell parses as a number. Missing cells
// are not numeric.
func IsNumeric(raw string) bool {
	if len(raw) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

// IsMissing reports whether the value is the Missing variant.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String re-stringifies the value. Converting the result again yields the
// same variant and numeric payload for Int and Float values.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindStr:
		return v.Str
	default:
		return ""
	}
}

// AsFloat returns the numeric payload for Int and Float values.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Interface returns the payload as an untyped value for serialization: int64,
// float64, string, or nil for Missing.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindStr:
		return v.Str
	default:
		return nil
	}
}
