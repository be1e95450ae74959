package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Value
	}{
		{"empty is missing", "", Missing},
		{"integer", "34", IntValue(34)},
		{"negative integer", "-7", IntValue(-7)},
		{"integral float collapses to int", "5.0", IntValue(5)},
		{"float", "3.14", FloatValue(3.14)},
		{"scientific notation", "1e3", IntValue(1000)},
		{"plain text", "strongly agree", StrValue("strongly agree")},
		{"whitespace is text", " ", StrValue(" ")},
		{"mixed alphanumeric", "4 stars", StrValue("4 stars")},
		{"zero", "0", IntValue(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.raw))
		})
	}
}

// Re-stringifying an Int or Float result and converting again must be stable.
func TestConvertIdempotent(t *testing.T) {
	inputs := []string{"34", "5.0", "-12", "3.14", "0.5", "1e3", "2.5e-2", "0"}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			first := Convert(raw)
			second := Convert(first.String())
			assert.Equal(t, first, second)
		})
	}
}

func TestConvertTotal(t *testing.T) {
	// Every string maps to exactly one variant; none may panic.
	inputs := []string{"", "x", "1", "1.5", "NaN", "-", "+", ".", "1.2.3", "\x00", "∞"}

	for _, raw := range inputs {
		v := Convert(raw)
		switch v.Kind {
		case KindMissing, KindInt, KindFloat, KindStr:
		default:
			t.Fatalf("Convert(%q) produced unknown kind %v", raw, v.Kind)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("42"))
	assert.True(t, IsNumeric("4.2"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("yes"))
}

func TestValueAccessors(t *testing.T) {
	f, ok := IntValue(3).AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = StrValue("a").AsFloat()
	assert.False(t, ok)

	assert.Nil(t, Missing.Interface())
	assert.Equal(t, int64(3), IntValue(3).Interface())
	assert.True(t, Missing.IsMissing())
	assert.Equal(t, "", Missing.String())
}
