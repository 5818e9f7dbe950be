package invoicing

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Caller-produced invoices are loosely typed: numbers arrive as JSON numbers,
// numeric strings, null or garbage. The value types below never fail to
// decode; anything unusable decodes as the zero value.

// Amount is a decimal quantity or price.
type Amount struct {
	decimal.Decimal
}

// NewAmount creates an Amount from a float
func NewAmount(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Decimal = parseLenientDecimal(data)
	return nil
}

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Code is an integer identifier such as a tax type or stock link.
// Fractions and values outside int64 decode as 0.
type Code int64

var (
	minCode = decimal.NewFromInt(math.MinInt64)
	maxCode = decimal.NewFromInt(math.MaxInt64)
)

// UnmarshalJSON implements json.Unmarshaler
func (c *Code) UnmarshalJSON(data []byte) error {
	d := parseLenientDecimal(data)
	if !d.IsInteger() || d.LessThan(minCode) || d.GreaterThan(maxCode) {
		*c = 0
		return nil
	}
	*c = Code(d.IntPart())
	return nil
}

// Int64 returns the code as int64
func (c Code) Int64() int64 {
	return int64(c)
}

// Text is free text such as a description or a date. Numbers and booleans
// keep their literal form; objects and arrays decode as "".
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), data[0] == '{', data[0] == '[':
		*t = ""
	default:
		*t = Text(unquote(data))
	}
	return nil
}

// String returns the text
func (t Text) String() string {
	return string(t)
}

// Flag is a boolean that also accepts 0/1 and their string forms.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(unquote(data))
	switch s {
	case "true", "1", "yes", "y":
		*f = true
	default:
		*f = false
	}
	return nil
}

func parseLenientDecimal(data []byte) decimal.Decimal {
	s := unquote(data)
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(data))
}
