package integration

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a lenient numeric field. Suppliers send prices and counts as JSON
// numbers, quoted strings or ranges ("1.20 -- 3.40"); a range reads as its
// lower bound. Anything unparseable leaves Valid false instead of failing.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// NewNumber wraps a decimal
func NewNumber(d decimal.Decimal) Number {
	return Number{Value: d, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if d, ok := parseLeadingDecimal(s); ok {
		*n = NewNumber(d)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// Or returns the value, or def when the number is absent
func (n Number) Or(def decimal.Decimal) decimal.Decimal {
	if n.Valid {
		return n.Value
	}
	return def
}

// Int64 returns the integer part, or 0 when absent
func (n Number) Int64() int64 {
	if !n.Valid {
		return 0
	}
	return n.Value.IntPart()
}

func parseLeadingDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && c == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s[:end])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
