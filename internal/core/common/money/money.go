// Package money converts monetary amounts entered by people or returned by the
// payment gateway into integer cents.
//
// All conversions go through shopspring/decimal and round half away from zero,
// so 0.005 becomes 1 cent and -0.005 would become -1 (negatives are rejected
// before rounding anyway).
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents normalizes a free-form amount in major units ("1.234,56", "1234",
// "R$ 12,5") into cents. It returns false when the input is blank, has no
// digits, cannot be parsed or is negative.
//
// Any comma or period marks the input as a decimal amount: periods are
// thousands separators and the first comma is the decimal point. Without
// separators the digits are whole units.
func ToCents(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if isNegative(raw) {
		return 0, false
	}

	if strings.ContainsAny(raw, ",.") {
		normalized := keepOnly(raw, "0123456789,.")
		normalized = strings.ReplaceAll(normalized, ".", "")
		normalized = strings.Replace(normalized, ",", ".", 1)
		if !strings.ContainsAny(normalized, "0123456789") {
			return 0, false
		}
		if strings.HasPrefix(normalized, ".") {
			normalized = "0" + normalized
		}
		if strings.HasSuffix(normalized, ".") {
			normalized += "0"
		}
		d, err := decimal.NewFromString(normalized)
		if err != nil {
			return 0, false
		}
		return MajorToCents(d), true
	}

	digits := keepOnly(raw, "0123456789")
	if digits == "" {
		return 0, false
	}
	units, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || units > math.MaxInt64/100 {
		return 0, false
	}
	return units * 100, true
}

// ValueToCents accepts the loosely typed values found in JSON payloads: nil,
// strings, and numbers. Numbers are unambiguous machine values and skip the
// separator heuristics of ToCents.
func ValueToCents(v any) (int64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case string:
		return ToCents(val)
	case *string:
		if val == nil {
			return 0, false
		}
		return ToCents(*val)
	case json.Number:
		return numberToCents(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return 0, false
		}
		return MajorToCents(decimal.NewFromFloat(val)), true
	case float32:
		return ValueToCents(float64(val))
	case int:
		return ValueToCents(int64(val))
	case int64:
		if val < 0 || val > math.MaxInt64/100 {
			return 0, false
		}
		return val * 100, true
	default:
		return 0, false
	}
}

// MajorToCents converts an exact major-unit amount to cents, rounding half
// away from zero.
func MajorToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FloatToCents converts a gateway-reported float amount to cents.
func FloatToCents(amount float64) int64 {
	return MajorToCents(decimal.NewFromFloat(amount))
}

// ParseMajor parses a machine-formatted amount in major units such as "1997"
// or "49.90".
func ParseMajor(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(raw)
}

// FormatCents renders cents as a major-unit string with two decimals.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func numberToCents(raw string) (int64, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	return MajorToCents(d), true
}

// isNegative reports a minus sign ahead of the first digit ("-10", "R$ -5,00").
func isNegative(raw string) bool {
	idx := strings.IndexAny(raw, "0123456789")
	if idx < 0 {
		return strings.Contains(raw, "-")
	}
	return strings.Contains(raw[:idx], "-")
}

func keepOnly(s, allowed string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Amount is a JSON field holding an optional amount typed by a person. It
// accepts strings, numbers and null.
type Amount struct {
	raw any
	set bool
}

func NewAmount(v any) Amount {
	return Amount{raw: v, set: v != nil}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*a = Amount{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount{raw: s, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = Amount{raw: n, set: true}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.raw)
}

// IsSet reports whether the field was present with a non-null value.
func (a Amount) IsSet() bool {
	return a.set
}

// Cents returns the normalized amount, or nil when absent or unparseable.
func (a Amount) Cents() *int64 {
	if !a.set {
		return nil
	}
	cents, ok := ValueToCents(a.raw)
	if !ok {
		return nil
	}
	return &cents
}
