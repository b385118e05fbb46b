// Package normalize turns loosely shaped JSON from upstream services and
// clients into validated internal rows. Each field is read from a fixed,
// ordered list of accepted keys; the first usable key wins.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumber is returned when a present value cannot be read as a number
var ErrNotNumber = errors.New("not a number")

var numberCleaner = strings.NewReplacer(",", "", " ", "", "\u00a0", "")

// FirstString returns the first non-blank string value under keys, trimmed.
// Numbers are rendered in their plain form so "batch": 1234 still reads as "1234".
func FirstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case bool:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// FirstNumber returns the value under the first key that is present and not
// null or blank. found is false when none of the keys carries a value.
func FirstNumber(m map[string]interface{}, keys ...string) (d decimal.Decimal, found bool, err error) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		d, err = Number(v)
		return d, true, err
	}
	return decimal.Zero, false, nil
}

// Number converts a decoded JSON value to a decimal. Numeric strings may carry
// thousand separators ("1,200.50").
func Number(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return parseDecimal(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return parseDecimal(t)
	default:
		return decimal.Zero, ErrNotNumber
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(numberCleaner.Replace(strings.TrimSpace(s)))
	if err != nil {
		return decimal.Zero, ErrNotNumber
	}
	return d, nil
}

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// PositiveInt accepts whole numbers greater than zero that fit the int columns
func PositiveInt(d decimal.Decimal) (int, bool) {
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(maxQuantity) {
		return 0, false
	}
	return int(d.IntPart()), true
}
