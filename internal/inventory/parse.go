// internal/inventory/parse.go
package inventory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyValue    = errors.New("empty value")
	ErrNotInteger    = errors.New("not an integer")
	ErrNotNumber     = errors.New("not a number")
	ErrNegativeValue = errors.New("negative value")
	ErrOutOfRange    = errors.New("value out of range")
)

// MaxPrice is the largest amount the decimal(10,2) price column holds.
var MaxPrice = decimal.RequireFromString("99999999.99")

// ParseQuantity reads a whole, non-negative unit count. Integral decimals such
// as "12.0" or "12,00" are accepted because spreadsheet exports produce them.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyValue
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, ErrNegativeValue
		}
		return n, nil
	}

	d, err := ParseDecimal(s)
	if err != nil {
		return 0, ErrNotInteger
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, ErrNotInteger
	}
	if d.IsNegative() {
		return 0, ErrNegativeValue
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("%w: out of range", ErrNotInteger)
	}
	return int(d.IntPart()), nil
}

// ParsePrice reads a non-negative amount rounded to cents.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeValue
	}
	d = d.Round(2)
	if d.GreaterThan(MaxPrice) {
		return decimal.Zero, ErrOutOfRange
	}
	return d, nil
}

// ParseDecimal accepts both "." and "," as the decimal separator. When both
// appear, the rightmost one is the decimal separator and the other groups
// thousands ("1.234,56" and "1,234.56" are both 1234.56). A leading currency
// symbol is ignored.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrNotNumber
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotNumber
	}
	return d, nil
}
