package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned when a decimal amount cannot be parsed.
var ErrInvalidAmount = errors.New("domain: invalid amount")

// DefaultCurrency is used when a tenant has not configured one.
const DefaultCurrency = "USD"

// BasisPointsScale is the denominator for rates expressed in basis points.
const BasisPointsScale = 10000

// Round rounds half away from zero.
func Round(value float64) int64 {
	return int64(math.Round(value))
}

// LineAmount multiplies a quantity by a unit price in cents.
func LineAmount(quantity float64, unitPrice int64) int64 {
	return Round(quantity * float64(unitPrice))
}

// ApplyBasisPoints returns amount * bps / 10000 rounded half away from zero,
// using integer arithmetic.
func ApplyBasisPoints(amount int64, bps int) int64 {
	return divRound(amount*int64(bps), BasisPointsScale)
}

// Proportion returns amount * part / whole rounded half away from zero. A
// zero whole yields zero.
func Proportion(amount, part, whole int64) int64 {
	if whole == 0 {
		return 0
	}
	return divRound(amount*part, whole)
}

func divRound(numerator, denominator int64) int64 {
	if denominator < 0 {
		numerator, denominator = -numerator, -denominator
	}
	if numerator >= 0 {
		return (numerator + denominator/2) / denominator
	}
	return -((-numerator + denominator/2) / denominator)
}

// FormatCents renders cents as a decimal string with two places.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseAmount parses a decimal string ("1234.5", "-3", "0.07") into cents.
// More than two fractional digits are rejected.
func ParseAmount(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	negative := strings.HasPrefix(trimmed, "-")
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "-"), "+")

	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	fraction, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || fraction < 0 {
		return 0, ErrInvalidAmount
	}
	cents := units*100 + fraction
	if negative {
		cents = -cents
	}
	return cents, nil
}

// NormalizeCurrency upper-cases a currency code and applies the default.
func NormalizeCurrency(code string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return DefaultCurrency
	}
	return trimmed
}
