// Package core holds the expense domain model: records, money parsing,
// reporting periods and their aggregate statistics.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToFen converts a decimal yuan string to fen with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and
// comma (12,34) separators. The result is always strictly positive fen;
// invalid formats, negative values and zero amounts are rejected.
//
// Examples:
//
//	ParseDecimalToFen("12.34") -> 1234, nil
//	ParseDecimalToFen("12,34") -> 1234, nil
//	ParseDecimalToFen("12.345") -> 1234, nil (rounds down)
//	ParseDecimalToFen("12.346") -> 1235, nil (rounds up)
func ParseDecimalToFen(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take the first two fractional digits, then half-up on the third
	var fracFen int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracFen = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracFen += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracFen++
			}
		}
	}
	fen := iv*100 + fracFen
	if fen <= 0 {
		return 0, ErrInvalidAmount
	}
	return fen, nil
}

// Yuan returns the yuan value as a float64 for display purposes.
// Use fen for calculations to avoid floating-point precision issues.
func (m Money) Yuan() float64 {
	return float64(m.Fen) / 100.0
}

// FormatYuan formats fen as a yuan currency string, e.g. "¥12.34".
func FormatYuan(fen int64) string {
	neg := fen < 0
	if neg {
		fen = -fen
	}
	s := strconv.FormatInt(fen/100, 10) + "." + fmt.Sprintf("%02d", fen%100)
	if neg {
		return "-¥" + s
	}
	return "¥" + s
}
