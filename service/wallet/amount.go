package wallet

import (
	"fmt"
	"math"
	"strings"
)

// ParseAmount converts a decimal string (e.g. "0.5") into the token's
// smallest unit given its decimal precision. It rejects empty, malformed,
// zero and negative inputs, and reports fractional digits beyond the
// token's precision as a precision overflow.
func ParseAmount(s string, decimals uint8) (uint64, *ValidationError) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, &ValidationError{Reason: ReasonAmountNotPositive}
	}
	if strings.HasPrefix(s, "-") {
		return 0, &ValidationError{Reason: ReasonAmountNotPositive}
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return 0, &ValidationError{Reason: ReasonAmountNotPositive}
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, &ValidationError{Reason: ReasonAmountNotPositive}
	}
	if len(frac) > int(decimals) {
		// Trailing zeros beyond the precision are harmless.
		if !allZeros(frac[decimals:]) {
			return 0, &ValidationError{Reason: ReasonPrecisionOverflow}
		}
		frac = frac[:decimals]
	}

	// Scale: whole*10^decimals + frac padded to decimals digits.
	units := uint64(0)
	for _, c := range whole {
		d := uint64(c - '0')
		if units > (math.MaxUint64-d)/10 {
			return 0, &ValidationError{Reason: ReasonAmountTooLarge}
		}
		units = units*10 + d
	}
	for i := 0; i < int(decimals); i++ {
		d := uint64(0)
		if i < len(frac) {
			d = uint64(frac[i] - '0')
		}
		if units > (math.MaxUint64-d)/10 {
			return 0, &ValidationError{Reason: ReasonAmountTooLarge}
		}
		units = units*10 + d
	}

	if units == 0 {
		return 0, &ValidationError{Reason: ReasonAmountNotPositive}
	}
	return units, nil
}

// FormatAmount renders a smallest-unit amount as a decimal string with the
// token's precision, trimming trailing zeros. The sign is preserved.
func FormatAmount(units int64, decimals uint8) string {
	neg := units < 0
	u := uint64(units)
	if neg {
		u = uint64(-units)
	}

	scale := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}

	whole := u / scale
	frac := u % scale

	out := fmt.Sprintf("%d", whole)
	if frac > 0 {
		fracStr := fmt.Sprintf("%0*d", decimals, frac)
		fracStr = strings.TrimRight(fracStr, "0")
		out = out + "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func allZeros(s string) bool {
	for _, c := range s {
		if c != '0' {
			return false
		}
	}
	return true
}
