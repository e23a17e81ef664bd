package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparseable is returned when a token matched a shape but could not be
// converted to its target type.
var ErrUnparseable = errors.New("unparseable token")

const currencySymbols = "$€£¥₹"

var groupingSeparators = strings.NewReplacer(",", "", ".", "")

// ParseAmount converts a numeric-looking token such as "$1,234.56" or
// "1.234,56" into a decimal rounded to two fraction digits.
//
// A '.' or ',' followed by one or two trailing digits is the decimal
// separator and every earlier '.' or ',' is grouping. Any other token only
// has its commas removed, so "1234.567" keeps its decimal point.
func ParseAmount(s string) (decimal.Decimal, error) {
	token := strings.TrimSpace(s)
	token = strings.TrimSpace(strings.TrimLeft(token, currencySymbols))
	if token == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrUnparseable)
	}

	whole, frac := token, ""
	if at := decimalSeparator(token); at >= 0 {
		whole, frac = groupingSeparators.Replace(token[:at]), token[at+1:]
	} else {
		whole = strings.ReplaceAll(token, ",", "")
		if i := strings.IndexByte(whole, '.'); i >= 0 {
			whole, frac = whole[:i], whole[i+1:]
			if !isDigits(frac) {
				return decimal.Zero, fmt.Errorf("%w: amount %q", ErrUnparseable, s)
			}
		}
	}

	switch {
	case whole == "" && frac == "":
		return decimal.Zero, fmt.Errorf("%w: amount %q has no digits", ErrUnparseable, s)
	case whole == "":
		whole = "0"
	case frac == "":
		frac = "0"
	}
	if !isDigits(whole) {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrUnparseable, s)
	}

	amount, err := decimal.NewFromString(whole + "." + frac)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q: %v", ErrUnparseable, s, err)
	}
	return amount.Round(2), nil
}

// decimalSeparator returns the index of a '.' or ',' followed by exactly one
// or two trailing digits, or -1.
func decimalSeparator(token string) int {
	n := len(token)
	for digits := 2; digits >= 1; digits-- {
		at := n - digits - 1
		if at >= 0 && (token[at] == '.' || token[at] == ',') && isDigits(token[at+1:]) {
			return at
		}
	}
	return -1
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
