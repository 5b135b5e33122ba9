// Package numparse converts locale-formatted numeric strings from broker
// exports into decimals.
//
// Accepted inputs include thousands separators in either convention
// ("1.080,82", "1,080.82"), decimal commas ("41,57"), currency glyphs and
// trailing codes ("€41.57", "170,01 SEK"), no-break and narrow no-break
// spaces and the unicode minus sign. Failures are reported with ok=false and
// never panic; callers treat them as an invalid row.
package numparse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// numeric is the shape left after cleaning: optional sign, digits with separators.
var numeric = regexp.MustCompile(`^[+-]?[0-9][0-9.,]*$|^[+-]?[.,][0-9]+$`)

// trailingCode matches a trailing currency code or textual suffix, e.g. " SEK" or "kr".
var trailingCode = regexp.MustCompile(`(?i)\s*([a-z]{2,3})\.?\s*$`)

var glyphs = strings.NewReplacer(
	"€", "",
	"$", "",
	"£", "",
	"¥", "",
	"\u2212", "-",
	"\u2013", "-",
)

// Parse converts s to a decimal. The rightmost separator is the decimal point
// when both "," and "." appear; a lone comma is always a decimal point.
func Parse(s string) (decimal.Decimal, bool) {
	clean := Clean(s)
	if clean == "" || !numeric.MatchString(clean) {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			// "1,234,567" only makes sense as grouping
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	if strings.Count(clean, ",") > 0 || strings.Count(clean, ".") > 1 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// MustParse is Parse for test fixtures and constants; it panics on failure.
func MustParse(s string) decimal.Decimal {
	d, ok := Parse(s)
	if !ok {
		panic("numparse: cannot parse " + s)
	}
	return d
}

// Clean strips currency glyphs, textual suffixes and every whitespace variant,
// and maps unicode minus signs to "-".
func Clean(s string) string {
	s = glyphs.Replace(s)
	s = trailingCode.ReplaceAllString(s, "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "kr")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\u00a0' || r == '\u202f' || r == '\u2009' {
			return -1
		}
		return r
	}, s)
}

// SplitAmountCurrency separates a combined cell such as "170,01 SEK" into its
// number and its trailing three letter code. code is empty when none is present.
func SplitAmountCurrency(s string) (amount decimal.Decimal, code string, ok bool) {
	s = strings.TrimSpace(s)
	if m := trailingCode.FindStringSubmatch(s); m != nil && len(m[1]) == 3 {
		code = strings.ToUpper(m[1])
	}
	amount, ok = Parse(s)
	return amount, code, ok
}
