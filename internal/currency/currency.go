// Package currency provides a validated ISO-4217-shaped currency code.
//
// A Code can only be obtained through Parse (or the predeclared constants),
// so every Code in the system is exactly three upper-case ASCII letters.
package currency

import (
	"fmt"
	"strings"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

// Code is a three-letter upper-case currency code.
type Code struct {
	s string
}

var (
	USD = Code{"USD"}
	EUR = Code{"EUR"}
	SEK = Code{"SEK"}
	GBP = Code{"GBP"}
	JPY = Code{"JPY"}
)

// Parse validates s and returns its normalised Code.
// Input is trimmed and upper-cased before validation.
func Parse(s string) (Code, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if len(v) != 3 {
		return Code{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCurrency, s)
	}
	for i := 0; i < 3; i++ {
		if v[i] < 'A' || v[i] > 'Z' {
			return Code{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedCurrency, s)
		}
	}
	return Code{v}, nil
}

// MustParse is Parse for constants in tests and wiring; it panics on invalid input.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses a comma separated list, skipping blanks.
func ParseList(s string) ([]Code, error) {
	var codes []Code
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Parse(part)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

func (c Code) String() string { return c.s }

// IsZero reports whether c is the zero value (no currency).
func (c Code) IsZero() bool { return c.s == "" }

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.s), nil
}

func (c *Code) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// symbols maps currency glyphs seen in statement exports to codes.
var symbols = map[string]Code{
	"€":  EUR,
	"$":  USD,
	"£":  GBP,
	"¥":  JPY,
	"kr": SEK,
}

// FromSymbol maps a currency glyph to its Code.
func FromSymbol(sym string) (Code, bool) {
	c, ok := symbols[strings.ToLower(strings.TrimSpace(sym))]
	return c, ok
}
