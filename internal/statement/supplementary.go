package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/numparse"
)

// feeLine matches labelled fee lines such as "Courtage: 39 SEK", "Brokerage charge €1,50".
var feeLine = regexp.MustCompile(`(?i)^(?:courtage|avgift|brokerage charge|brokerage|transaction fee|fees?|commission|gebühr|frais)\b\s*:?\s*([€$£¥])?\s*([-\x{2212}]?[0-9][0-9.,  \x{00a0}\x{202f}]*)\s*([a-z]{3}|kr)?\.?$`)

// fxLine matches labelled exchange rate lines such as "Växelkurs 11,23".
var fxLine = regexp.MustCompile(`(?i)^(?:växelkurs|valutakurs|exchange rate|fx rate|wechselkurs|taux de change)\b\s*:?\s*([0-9][0-9.,]*)`)

type supplement struct {
	fee         decimal.NullDecimal
	feeCurrency *currency.Code
	fxRate      decimal.NullDecimal
}

// isSupplementary reports whether a line is a fee or exchange rate line.
func isSupplementary(line string) bool {
	return feeLine.MatchString(line) || fxLine.MatchString(line)
}

// scanSupplementary extracts optional fee and exchange rate values from the
// lines of one block. Unparseable supplementary lines are ignored.
func scanSupplementary(lines []string, tradeCurrency currency.Code) supplement {
	var s supplement
	for _, ln := range lines {
		if m := feeLine.FindStringSubmatch(ln); m != nil {
			amount, ok := numparse.Parse(m[2])
			if !ok {
				continue
			}
			code := tradeCurrency
			if m[1] != "" {
				if c, ok := currency.FromSymbol(m[1]); ok {
					code = c
				}
			} else if m[3] != "" {
				if c, ok := currency.FromSymbol(m[3]); ok {
					code = c
				} else if c, err := currency.Parse(m[3]); err == nil {
					code = c
				}
			}
			s.fee = decimal.NewNullDecimal(amount.Abs())
			s.feeCurrency = &code
			continue
		}
		if m := fxLine.FindStringSubmatch(ln); m != nil {
			if rate, ok := numparse.Parse(m[1]); ok && rate.IsPositive() {
				s.fxRate = decimal.NewNullDecimal(rate)
			}
		}
	}
	return s
}

func (s supplement) apply(r *Row) {
	r.FeeAmount = s.fee
	r.FeeCurrency = s.feeCurrency
	r.FxRate = s.fxRate
}

// withoutSupplementary filters fee and exchange rate lines from lines.
func withoutSupplementary(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if !isSupplementary(strings.TrimSpace(ln)) {
			out = append(out, ln)
		}
	}
	return out
}
