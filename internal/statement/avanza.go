package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/numparse"
)

const avanzaMarker = "Genomförda transaktioner"

var isoDateLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// trailingISO captures an explicit currency code after an amount, e.g. "170,01 SEK".
var trailingISO = regexp.MustCompile(`\s([A-Z]{3})$`)

// looksLikeAvanza reports whether raw is an Avanza transaction list copy.
func looksLikeAvanza(raw string) bool {
	if !strings.Contains(raw, avanzaMarker) {
		return false
	}
	for _, ln := range splitLines(raw) {
		if isoDateLine.MatchString(ln) {
			return true
		}
	}
	return false
}

// ParseAvanzaText parses an Avanza "Genomförda transaktioner" copy.
//
// Blocks start at a line holding only an ISO date and are laid out as:
// date, account, action (optionally followed by a tab and a description),
// instrument name lines, then shares, price and amount as the last three
// numeric tokens. Amounts are in SEK unless a token carries another code.
func ParseAvanzaText(raw string) Result {
	res := newResult()

	lines := splitLines(raw)
	for len(lines) > 0 && !isoDateLine.MatchString(lines[0]) {
		lines = lines[1:]
	}

	var blocks [][]string
	var current []string
	for _, ln := range lines {
		if isoDateLine.MatchString(ln) && len(current) > 0 {
			blocks = append(blocks, current)
			current = nil
		}
		if ln == "" {
			continue
		}
		current = append(current, ln)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	for _, blk := range blocks {
		row, skip, ok := parseAvanzaBlock(blk)
		switch {
		case skip:
		case ok:
			res.Rows = append(res.Rows, row)
		default:
			res.Invalid = append(res.Invalid, strings.Join(blk, " "))
		}
	}
	return res
}

// parseAvanzaBlock returns skip=true for recognised non-trade actions and
// ok=false when a required token is missing.
func parseAvanzaBlock(blk []string) (row Row, skip, ok bool) {
	if len(blk) >= 3 {
		verb := strings.Split(blk[2], "\t")[0]
		if _, known := NormalizeAction(verb); !known {
			return Row{}, true, false
		}
	}
	if len(blk) < 5 {
		return Row{}, false, false
	}

	date, err := time.Parse("2006-01-02", blk[0])
	if err != nil {
		return Row{}, false, false
	}
	action, _ := NormalizeAction(strings.Split(blk[2], "\t")[0])

	tokens := withoutSupplementary(blk[3:])
	if len(tokens) < 3 {
		return Row{}, false, false
	}
	n := len(tokens)
	name := strings.Join(tokens[:n-3], " ")

	ccy := currency.SEK
	values := make([]decimal.Decimal, 3)
	for i, tok := range tokens[n-3:] {
		if m := trailingISO.FindStringSubmatch(tok); m != nil {
			code, err := currency.Parse(m[1])
			if err != nil {
				return Row{}, false, false
			}
			ccy = code
		}
		v, ok := numparse.Parse(tok)
		if !ok {
			return Row{}, false, false
		}
		values[i] = v
	}

	shares := values[0].Abs()
	price := values[1]
	if !shares.IsPositive() || price.IsNegative() {
		return Row{}, false, false
	}

	row = Row{
		Ticker:    cleanTicker(name),
		Action:    action,
		TradeDate: date,
		Shares:    shares,
		Price:     price,
		Amount:    values[2].Abs(),
		Currency:  ccy,
	}
	if row.Ticker == "" {
		return Row{}, false, false
	}
	scanSupplementary(blk[3:], ccy).apply(&row)
	return row, false, true
}
