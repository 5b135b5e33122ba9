package statement

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/numparse"
)

var (
	gfHeader = regexp.MustCompile(`(?i)^(\S+)\s+(purchase|sale)$`)
	gfDate   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	gfDetail = regexp.MustCompile(`([0-9][0-9.,\x{202f}\x{00a0} ]*)\s+[Ss]hares?\s+(?:@|at)\s+([€$£¥]?)\s*([-\x{2212}]?[0-9][0-9.,\x{202f}\x{00a0} ]*)\s*([A-Z]{3})?\s*$`)
)

// gfNoise lines are UI artefacts of the Google Finance page.
var gfNoise = map[string]bool{
	"universal_currency_alt": true,
}

// gfSummaryLabels start a three line performance summary that carries no trade data.
var gfSummaryLabels = map[string]bool{
	"Gain":    true,
	"Returns": true,
}

func looksLikeGoogleFinance(raw string) bool {
	for _, ln := range splitLines(raw) {
		if gfHeader.MatchString(ln) {
			return true
		}
	}
	return false
}

// ParseGoogleFinanceText parses the transaction list copied from a Google
// Finance portfolio. Each trade is a "<TICKER> purchase|sale" header, an
// amount line and a "dd/mm/yyyy · N shares at €P" detail line.
func ParseGoogleFinanceText(raw string) Result {
	res := newResult()

	var cleaned []string
	skip := 0
	for _, ln := range splitLines(raw) {
		ln = strings.ReplaceAll(ln, "\u202f", "")
		if ln == "" || gfNoise[ln] {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if gfSummaryLabels[ln] {
			skip = 2
			continue
		}
		cleaned = append(cleaned, ln)
	}

	var groups [][]string
	var current []string
	for _, ln := range cleaned {
		if gfHeader.MatchString(ln) && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, ln)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	for _, g := range groups {
		if row, ok := parseGoogleGroup(g); ok {
			res.Rows = append(res.Rows, row)
			continue
		}
		res.Invalid = append(res.Invalid, strings.Join(g, "\n"))
	}
	return res
}

func parseGoogleGroup(g []string) (Row, bool) {
	if len(g) < 3 {
		return Row{}, false
	}
	header := gfHeader.FindStringSubmatch(g[0])
	if header == nil {
		return Row{}, false
	}
	action, ok := NormalizeAction(header[2])
	if !ok {
		return Row{}, false
	}

	detail := g[2]
	dm := gfDate.FindStringSubmatchIndex(detail)
	if dm == nil {
		return Row{}, false
	}
	date, err := time.Parse("2/1/2006", detail[dm[2]:dm[3]]+"/"+detail[dm[4]:dm[5]]+"/"+detail[dm[6]:dm[7]])
	if err != nil {
		return Row{}, false
	}

	m := gfDetail.FindStringSubmatch(detail[dm[1]:])
	if m == nil {
		return Row{}, false
	}
	shares, ok := numparse.Parse(m[1])
	if !ok || !shares.IsPositive() {
		return Row{}, false
	}
	price, ok := numparse.Parse(m[3])
	if !ok || price.IsNegative() {
		return Row{}, false
	}

	ccy, ok := googleCurrency(m[4], m[2], g[1])
	if !ok {
		return Row{}, false
	}

	row := Row{
		Ticker:    strings.ToUpper(header[1]),
		Action:    action,
		TradeDate: date,
		Shares:    shares,
		Price:     price,
		Amount:    shares.Mul(price).Round(2),
		Currency:  ccy,
	}
	scanSupplementary(g[3:], ccy).apply(&row)
	return row, true
}

// googleCurrency picks the trade currency: an explicit ISO code wins over the
// price glyph, which wins over the glyph leading the amount line.
func googleCurrency(code, priceGlyph, amountLine string) (currency.Code, bool) {
	if code != "" {
		c, err := currency.Parse(code)
		return c, err == nil
	}
	if c, ok := currency.FromSymbol(priceGlyph); ok {
		return c, true
	}
	if r, _ := utf8.DecodeRuneInString(amountLine); r != utf8.RuneError {
		if c, ok := currency.FromSymbol(string(r)); ok {
			return c, true
		}
	}
	return currency.Code{}, false
}
