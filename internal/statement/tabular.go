package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/numparse"
)

// Canonical column names after header localization.
const (
	ColDate     = "Date"
	ColAction   = "Action"
	ColSymbol   = "Symbol"
	ColQuantity = "Quantity"
	ColPrice    = "Price"
	ColAmount   = "Amount"
	ColCurrency = "Currency"

	// colPriceRaw holds price and currency in one cell, e.g. "170,01 SEK".
	colPriceRaw = "PriceRaw"
)

// requiredColumns are checked in this order so error messages are stable.
var requiredColumns = []string{ColDate, ColAction, ColSymbol, ColQuantity, ColPrice, ColCurrency}

// headerAliases maps lower-cased source headers to canonical names.
var headerAliases = map[string]string{
	"date":                    ColDate,
	"datum":                   ColDate,
	"trade date":              ColDate,
	"action":                  ColAction,
	"type":                    ColAction,
	"side":                    ColAction,
	"transaktionstyp":         ColAction,
	"trnsaktionstyp":          ColAction,
	"typ av transaktion":      ColAction,
	"typ":                     ColAction,
	"symbol":                  ColSymbol,
	"ticker":                  ColSymbol,
	"värdepapper/beskrivning": ColSymbol,
	"värdepapper":             ColSymbol,
	"namn":                    ColSymbol,
	"quantity":                ColQuantity,
	"qty":                     ColQuantity,
	"shares":                  ColQuantity,
	"antal":                   ColQuantity,
	"antal/belopp":            ColQuantity,
	"price":                   ColPrice,
	"kurs":                    colPriceRaw,
	"amount":                  ColAmount,
	"totalamount":             ColAmount,
	"total":                   ColAmount,
	"belopp":                  ColAmount,
	"currency":                ColCurrency,
	"valuta":                  ColCurrency,
}

// Table is a decoded spreadsheet: one header row and its records.
type Table struct {
	Header  []string
	Records [][]string
}

// ReadTable decodes a delimited text export. The delimiter (comma, semicolon
// or tab) is sniffed from the header line.
func ReadTable(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read table: %w", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return Table{}, apperrors.ErrEmptyInput
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(firstLine(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to decode table: %w", err)
	}
	if len(records) == 0 {
		return Table{}, apperrors.ErrEmptyInput
	}
	return Table{Header: records[0], Records: records[1:]}, nil
}

func firstLine(text string) string {
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) != "" {
			return ln
		}
	}
	return ""
}

func sniffDelimiter(line string) rune {
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// localizeHeader returns the canonical name for a source header, or the
// trimmed header itself when it is not recognised.
func localizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if c, ok := headerAliases[strings.ToLower(h)]; ok {
		return c
	}
	return h
}

// looksLikeTable reports whether the first line is a delimited header naming
// at least two known columns.
func looksLikeTable(raw string) bool {
	line := firstLine(strings.TrimPrefix(raw, "\ufeff"))
	delim := sniffDelimiter(line)
	known := 0
	for _, cell := range strings.Split(line, string(delim)) {
		if _, ok := headerAliases[strings.ToLower(strings.Trim(strings.TrimSpace(cell), `"`))]; ok {
			known++
		}
	}
	return known >= 2
}

var symbolToken = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02.01.2006",
}

// ParseTable parses a decoded table. It fails with a StructuralImportError
// before touching any record when a required column is missing.
func ParseTable(t Table) (Result, error) {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		name := localizeHeader(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; ok {
			continue
		}
		// a combined "170,01 SEK" column supplies both price and currency
		if _, ok := index[colPriceRaw]; ok && (col == ColPrice || col == ColCurrency) {
			continue
		}
		missing = append(missing, col)
	}
	if len(missing) > 0 {
		return Result{}, &apperrors.StructuralImportError{Missing: missing}
	}

	res := newResult()
	for _, rec := range t.Records {
		if isBlank(rec) {
			continue
		}
		row, skip, err := parseRecord(rec, index)
		switch {
		case skip:
		case err != nil:
			res.Invalid = append(res.Invalid, describeRecord(t.Header, rec))
		default:
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

var errMissingField = errors.New("missing field")

func parseRecord(rec []string, index map[string]int) (row Row, skip bool, err error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rawSymbol, rawAction := cell(ColSymbol), cell(ColAction)
	if rawSymbol == "" || rawAction == "" {
		return Row{}, true, nil
	}
	action, ok := NormalizeAction(rawAction)
	if !ok {
		return Row{}, true, nil
	}

	date, err := parseDate(cell(ColDate))
	if err != nil {
		return Row{}, false, err
	}

	qty, ok := numparse.Parse(cell(ColQuantity))
	if !ok {
		return Row{}, false, errMissingField
	}
	qty = qty.Abs()
	if !qty.IsPositive() {
		return Row{}, false, errMissingField
	}

	var price decimal.Decimal
	var code string
	if _, has := index[ColPrice]; has {
		price, ok = numparse.Parse(cell(ColPrice))
	} else {
		price, code, ok = numparse.SplitAmountCurrency(cell(colPriceRaw))
	}
	if !ok || price.IsNegative() {
		return Row{}, false, errMissingField
	}
	if c := cell(ColCurrency); c != "" {
		code = c
	}
	ccy, err := currency.Parse(code)
	if err != nil {
		return Row{}, false, err
	}

	amount := qty.Mul(price).Round(2)
	if raw := cell(ColAmount); raw != "" {
		a, ok := numparse.Parse(raw)
		if !ok {
			return Row{}, false, fmt.Errorf("unparseable amount %q", raw)
		}
		amount = a.Abs()
	}

	return Row{
		Ticker:    tabularTicker(rawSymbol),
		Action:    action,
		TradeDate: date,
		Shares:    qty,
		Price:     price,
		Amount:    amount,
		Currency:  ccy,
	}, false, nil
}

// tabularTicker picks the ticker out of a free-form security description.
func tabularTicker(s string) string {
	if strings.ContainsAny(s, " \t(") {
		if tok := symbolToken.FindString(s); tok != "" {
			return tok
		}
	}
	return strings.ToUpper(cleanTicker(s))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errMissingField
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// describeRecord renders a record as "Header=value; ..." for the invalid list.
func describeRecord(header, rec []string) string {
	parts := make([]string, 0, len(rec))
	for i, v := range rec {
		name := fmt.Sprintf("col%d", i+1)
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		parts = append(parts, name+"="+strings.TrimSpace(v))
	}
	return strings.Join(parts, "; ")
}
