// Package statement turns broker statement exports into normalized trade rows.
//
// Three input shapes are supported: Avanza's "Genomförda transaktioner" text
// copy, the Google Finance transaction list and generic delimited tables with
// Swedish or English headers. Every parser returns a Result holding the rows
// that parsed completely and the raw fragments that did not. A fragment is
// never partially extracted.
package statement

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pfolio/portfolio-api/internal/currency"
)

// Action is the canonical kind of a statement row.
type Action string

const (
	ActionPurchase Action = "purchase"
	ActionSale     Action = "sale"
	ActionDividend Action = "dividend"
	ActionInterest Action = "interest"
)

// IsTrade reports whether the action changes a share position.
func (a Action) IsTrade() bool {
	return a == ActionPurchase || a == ActionSale
}

// Row is one normalized statement line. Shares is always positive; the side
// of the trade is carried by Action.
type Row struct {
	Ticker      string              `json:"ticker"`
	Action      Action              `json:"action"`
	TradeDate   time.Time           `json:"date"`
	Shares      decimal.Decimal     `json:"shares"`
	Price       decimal.Decimal     `json:"price"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    currency.Code       `json:"currency"`
	FeeAmount   decimal.NullDecimal `json:"feeAmount"`
	FeeCurrency *currency.Code      `json:"feeCurrency,omitempty"`
	FxRate      decimal.NullDecimal `json:"fxRate"`
}

// Result is the outcome of parsing one input.
type Result struct {
	Rows    []Row    `json:"rows"`
	Invalid []string `json:"invalidRows"`
}

func newResult() Result {
	return Result{Rows: []Row{}, Invalid: []string{}}
}

var actionNames = map[string]Action{
	"köp":                   ActionPurchase,
	"kop":                   ActionPurchase,
	"purchase":              ActionPurchase,
	"buy":                   ActionPurchase,
	"bought":                ActionPurchase,
	"sälj":                  ActionSale,
	"salj":                  ActionSale,
	"sale":                  ActionSale,
	"sell":                  ActionSale,
	"sold":                  ActionSale,
	"utdelning":             ActionDividend,
	"utdelning värdepapper": ActionDividend,
	"dividend":              ActionDividend,
	"utlåningsränta":        ActionInterest,
	"inlåningsränta":        ActionInterest,
	"ränta":                 ActionInterest,
	"interest":              ActionInterest,
}

// ignoredActions are recognised but carry no trade information.
var ignoredActions = []string{
	"kreditsettling",
	"intern överföring",
	"överföring",
	"insättning",
	"uttag",
	"deposit",
	"withdrawal",
	"transfer",
}

// NormalizeAction maps a localized verb to its canonical Action.
// ok is false for denylisted and unknown verbs; such rows are skipped, not invalid.
func NormalizeAction(verb string) (Action, bool) {
	v := strings.ToLower(strings.TrimSpace(verb))
	if v == "" {
		return "", false
	}
	for _, term := range ignoredActions {
		if strings.Contains(v, term) {
			return "", false
		}
	}
	a, ok := actionNames[v]
	return a, ok
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// cleanTicker decomposes the text (NFKD) and removes combining marks.
func cleanTicker(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFKD, stripMarks), strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return out
}

// splitLines returns trimmed lines with no-break spaces folded to spaces.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(strings.ReplaceAll(ln, "\u00a0", " "))
	}
	return lines
}
