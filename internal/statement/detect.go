package statement

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

// Format identifies which parser applies to an input.
type Format int

const (
	FormatUnknown Format = iota
	FormatAvanzaText
	FormatGoogleFinanceText
	FormatTabular
)

func (f Format) String() string {
	switch f {
	case FormatAvanzaText:
		return "avanza_text"
	case FormatGoogleFinanceText:
		return "google_finance_text"
	case FormatTabular:
		return "tabular"
	default:
		return "unknown"
	}
}

func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// Detect inspects raw content and reports its format. Avanza is checked
// before Google Finance because an Avanza copy may contain lines that look
// like "<word> purchase".
func Detect(raw string) Format {
	switch {
	case strings.TrimSpace(raw) == "":
		return FormatUnknown
	case looksLikeAvanza(raw):
		return FormatAvanzaText
	case looksLikeGoogleFinance(raw):
		return FormatGoogleFinanceText
	case looksLikeTable(raw):
		return FormatTabular
	default:
		return FormatUnknown
	}
}

// Parse detects the format of raw and runs the matching parser.
func Parse(raw string) (Format, Result, error) {
	format := Detect(raw)
	res, err := ParseAs(format, raw)
	return format, res, err
}

// ParseAs runs the parser for format on raw.
func ParseAs(format Format, raw string) (Result, error) {
	switch format {
	case FormatAvanzaText:
		return ParseAvanzaText(raw), nil
	case FormatGoogleFinanceText:
		return ParseGoogleFinanceText(raw), nil
	case FormatTabular:
		table, err := ReadTable(strings.NewReader(raw))
		if err != nil {
			return Result{}, err
		}
		return ParseTable(table)
	default:
		return Result{}, fmt.Errorf("%w: no parser matches the input", apperrors.ErrUnknownFormat)
	}
}
