package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

// chartResponse maps the Yahoo Finance chart API response.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooClient reads the five day daily chart of a symbol and reports the
// most recent close. It also supplies the company name and trading currency.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient creates a Yahoo Finance chart client. baseURL defaults to
// https://query1.finance.yahoo.com.
func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *YahooClient) Name() string { return "yahoo" }

// LatestQuote implements Provider.
func (c *YahooClient) LatestQuote(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	var parsed chartResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Quote{}, fmt.Errorf("yahoo status %d", resp.StatusCode)
		}
		return Quote{}, fmt.Errorf("failed to decode yahoo response: %w", err)
	}
	if parsed.Chart.Error != nil {
		if parsed.Chart.Error.Code == "Not Found" {
			return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, parsed.Chart.Error.Description)
		}
		return Quote{}, fmt.Errorf("yahoo error: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("%w: no results returned for symbol %s", apperrors.ErrQuoteUnavailable, symbol)
	}

	result := parsed.Chart.Result[0]
	q := Quote{
		Symbol:      symbol,
		Currency:    strings.ToUpper(result.Meta.Currency),
		CompanyName: result.Meta.LongName,
	}
	if q.CompanyName == "" {
		q.CompanyName = result.Meta.ShortName
	}

	// Walk back to the latest day with a close; Yahoo reports null for the
	// current session before it settles.
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := min(len(closes), len(result.Timestamp)) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				q.Price = closes[i]
				q.AsOf = time.Unix(result.Timestamp[i], 0).UTC()
				break
			}
		}
	}
	if q.Price == 0 && result.Meta.RegularMarketPrice > 0 {
		q.Price = result.Meta.RegularMarketPrice
		q.AsOf = time.Unix(result.Meta.RegularMarketTime, 0).UTC()
	}
	if q.Price == 0 {
		return Quote{}, fmt.Errorf("%w: no close prices returned for %s", apperrors.ErrQuoteUnavailable, symbol)
	}
	return q, nil
}
