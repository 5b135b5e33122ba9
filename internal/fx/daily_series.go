package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
)

// maxWalkBack is how many earlier days are tried when the requested date has
// no close (weekends, holidays).
const maxWalkBack = 7

// DailySeriesClient reads Alpha Vantage FX_DAILY close series for one pair.
type DailySeriesClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewDailySeriesClient creates an Alpha Vantage FX client. baseURL defaults
// to https://www.alphavantage.co.
func NewDailySeriesClient(baseURL, apiKey string, timeout time.Duration) *DailySeriesClient {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DailySeriesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *DailySeriesClient) Name() string { return "alphavantage" }

type dailySeriesResponse struct {
	Series       map[string]map[string]string `json:"Time Series FX (Daily)"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	ErrorMessage string                       `json:"Error Message"`
}

// Rates implements Provider. It returns a single entry for quote.
func (c *DailySeriesClient) Rates(ctx context.Context, base, quote currency.Code, date time.Time) (map[currency.Code]float64, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewFxError(apperrors.FxMissingCredential, c.Name(), errors.New("ALPHAVANTAGE_API_KEY is not set"))
	}

	day := Day(date)
	size := "compact"
	if c.now().Sub(day) > 90*24*time.Hour {
		size = "full"
	}

	q := url.Values{}
	q.Set("function", "FX_DAILY")
	q.Set("from_symbol", base.String())
	q.Set("to_symbol", quote.String())
	q.Set("outputsize", size)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), err)
	}
	defer resp.Body.Close()

	if reason, failed := classifyStatus(resp.StatusCode); failed {
		return nil, apperrors.NewFxError(reason, c.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed dailySeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), fmt.Errorf("failed to decode response: %w", err))
	}
	switch {
	case parsed.Note != "" || parsed.Information != "":
		return nil, apperrors.NewFxError(apperrors.FxQuotaExceeded, c.Name(), errors.New(parsed.Note+parsed.Information))
	case parsed.ErrorMessage != "":
		return nil, apperrors.NewFxError(apperrors.FxInvalidPair, c.Name(), errors.New(parsed.ErrorMessage))
	}

	for i := 0; i <= maxWalkBack; i++ {
		bar, ok := parsed.Series[day.AddDate(0, 0, -i).Format(time.DateOnly)]
		if !ok {
			continue
		}
		closing, err := strconv.ParseFloat(bar["4. close"], 64)
		if err != nil || closing <= 0 {
			continue
		}
		return map[currency.Code]float64{quote: closing}, nil
	}
	return nil, apperrors.NewFxError(apperrors.FxInvalidPair, c.Name(),
		fmt.Errorf("no close within %d days of %s", maxWalkBack, day.Format(time.DateOnly)))
}
