package quote

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
)

// AlphaVantageClient reads GLOBAL_QUOTE. It needs an API key.
type AlphaVantageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAlphaVantageClient(baseURL, apiKey string, timeout time.Duration) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlphaVantageClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *AlphaVantageClient) Name() string { return "alphavantage" }

type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

// LatestQuote implements Provider.
func (c *AlphaVantageClient) LatestQuote(ctx context.Context, symbol string) (Quote, error) {
	if c.apiKey == "" {
		return Quote{}, fmt.Errorf("alphavantage: %w", apperrors.ErrMissingCredential)
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("alphavantage request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("alphavantage status %d", resp.StatusCode)
	}

	var parsed globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Quote{}, fmt.Errorf("failed to decode alphavantage response: %w", err)
	}
	switch {
	case parsed.Note != "" || parsed.Information != "":
		return Quote{}, errors.New("alphavantage rate limit: " + parsed.Note + parsed.Information)
	case parsed.ErrorMessage != "":
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, parsed.ErrorMessage)
	}

	raw, ok := parsed.GlobalQuote["05. price"]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return Quote{}, fmt.Errorf("invalid alphavantage price %q", raw)
	}

	out := Quote{Symbol: symbol, Price: price}
	if day, err := time.Parse(time.DateOnly, parsed.GlobalQuote["07. latest trading day"]); err == nil {
		out.AsOf = day
	}
	return out, nil
}
