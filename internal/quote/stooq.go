package quote

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

// StooqClient reads the stooq.com light quote CSV. The exchange suffix of a
// symbol ("CIG.WA" → "cig") is dropped.
type StooqClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewStooqClient(baseURL string, timeout time.Duration) *StooqClient {
	if baseURL == "" {
		baseURL = "https://stooq.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StooqClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *StooqClient) Name() string { return "stooq" }

// LatestQuote implements Provider.
func (c *StooqClient) LatestQuote(ctx context.Context, symbol string) (Quote, error) {
	s, _, _ := strings.Cut(symbol, ".")
	endpoint := fmt.Sprintf("%s/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv", c.baseURL, url.QueryEscape(strings.ToLower(s)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("stooq request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("stooq status %d", resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Quote{}, fmt.Errorf("failed to read stooq csv: %w", err)
	}
	if len(records) < 2 {
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	row := records[1]
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	price, err := strconv.ParseFloat(field("close"), 64)
	if err != nil || price <= 0 {
		// Stooq answers unknown symbols with N/D in every column.
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}

	q := Quote{Symbol: symbol, Price: price}
	if day, err := time.Parse(time.DateOnly, field("date")); err == nil {
		q.AsOf = day
	}
	return q, nil
}
