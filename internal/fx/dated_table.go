package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
)

// DatedTableConfig configures a DatedTableClient.
type DatedTableConfig struct {
	BaseURL    string // e.g. https://api.exchangerate.host
	APIKey     string
	KeyParam   string // query parameter carrying the key, default "access_key"
	RequireKey bool
	Timeout    time.Duration
}

// DatedTableClient reads the full rate table of a base currency for one date:
// GET {BaseURL}/{yyyy-mm-dd}?base=XXX → {"rates": {"CCY": rate}}.
type DatedTableClient struct {
	cfg        DatedTableConfig
	httpClient *http.Client
}

// NewDatedTableClient creates a client with a bounded request timeout.
func NewDatedTableClient(cfg DatedTableConfig) *DatedTableClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.KeyParam == "" {
		cfg.KeyParam = "access_key"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &DatedTableClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *DatedTableClient) Name() string {
	if u, err := url.Parse(c.cfg.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "dated-table"
}

type datedTableResponse struct {
	Success *bool              `json:"success"`
	Rates   map[string]float64 `json:"rates"`
	Message string             `json:"message"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// Rates implements Provider.
func (c *DatedTableClient) Rates(ctx context.Context, base, _ currency.Code, date time.Time) (map[currency.Code]float64, error) {
	if c.cfg.RequireKey && c.cfg.APIKey == "" {
		return nil, apperrors.NewFxError(apperrors.FxMissingCredential, c.Name(), errors.New("FX_API_KEY is not set"))
	}

	q := url.Values{}
	q.Set("base", base.String())
	if c.cfg.APIKey != "" {
		q.Set(c.cfg.KeyParam, c.cfg.APIKey)
	}
	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, Day(date).Format(time.DateOnly), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), err)
	}

	if reason, ok := classifyStatus(resp.StatusCode); ok {
		return nil, apperrors.NewFxError(reason, c.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, snippet(body)))
	}

	var parsed datedTableResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), fmt.Errorf("failed to decode response: %w", err))
	}
	if parsed.Error != nil {
		return nil, apperrors.NewFxError(classifyProviderError(parsed.Error.Code, parsed.Error.Type), c.Name(),
			fmt.Errorf("%d %s: %s", parsed.Error.Code, parsed.Error.Type, parsed.Error.Info))
	}
	if parsed.Rates == nil {
		return nil, apperrors.NewFxError(apperrors.FxUnreachable, c.Name(), errors.New("missing rates"))
	}

	rates := make(map[currency.Code]float64, len(parsed.Rates))
	for k, v := range parsed.Rates {
		code, err := currency.Parse(k)
		if err != nil {
			continue
		}
		rates[code] = v
	}
	return rates, nil
}

// classifyStatus maps HTTP failures to FX reasons; ok is false for success.
func classifyStatus(status int) (apperrors.FxReason, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusTooManyRequests:
		return apperrors.FxQuotaExceeded, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.FxMissingCredential, true
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		return apperrors.FxInvalidPair, true
	default:
		return apperrors.FxUnreachable, true
	}
}

// classifyProviderError maps exchangerate.host style error payloads.
func classifyProviderError(code int, kind string) apperrors.FxReason {
	kind = strings.ToLower(kind)
	switch {
	case code == 101 || strings.Contains(kind, "access_key"):
		return apperrors.FxMissingCredential
	case code == 104 || code == 106 || strings.Contains(kind, "limit") || strings.Contains(kind, "quota"):
		return apperrors.FxQuotaExceeded
	case code == 201 || code == 202 || strings.Contains(kind, "currency") || strings.Contains(kind, "base"):
		return apperrors.FxInvalidPair
	default:
		return apperrors.FxUnreachable
	}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
