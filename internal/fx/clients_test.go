package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
)

func reasonOf(t *testing.T, err error) apperrors.FxReason {
	t.Helper()
	var fxErr *apperrors.FxError
	require.ErrorAs(t, err, &fxErr)
	return fxErr.Reason
}

func TestDatedTableClient_Rates(t *testing.T) {
	t.Run("parses the rate table", func(t *testing.T) {
		var gotPath, gotBase, gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotBase = r.URL.Query().Get("base")
			gotKey = r.URL.Query().Get("access_key")
			_, _ = w.Write([]byte(`{"success":true,"base":"EUR","rates":{"USD":1.09,"SEK":11.2,"bogus":3}}`))
		}))
		defer srv.Close()

		c := NewDatedTableClient(DatedTableConfig{BaseURL: srv.URL + "/", APIKey: "k"})
		rates, err := c.Rates(context.Background(), currency.EUR, currency.USD, time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, "/2024-03-15", gotPath)
		assert.Equal(t, "EUR", gotBase)
		assert.Equal(t, "k", gotKey)
		assert.Equal(t, map[currency.Code]float64{currency.USD: 1.09, currency.SEK: 11.2}, rates)
	})

	t.Run("missing key when required", func(t *testing.T) {
		c := NewDatedTableClient(DatedTableConfig{BaseURL: "http://127.0.0.1:1", RequireKey: true})
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		assert.ErrorIs(t, err, apperrors.ErrMissingCredential)
	})

	cases := []struct {
		name   string
		status int
		body   string
		want   apperrors.FxReason
	}{
		{"too many requests", http.StatusTooManyRequests, `{}`, apperrors.FxQuotaExceeded},
		{"not found", http.StatusNotFound, `{"message":"not found"}`, apperrors.FxInvalidPair},
		{"server error", http.StatusBadGateway, `oops`, apperrors.FxUnreachable},
		{"usage limit payload", http.StatusOK, `{"success":false,"error":{"code":104,"type":"usage_limit_reached"}}`, apperrors.FxQuotaExceeded},
		{"invalid currency payload", http.StatusOK, `{"success":false,"error":{"code":202,"type":"invalid_currency_codes"}}`, apperrors.FxInvalidPair},
		{"access key payload", http.StatusOK, `{"success":false,"error":{"code":101,"type":"missing_access_key"}}`, apperrors.FxMissingCredential},
		{"garbage body", http.StatusOK, `<html>`, apperrors.FxUnreachable},
		{"no rates", http.StatusOK, `{"success":true}`, apperrors.FxUnreachable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewDatedTableClient(DatedTableConfig{BaseURL: srv.URL})
			_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

			assert.ErrorIs(t, err, apperrors.ErrFxDownload)
			assert.Equal(t, tc.want, reasonOf(t, err))
		})
	}

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewDatedTableClient(DatedTableConfig{BaseURL: url})
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		assert.Equal(t, apperrors.FxUnreachable, reasonOf(t, err))
	})
}

func TestDailySeriesClient_Rates(t *testing.T) {
	series := `{"Time Series FX (Daily)":{
		"2024-03-15":{"1. open":"1.0880","4. close":"1.0890"},
		"2024-03-14":{"1. open":"1.0920","4. close":"1.0880"}}}`

	serve := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "FX_DAILY", r.URL.Query().Get("function"))
			_, _ = w.Write([]byte(body))
		}))
	}

	t.Run("exact date", func(t *testing.T) {
		srv := serve(series)
		defer srv.Close()

		c := NewDailySeriesClient(srv.URL, "k", 0)
		rates, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		require.NoError(t, err)
		assert.Equal(t, 1.089, rates[currency.USD])
	})

	t.Run("weekend walks back", func(t *testing.T) {
		srv := serve(series)
		defer srv.Close()

		c := NewDailySeriesClient(srv.URL, "k", 0)
		rates, err := c.Rates(context.Background(), currency.EUR, currency.USD, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		assert.Equal(t, 1.089, rates[currency.USD])
	})

	t.Run("no close nearby", func(t *testing.T) {
		srv := serve(series)
		defer srv.Close()

		c := NewDailySeriesClient(srv.URL, "k", 0)
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

		assert.Equal(t, apperrors.FxInvalidPair, reasonOf(t, err))
	})

	t.Run("rate limit note", func(t *testing.T) {
		srv := serve(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)
		defer srv.Close()

		c := NewDailySeriesClient(srv.URL, "k", 0)
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		assert.Equal(t, apperrors.FxQuotaExceeded, reasonOf(t, err))
	})

	t.Run("error message", func(t *testing.T) {
		srv := serve(`{"Error Message":"Invalid API call."}`)
		defer srv.Close()

		c := NewDailySeriesClient(srv.URL, "k", 0)
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		assert.Equal(t, apperrors.FxInvalidPair, reasonOf(t, err))
	})

	t.Run("missing key", func(t *testing.T) {
		c := NewDailySeriesClient("http://127.0.0.1:1", "", 0)
		_, err := c.Rates(context.Background(), currency.EUR, currency.USD, testDate)

		assert.ErrorIs(t, err, apperrors.ErrMissingCredential)
	})
}
