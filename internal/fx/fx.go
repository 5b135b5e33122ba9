// Package fx resolves currency conversion rates for a given date.
//
// Rates are read from a persistent cache first. On a miss the configured
// providers are queried in order with retry and backoff, and every rate a
// provider returns for that date is written back to the cache. Rows written
// by an operator (manual overrides) always win over provider data.
package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
)

// Provider fetches rates for one date. Implementations return the rates of
// every currency they know relative to base; quote is the currency the caller
// needs and may be used by providers that serve one pair per request.
//
// Errors should be *apperrors.FxError so the resolver can decide whether to retry.
type Provider interface {
	Name() string
	Rates(ctx context.Context, base, quote currency.Code, date time.Time) (map[currency.Code]float64, error)
}

// RateStore persists cached rates.
type RateStore interface {
	// GetRate returns apperrors.ErrExchangeRateNotFound on a miss.
	GetRate(ctx context.Context, base, quote currency.Code, date time.Time) (model.ExchangeRate, error)
	// UpsertProviderRates stores rates relative to base, leaving manual rows untouched.
	UpsertProviderRates(ctx context.Context, base currency.Code, date time.Time, rates map[currency.Code]float64) error
	// UpsertManualRate stores an operator supplied rate tagged manual.
	UpsertManualRate(ctx context.Context, base, quote currency.Code, date time.Time, rate float64) (model.ExchangeRate, error)
}

// Source tells where a resolved rate came from.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceCache    Source = "cache"
	SourceManual   Source = "manual"
	SourceProvider Source = "provider"
)

// Result carries either a resolved rate or the reason resolution failed.
// Callers pick Rate (fail hard) or OrFallback (fail soft) explicitly.
type Result struct {
	Base   currency.Code
	Quote  currency.Code
	Date   time.Time
	Value  float64
	Source Source
	Err    error
}

// OK reports whether a rate was resolved.
func (r Result) OK() bool { return r.Err == nil }

// Rate returns the resolved rate or the failure.
func (r Result) Rate() (float64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	return r.Value, nil
}

// OrFallback returns the resolved rate, or fallback and false when resolution failed.
func (r Result) OrFallback(fallback float64) (float64, bool) {
	if r.Err != nil {
		return fallback, false
	}
	return r.Value, true
}

func (r Result) pair() string {
	return fmt.Sprintf("%s/%s", r.Base, r.Quote)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
