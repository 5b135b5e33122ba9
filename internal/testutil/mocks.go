package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/fx"
	"github.com/pfolio/portfolio-api/internal/quote"
)

// MockRateProvider is an fx.Provider returning fixed rates.
// It counts calls so tests can assert that the cache was used.
type MockRateProvider struct {
	// Table is returned for every base and date.
	Table map[string]float64
	// Err is returned instead of Table when set.
	Err error
	// FailOnCall fails the test if the provider is called at all.
	FailOnCall *testing.T

	calls atomic.Int32
}

// NewMockRateProvider creates a provider that returns rates.
func NewMockRateProvider(rates map[string]float64) *MockRateProvider {
	return &MockRateProvider{Table: rates}
}

// WithError configures the mock to return the specified error.
func (m *MockRateProvider) WithError(err error) *MockRateProvider {
	m.Err = err
	return m
}

// MustNotBeCalled fails t if the provider is ever queried.
func (m *MockRateProvider) MustNotBeCalled(t *testing.T) *MockRateProvider {
	m.FailOnCall = t
	return m
}

// Calls returns how many times Rates was called.
func (m *MockRateProvider) Calls() int {
	return int(m.calls.Load())
}

func (m *MockRateProvider) Name() string { return "mock" }

func (m *MockRateProvider) Rates(_ context.Context, base, _ currency.Code, date time.Time) (map[currency.Code]float64, error) {
	m.calls.Add(1)
	if m.FailOnCall != nil {
		m.FailOnCall.Errorf("rate provider called for %s on %s", base, date.Format("2006-01-02"))
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[currency.Code]float64, len(m.Table))
	for code, rate := range m.Table {
		out[currency.MustParse(code)] = rate
	}
	return out, nil
}

// StaticRates is an in-memory rate resolver for engine tests. Pairs are
// keyed "BASE/QUOTE" and apply to every date; the inverse pair is derived.
// Unknown pairs fail with an unreachable FxError.
type StaticRates struct {
	mu    sync.Mutex
	rates map[string]float64
	asked []string
}

// NewStaticRates creates a resolver with the given pairs.
func NewStaticRates(rates map[string]float64) *StaticRates {
	return &StaticRates{rates: rates}
}

// Asked returns every "BASE/QUOTE@DATE" lookup in call order.
func (s *StaticRates) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

func (s *StaticRates) Resolve(_ context.Context, base, quoteCcy string, date time.Time) fx.Result {
	s.mu.Lock()
	s.asked = append(s.asked, fmt.Sprintf("%s/%s@%s", base, quoteCcy, date.Format("2006-01-02")))
	s.mu.Unlock()

	res := fx.Result{Date: fx.Day(date)}
	b, err := currency.Parse(base)
	if err != nil {
		res.Err = err
		return res
	}
	q, err := currency.Parse(quoteCcy)
	if err != nil {
		res.Err = err
		return res
	}
	res.Base, res.Quote = b, q

	if b == q {
		res.Value, res.Source = 1, fx.SourceIdentity
		return res
	}
	if r, ok := s.rates[b.String()+"/"+q.String()]; ok {
		res.Value, res.Source = r, fx.SourceCache
		return res
	}
	if r, ok := s.rates[q.String()+"/"+b.String()]; ok && r > 0 {
		res.Value, res.Source = 1/r, fx.SourceCache
		return res
	}
	res.Err = apperrors.NewFxError(apperrors.FxUnreachable, "static", fmt.Errorf("no rate for %s/%s", b, q))
	return res
}

// MockQuoteProvider is a quote.Provider backed by a map of symbol to quote.
type MockQuoteProvider struct {
	ProviderName string
	Quotes       map[string]quote.Quote
	Err          error

	calls atomic.Int32
}

// NewMockQuoteProvider creates a provider named name.
func NewMockQuoteProvider(name string, quotes map[string]quote.Quote) *MockQuoteProvider {
	return &MockQuoteProvider{ProviderName: name, Quotes: quotes}
}

// Calls returns how many times LatestQuote was called.
func (m *MockQuoteProvider) Calls() int {
	return int(m.calls.Load())
}

func (m *MockQuoteProvider) Name() string { return m.ProviderName }

func (m *MockQuoteProvider) LatestQuote(_ context.Context, symbol string) (quote.Quote, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return quote.Quote{}, m.Err
	}
	q, ok := m.Quotes[symbol]
	if !ok {
		return quote.Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}
	q.Symbol = symbol
	return q, nil
}
