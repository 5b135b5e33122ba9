// Package quote fetches the latest market price of a stock symbol.
//
// Several providers are consulted in order behind a TTL cache and a shared
// rate limiter. A provider that confirms it has no data for a symbol returns
// apperrors.ErrQuoteUnavailable; any other error is a transport or provider
// failure and the next provider is tried.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

// Quote is the latest known price of a symbol.
type Quote struct {
	Symbol      string
	Price       float64
	Currency    string // ISO code reported by the provider, may be empty
	CompanyName string // may be empty
	Provider    string
	AsOf        time.Time
}

// Provider returns the latest quote for one symbol.
type Provider interface {
	Name() string
	LatestQuote(ctx context.Context, symbol string) (Quote, error)
}

// Service chains providers behind a cache.
type Service struct {
	providers []Provider
	cache     *cache.Cache
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewService creates a quote service. The cache's default expiration is the
// quote TTL. A nil limiter disables throttling.
func NewService(providers []Provider, c *cache.Cache, limiter *rate.Limiter, log zerolog.Logger) *Service {
	return &Service{
		providers: providers,
		cache:     c,
		limiter:   limiter,
		log:       log.With().Str("service", "quote").Logger(),
	}
}

// Latest returns the cached quote for symbol or asks the providers in order.
func (s *Service) Latest(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", apperrors.ErrQuoteUnavailable)
	}
	if v, ok := s.cache.Get(symbol); ok {
		return v.(Quote), nil
	}

	var lastErr error
	unavailable := 0
	for _, p := range s.providers {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return Quote{}, err
			}
		}

		q, err := p.LatestQuote(ctx, symbol)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrQuoteUnavailable):
				unavailable++
				s.log.Debug().Str("provider", p.Name()).Str("symbol", symbol).Msg("no quote")
			case errors.Is(err, apperrors.ErrMissingCredential):
				s.log.Debug().Str("provider", p.Name()).Msg("provider not configured, skipping")
			default:
				s.log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("quote provider failed")
			}
			lastErr = err
			continue
		}

		q.Symbol = symbol
		q.Provider = p.Name()
		s.cache.SetDefault(symbol, q)
		return q, nil
	}

	if lastErr == nil || unavailable > 0 {
		return Quote{}, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, symbol)
	}
	return Quote{}, lastErr
}
