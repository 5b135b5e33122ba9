package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
)

const (
	defaultAttempts  = 3
	defaultRetryBase = time.Second
)

// Options tunes a Resolver. Zero values select the defaults.
type Options struct {
	// Attempts per provider, including the first call. Default 3.
	Attempts int
	// RetryBase is the first backoff delay; later delays double. Default 1s.
	RetryBase time.Duration
	// Supported limits which returned currencies are written to the cache.
	// Empty means every valid code the provider returns.
	Supported []currency.Code
}

// Resolver resolves rates through the cache and a chain of providers.
type Resolver struct {
	store     RateStore
	providers []Provider
	attempts  int
	retryBase time.Duration
	supported map[currency.Code]bool
	ordered   []currency.Code
	group     singleflight.Group
	log       zerolog.Logger
}

// NewResolver creates a Resolver. Providers are consulted in the given order.
func NewResolver(store RateStore, providers []Provider, log zerolog.Logger, opts Options) *Resolver {
	r := &Resolver{
		store:     store,
		providers: providers,
		attempts:  opts.Attempts,
		retryBase: opts.RetryBase,
		log:       log.With().Str("service", "fx").Logger(),
	}
	if r.attempts <= 0 {
		r.attempts = defaultAttempts
	}
	if r.retryBase <= 0 {
		r.retryBase = defaultRetryBase
	}
	if len(opts.Supported) > 0 {
		r.supported = make(map[currency.Code]bool, len(opts.Supported))
		for _, c := range opts.Supported {
			if !r.supported[c] {
				r.ordered = append(r.ordered, c)
			}
			r.supported[c] = true
		}
	}
	return r
}

// Resolve validates the codes and resolves the rate converting one unit of
// base into quote on date.
func (r *Resolver) Resolve(ctx context.Context, base, quote string, date time.Time) Result {
	b, err := currency.Parse(base)
	if err != nil {
		return Result{Date: Day(date), Err: err}
	}
	q, err := currency.Parse(quote)
	if err != nil {
		return Result{Base: b, Date: Day(date), Err: err}
	}
	return r.ResolveCodes(ctx, b, q, date)
}

// ResolveCodes resolves a rate for already validated codes.
//
// A cached row is returned without contacting any provider. On a miss,
// concurrent requests for the same key share one provider round trip.
func (r *Resolver) ResolveCodes(ctx context.Context, base, quote currency.Code, date time.Time) Result {
	res := Result{Base: base, Quote: quote, Date: Day(date)}
	if base == quote {
		res.Value, res.Source = 1.0, SourceIdentity
		return res
	}

	cached, err := r.store.GetRate(ctx, base, quote, res.Date)
	switch {
	case err == nil:
		res.Value, res.Source = cached.Rate, SourceCache
		if cached.Source == model.RateSourceManual {
			res.Source = SourceManual
		}
		return res
	case !errors.Is(err, apperrors.ErrExchangeRateNotFound):
		r.log.Warn().Err(err).Str("pair", res.pair()).Msg("rate cache lookup failed, querying providers")
	}

	key := fmt.Sprintf("%s|%s|%s", base, quote, res.Date.Format(time.DateOnly))
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.fetch(ctx, base, quote, res.Date)
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Source = v.(float64), SourceProvider
	return res
}

// fetch walks the provider chain. A missing credential stops the walk since
// it is a configuration problem, not a provider failure.
func (r *Resolver) fetch(ctx context.Context, base, quote currency.Code, date time.Time) (float64, error) {
	if len(r.providers) == 0 {
		return 0, apperrors.NewFxError(apperrors.FxUnreachable, "", errors.New("no rate provider configured"))
	}

	var lastErr error
	for _, p := range r.providers {
		rates, err := r.fetchWithRetry(ctx, p, base, quote, date)
		if err != nil {
			if errors.Is(err, apperrors.ErrMissingCredential) {
				return 0, err
			}
			r.log.Warn().Err(err).Str("provider", p.Name()).Str("pair", base.String()+"/"+quote.String()).
				Str("date", date.Format(time.DateOnly)).Msg("rate provider failed")
			lastErr = err
			continue
		}

		r.warm(ctx, base, quote, date, rates)

		rate, ok := rates[quote]
		if !ok || rate <= 0 {
			lastErr = apperrors.NewFxError(apperrors.FxInvalidPair, p.Name(), errors.New("pair unavailable"))
			continue
		}
		return rate, nil
	}
	return 0, lastErr
}

func (r *Resolver) fetchWithRetry(ctx context.Context, p Provider, base, quote currency.Code, date time.Time) (map[currency.Code]float64, error) {
	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewExponential(r.retryBase))

	return retry.DoValue(ctx, backoff, func(ctx context.Context) (map[currency.Code]float64, error) {
		rates, err := p.Rates(ctx, base, quote, date)
		if err == nil {
			return rates, nil
		}
		var fxErr *apperrors.FxError
		if errors.As(err, &fxErr) && !fxErr.Retryable() {
			return nil, err
		}
		r.log.Debug().Err(err).Str("provider", p.Name()).Msg("retrying rate download")
		return nil, retry.RetryableError(err)
	})
}

// warm writes every returned rate for the date to the cache. Failures are
// logged; the requested rate is still returned to the caller.
func (r *Resolver) warm(ctx context.Context, base, quote currency.Code, date time.Time, rates map[currency.Code]float64) {
	keep := make(map[currency.Code]float64, len(rates))
	for c, v := range rates {
		if c == base || v <= 0 {
			continue
		}
		if r.supported != nil && !r.supported[c] && c != quote {
			continue
		}
		keep[c] = v
	}
	if len(keep) == 0 {
		return
	}
	if err := r.store.UpsertProviderRates(ctx, base, date, keep); err != nil {
		r.log.Error().Err(err).Str("base", base.String()).Msg("failed to cache provider rates")
	}
}

// Override stores an operator supplied rate. Later resolutions for the same
// key return it until it is overridden again.
func (r *Resolver) Override(ctx context.Context, base, quote string, date time.Time, rate float64) (model.ExchangeRate, error) {
	b, err := currency.Parse(base)
	if err != nil {
		return model.ExchangeRate{}, err
	}
	q, err := currency.Parse(quote)
	if err != nil {
		return model.ExchangeRate{}, err
	}
	if rate <= 0 {
		return model.ExchangeRate{}, fmt.Errorf("rate must be positive, got %v", rate)
	}
	return r.store.UpsertManualRate(ctx, b, q, Day(date), rate)
}

// RefreshRates makes sure rates from base to every supported currency are
// cached for date. Per-pair download failures are logged and skipped; a
// missing credential aborts the refresh. It returns the number of pairs
// that resolved.
func (r *Resolver) RefreshRates(ctx context.Context, base currency.Code, date time.Time) (int, error) {
	resolved := 0
	for _, c := range r.ordered {
		if c == base {
			continue
		}
		res := r.ResolveCodes(ctx, base, c, date)
		if res.Err != nil {
			if errors.Is(res.Err, apperrors.ErrMissingCredential) {
				return resolved, res.Err
			}
			r.log.Warn().Err(res.Err).Str("pair", res.pair()).Msg("refresh skipped pair")
			continue
		}
		resolved++
	}
	return resolved, nil
}

// Supported returns the currencies the resolver caches.
func (r *Resolver) Supported() []currency.Code {
	return append([]currency.Code(nil), r.ordered...)
}
