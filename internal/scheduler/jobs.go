package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/model"
	"github.com/pfolio/portfolio-api/internal/service"
)

// FxRefresher refreshes a day's rates and backfills transactions.
type FxRefresher interface {
	RefreshAndBackfill(ctx context.Context, date time.Time, backfill service.Backfiller) (service.FxRefreshReport, error)
}

// PriceUpdater refreshes the latest stock prices.
type PriceUpdater interface {
	UpdatePrices(ctx context.Context) ([]model.PriceUpdate, error)
}

// FxRefreshJob caches today's rates for the base currency and then records
// rates on transactions that lack one.
type FxRefreshJob struct {
	fx       FxRefresher
	backfill service.Backfiller
	log      zerolog.Logger
}

// NewFxRefreshJob creates the daily FX job.
func NewFxRefreshJob(fx FxRefresher, backfill service.Backfiller, log zerolog.Logger) *FxRefreshJob {
	return &FxRefreshJob{fx: fx, backfill: backfill, log: log}
}

func (j *FxRefreshJob) Name() string { return "fx_refresh" }

func (j *FxRefreshJob) Run(ctx context.Context) error {
	report, err := j.fx.RefreshAndBackfill(ctx, time.Time{}, j.backfill)
	if err != nil {
		return err
	}
	j.log.Info().
		Str("job", j.Name()).
		Int("rates", report.Rates.Resolved).
		Int("backfilled", report.Backfill.Updated).
		Int("backfill_failed", report.Backfill.Failed).
		Msg("fx refresh finished")
	return nil
}

// PriceUpdateJob refreshes the latest price of every stock.
type PriceUpdateJob struct {
	prices PriceUpdater
	log    zerolog.Logger
}

// NewPriceUpdateJob creates the price job.
func NewPriceUpdateJob(prices PriceUpdater, log zerolog.Logger) *PriceUpdateJob {
	return &PriceUpdateJob{prices: prices, log: log}
}

func (j *PriceUpdateJob) Name() string { return "price_update" }

func (j *PriceUpdateJob) Run(ctx context.Context) error {
	updates, err := j.prices.UpdatePrices(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, u := range updates {
		if u.Error != "" {
			failed++
		}
	}
	j.log.Info().Str("job", j.Name()).Int("stocks", len(updates)).Int("failed", failed).Msg("price update finished")
	return nil
}
