package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
	"github.com/pfolio/portfolio-api/internal/model"
)

// ExchangeRateRepository is the persistent FX rate cache. Rows are unique per
// (base, quote, date); rows with source "manual" are never replaced by
// provider writes.
type ExchangeRateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewExchangeRateRepository creates a new ExchangeRateRepository with the provided database connection.
func NewExchangeRateRepository(db *sql.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db, now: time.Now}
}

// GetRate returns apperrors.ErrExchangeRateNotFound on a miss.
func (r *ExchangeRateRepository) GetRate(ctx context.Context, base, quote currency.Code, date time.Time) (model.ExchangeRate, error) {
	query := `
		SELECT base, quote, date, rate, source, fetched_at
		FROM exchange_rate
		WHERE base = ? AND quote = ? AND date = ?
	`
	var er model.ExchangeRate
	var dateStr, fetchedStr string
	err := r.db.QueryRowContext(ctx, query, base.String(), quote.String(), date.UTC().Format(dateLayout)).
		Scan(&er.Base, &er.Quote, &dateStr, &er.Rate, &er.Source, &fetchedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExchangeRate{}, apperrors.ErrExchangeRateNotFound
	}
	if err != nil {
		return model.ExchangeRate{}, fmt.Errorf("failed to query exchange_rate table: %w", err)
	}

	if er.Date, err = ParseTime(dateStr); err != nil {
		return model.ExchangeRate{}, err
	}
	if er.FetchedAt, err = ParseTime(fetchedStr); err != nil {
		return model.ExchangeRate{}, err
	}
	return er, nil
}

// UpsertProviderRates writes every rate for one base and date in a single
// SQL transaction. Manual rows for the same key are left untouched.
func (r *ExchangeRateRepository) UpsertProviderRates(ctx context.Context, base currency.Code, date time.Time, rates map[currency.Code]float64) error {
	if len(rates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exchange_rate (base, quote, date, rate, source, fetched_at)
		VALUES (?, ?, ?, ?, 'provider', ?)
		ON CONFLICT (base, quote, date) DO UPDATE SET
			rate = excluded.rate,
			source = excluded.source,
			fetched_at = excluded.fetched_at
		WHERE exchange_rate.source <> 'manual'
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare exchange rate upsert: %w", err)
	}
	defer stmt.Close()

	day := date.UTC().Format(dateLayout)
	fetched := r.now().UTC().Format(time.RFC3339)
	for quote, rate := range rates {
		if _, err := stmt.ExecContext(ctx, base.String(), quote.String(), day, rate, fetched); err != nil {
			return fmt.Errorf("failed to upsert exchange rate %s/%s: %w", base, quote, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exchange rates: %w", err)
	}
	return nil
}

// UpsertManualRate stores an operator supplied rate, replacing any row for the key.
func (r *ExchangeRateRepository) UpsertManualRate(ctx context.Context, base, quote currency.Code, date time.Time, rate float64) (model.ExchangeRate, error) {
	er := model.ExchangeRate{
		Base:      base.String(),
		Quote:     quote.String(),
		Date:      date.UTC(),
		Rate:      rate,
		Source:    model.RateSourceManual,
		FetchedAt: r.now().UTC().Truncate(time.Second),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exchange_rate (base, quote, date, rate, source, fetched_at)
		VALUES (?, ?, ?, ?, 'manual', ?)
		ON CONFLICT (base, quote, date) DO UPDATE SET
			rate = excluded.rate,
			source = excluded.source,
			fetched_at = excluded.fetched_at
	`, er.Base, er.Quote, er.Date.Format(dateLayout), er.Rate, er.FetchedAt.Format(time.RFC3339))
	if err != nil {
		return model.ExchangeRate{}, fmt.Errorf("failed to upsert manual exchange rate: %w", err)
	}
	return er, nil
}
