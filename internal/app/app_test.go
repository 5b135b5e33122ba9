package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/config"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewRateProviders(t *testing.T) {
	t.Run("table provider only without a key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Quote.AlphaVantageKey = ""

		assert.Len(t, NewRateProviders(cfg), 1)
	})

	t.Run("daily series added with a key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Quote.AlphaVantageKey = "demo"

		assert.Len(t, NewRateProviders(cfg), 2)
	})
}

func TestNewServices(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testConfig(t)

	svc := NewServices(db, cfg, zerolog.Nop())

	assert.NotNil(t, svc.System)
	assert.NotNil(t, svc.Import)
	assert.NotNil(t, svc.Transaction)
	assert.NotNil(t, svc.Price)
	assert.NotNil(t, svc.Fx)
	require.NotNil(t, svc.Portfolio)
	assert.Equal(t, cfg.Portfolio.BaseCurrency, svc.Portfolio.BaseCurrency())

	t.Run("scheduler accepts the default schedules", func(t *testing.T) {
		_, err := NewScheduler(svc, cfg, zerolog.Nop())
		assert.NoError(t, err)
	})

	t.Run("scheduler rejects a bad schedule", func(t *testing.T) {
		bad := *cfg
		bad.Scheduler.PriceUpdate = "often"

		_, err := NewScheduler(svc, &bad, zerolog.Nop())
		assert.Error(t, err)
	})
}
