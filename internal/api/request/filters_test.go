package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/apperrors"
)

func TestParseHistoryFilters(t *testing.T) {
	t.Run("no parameters leaves both bounds open", func(t *testing.T) {
		f, err := ParseHistoryFilters("", "")
		require.NoError(t, err)
		assert.Nil(t, f.StartDate)
		assert.Nil(t, f.EndDate)
	})

	t.Run("date and datetime layouts", func(t *testing.T) {
		f, err := ParseHistoryFilters("2024-01-01", "2024-02-01T10:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)
		assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), *f.EndDate)
	})

	t.Run("millisecond precision", func(t *testing.T) {
		f, err := ParseHistoryFilters("2024-01-01T10:00:00.123Z", "")
		require.NoError(t, err)
		assert.Equal(t, 123*int(time.Millisecond), f.StartDate.Nanosecond())
	})

	t.Run("invalid start", func(t *testing.T) {
		_, err := ParseHistoryFilters("01/01/2024", "")
		assert.ErrorContains(t, err, "invalid startDate format")
	})

	t.Run("invalid end", func(t *testing.T) {
		_, err := ParseHistoryFilters("", "tomorrow")
		assert.ErrorContains(t, err, "invalid endDate format")
	})

	// WHY: a reversed range is a client error and must surface as ErrInvalidDateRange.
	t.Run("start after end", func(t *testing.T) {
		_, err := ParseHistoryFilters("2024-03-01", "2024-02-01")
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})
}

func TestParseTransactionFilters(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := ParseTransactionFilters("", "", "")
		require.NoError(t, err)
		assert.Equal(t, "asc", f.SortDir)
		assert.Empty(t, f.Symbol)
		assert.Empty(t, f.Side)
	})

	t.Run("normalises case", func(t *testing.T) {
		f, err := ParseTransactionFilters(" aapl ", "SELL", "DESC")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", f.Symbol)
		assert.Equal(t, "sell", f.Side)
		assert.Equal(t, "desc", f.SortDir)
	})

	t.Run("invalid side", func(t *testing.T) {
		_, err := ParseTransactionFilters("", "dividend", "")
		assert.ErrorContains(t, err, "invalid side")
	})

	t.Run("invalid sortDir", func(t *testing.T) {
		_, err := ParseTransactionFilters("", "", "up")
		assert.ErrorContains(t, err, "invalid sortDir")
	})
}
