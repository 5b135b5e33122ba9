package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/model"
)

// HistoryFilters bounds a portfolio history request. Nil means the default.
type HistoryFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// TransactionFilters narrows a transaction listing.
type TransactionFilters struct {
	Symbol  string
	Side    string
	SortDir string
}

// ParseHistoryFilters extracts the optional startDate and endDate query parameters.
//
// Validation rules:
//   - startDate/endDate: Must be valid date/datetime strings (YYYY-MM-DD or RFC3339)
//   - startDate must not be after endDate when both are given
func ParseHistoryFilters(startDateParam, endDateParam string) (*HistoryFilters, error) {
	filters := &HistoryFilters{}

	if startDateParam != "" {
		startTime, err := parseFilterTime(startDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate format: %w", err)
		}
		filters.StartDate = &startTime
	}

	if endDateParam != "" {
		endTime, err := parseFilterTime(endDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate format: %w", err)
		}
		filters.EndDate = &endTime
	}

	if filters.StartDate != nil && filters.EndDate != nil && filters.StartDate.After(*filters.EndDate) {
		return nil, fmt.Errorf("%w: startDate is after endDate", apperrors.ErrInvalidDateRange)
	}

	return filters, nil
}

// ParseTransactionFilters extracts symbol, side and sortDir. sortDir defaults to "asc".
func ParseTransactionFilters(symbolParam, sideParam, sortDirParam string) (*TransactionFilters, error) {
	filters := &TransactionFilters{
		Symbol: strings.ToUpper(strings.TrimSpace(symbolParam)),
	}

	if sideParam != "" {
		side := strings.ToLower(sideParam)
		if side != model.SideBuy && side != model.SideSell {
			return nil, fmt.Errorf("invalid side: must be '%s' or '%s'", model.SideBuy, model.SideSell)
		}
		filters.Side = side
	}

	if sortDirParam != "" {
		sortDir := strings.ToLower(sortDirParam)
		if sortDir != "asc" && sortDir != "desc" {
			return nil, fmt.Errorf("invalid sortDir: must be 'asc' or 'desc'")
		}
		filters.SortDir = sortDir
	} else {
		filters.SortDir = "asc"
	}

	return filters, nil
}

// parseFilterTime accepts YYYY-MM-DD, RFC3339, and RFC3339 with milliseconds.
func parseFilterTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
