package service

import (
	"math"
	"time"
)

const dateLayout = "2006-01-02"

const (
	// RoundingPrecision rounds monetary totals to cents.
	RoundingPrecision = 100
	// PricePrecision rounds per-share figures to four decimals.
	PricePrecision = 10000
)

// round rounds a float64 value to two decimal places using the package RoundingPrecision constant.
// This function is used throughout the service layer to ensure consistent rounding of monetary
// values in API responses.
//
// The rounding uses the standard "round half up" approach via math.Round.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(0.005)       // returns 0.01
//	round(1.994)       // returns 1.99
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}

// roundPrice rounds a per-share value to PricePrecision.
func roundPrice(value float64) float64 {
	return math.Round(value*PricePrecision) / PricePrecision
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
