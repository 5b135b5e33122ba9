package model

import "time"

// Exchange rate provenance.
const (
	RateSourceProvider = "provider"
	RateSourceManual   = "manual"
)

// ExchangeRate is a cached conversion rate: 1 Base = Rate Quote on Date.
type ExchangeRate struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Date      time.Time `json:"date"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// RateLookup is a resolved rate and where it came from.
type RateLookup struct {
	Base   string    `json:"base"`
	Quote  string    `json:"quote"`
	Date   time.Time `json:"date"`
	Rate   float64   `json:"rate"`
	Source string    `json:"source"`
}

// RateRefresh reports how many pairs were cached by a refresh.
type RateRefresh struct {
	Base     string    `json:"base"`
	Date     time.Time `json:"date"`
	Resolved int       `json:"resolved"`
}
