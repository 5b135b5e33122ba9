package model

import "time"

// Stock is a traded instrument identified by its ticker symbol.
type Stock struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	CompanyName   *string    `json:"companyName,omitempty"`
	CurrentPrice  *float64   `json:"currentPrice,omitempty"`
	PriceCurrency *string    `json:"priceCurrency,omitempty"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// PriceUpdate reports the outcome of refreshing one stock's quote.
type PriceUpdate struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Provider string  `json:"provider,omitempty"`
	Error    string  `json:"error,omitempty"`
}
