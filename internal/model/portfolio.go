package model

import "time"

// CostBasisResult is the valuation of one open position in the base currency.
// It is derived on demand and never persisted.
type CostBasisResult struct {
	Quantity                int64   `json:"quantity"`
	AvgCostBasis            float64 `json:"avgCostBasis"`            // per share, base currency
	AvgCostOriginalCurrency float64 `json:"avgCostOriginalCurrency"` // per share, trade currency
	CostBasisBaseCcy        float64 `json:"costBasisBaseCcy"`
	CurrentValueBaseCcy     float64 `json:"currentValueBaseCcy"`
	Gain                    float64 `json:"gain"`
	GainPercent             float64 `json:"gainPercent"`
	FeesPaidBaseCcy         float64 `json:"feesPaidBaseCcy"`
	RealizedGain            float64 `json:"realizedGain"` // closed lots, net of fees

	// FxFallbacks lists transactions valued with a substituted 1.0 rate.
	FxFallbacks []string `json:"fxFallbacks,omitempty"`
}

// Holding is an open position with its valuation.
type Holding struct {
	Stock
	CostBasisResult
	BaseCurrency string `json:"baseCurrency"`
}

// PortfolioSummary aggregates all holdings in the base currency.
type PortfolioSummary struct {
	BaseCurrency      string  `json:"baseCurrency"`
	TotalValue        float64 `json:"totalValue"`
	TotalCostBasis    float64 `json:"totalCostBasis"`
	TotalGain         float64 `json:"totalGain"`
	TotalGainPercent  float64 `json:"totalGainPercent"`
	TotalFeesPaid     float64 `json:"totalFeesPaid"`
	TotalRealizedGain float64 `json:"totalRealizedGain"`
	NetGainAfterFees  float64 `json:"netGainAfterFees"`
	StockCount        int     `json:"stockCount"`
	FxFallbackCount   int     `json:"fxFallbackCount"`
}

// TimelinePoint is the portfolio state at the end of one calendar day.
type TimelinePoint struct {
	Date              time.Time `json:"date"`
	MarketValueOnly   float64   `json:"marketValueOnly"`
	WithContributions float64   `json:"withContributions"`
}
