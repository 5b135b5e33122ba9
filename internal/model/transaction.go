package model

import "time"

// Transaction sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Transaction is a buy or sell of a whole number of shares of one stock.
// Seq is the insertion order and breaks ties between transactions on the same date.
type Transaction struct {
	ID              string    `json:"id"`
	Seq             int64     `json:"-"`
	StockID         string    `json:"stockId"`
	StockSymbol     string    `json:"stockSymbol"`
	Side            string    `json:"side"`
	Quantity        int64     `json:"quantity"`
	PricePerShare   float64   `json:"pricePerShare"`
	Currency        string    `json:"currency"`
	FeeAmount       *float64  `json:"feeAmount,omitempty"`
	FeeCurrency     *string   `json:"feeCurrency,omitempty"`
	FxRate          *float64  `json:"fxRate,omitempty"`
	FxError         *string   `json:"fxError,omitempty"`
	TransactionDate time.Time `json:"transactionDate"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Fee returns the fee amount and its currency, defaulting to the trade currency.
func (t Transaction) Fee() (float64, string) {
	if t.FeeAmount == nil {
		return 0, t.Currency
	}
	if t.FeeCurrency == nil || *t.FeeCurrency == "" {
		return *t.FeeAmount, t.Currency
	}
	return *t.FeeAmount, *t.FeeCurrency
}

// DuplicateKey identifies an imported trade for duplicate detection.
type DuplicateKey struct {
	Symbol   string
	Side     string
	Date     time.Time
	Quantity int64
	Price    float64
}
