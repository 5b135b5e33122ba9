package request

// CreateTransactionRequest records a manual buy or sell.
type CreateTransactionRequest struct {
	Symbol        string   `json:"symbol"`
	Side          string   `json:"side"`
	Date          string   `json:"date"`
	Quantity      int64    `json:"quantity"`
	PricePerShare float64  `json:"pricePerShare"`
	Currency      string   `json:"currency"`
	FeeAmount     *float64 `json:"feeAmount,omitempty"`
	FeeCurrency   *string  `json:"feeCurrency,omitempty"`
}
