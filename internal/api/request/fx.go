package request

// FxOverrideRequest sets a manual exchange rate: 1 Base = Rate Quote on Date.
type FxOverrideRequest struct {
	Base  string  `json:"base"`
	Quote string  `json:"quote"`
	Date  string  `json:"date"`
	Rate  float64 `json:"rate"`
}
