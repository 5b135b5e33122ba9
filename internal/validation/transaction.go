package validation

import (
	"fmt"
	"strings"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/model"
)

// ValidTransactionSide contains the allowed side values.
var ValidTransactionSide = map[string]bool{
	model.SideBuy: true, model.SideSell: true,
}

// ValidateCreateTransaction validates a manual transaction.
//
// Required fields:
//   - symbol: non-blank
//   - side: buy or sell
//   - date: YYYY-MM-DD
//   - quantity: positive whole number
//   - pricePerShare: zero or positive
//   - currency: three-letter code
//
// feeAmount must not be negative and feeCurrency, when given, must be a
// three-letter code.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	side := strings.ToLower(strings.TrimSpace(req.Side))
	if side == "" {
		errors["side"] = "side is required"
	} else if !ValidTransactionSide[side] {
		errors["side"] = fmt.Sprintf("invalid side: %s", req.Side)
	}

	validateDate(errors, "date", req.Date)

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be positive"
	}
	if req.PricePerShare < 0 {
		errors["pricePerShare"] = "pricePerShare must not be negative"
	}

	validateCurrency(errors, "currency", req.Currency)

	if req.FeeAmount != nil && *req.FeeAmount < 0 {
		errors["feeAmount"] = "feeAmount must not be negative"
	}
	if req.FeeCurrency != nil && *req.FeeCurrency != "" {
		validateCurrency(errors, "feeCurrency", *req.FeeCurrency)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
