package validation

import "github.com/pfolio/portfolio-api/internal/api/request"

// ValidateFxOverride checks a manual rate: both codes valid, a date, and a positive rate.
func ValidateFxOverride(req request.FxOverrideRequest) error {
	errors := make(map[string]string)

	validateCurrency(errors, "base", req.Base)
	validateCurrency(errors, "quote", req.Quote)
	validateDate(errors, "date", req.Date)
	if req.Rate <= 0 {
		errors["rate"] = "rate must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateRateQuery checks the parameters of a rate lookup. date may be empty.
func ValidateRateQuery(base, quote, date string) error {
	errors := make(map[string]string)

	validateCurrency(errors, "base", base)
	validateCurrency(errors, "quote", quote)
	if date != "" {
		validateDate(errors, "date", date)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
