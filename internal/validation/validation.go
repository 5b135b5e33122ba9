package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/currency"
)

const dateLayout = "2006-01-02"

// Error collects field level validation failures.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

func validateDate(errors map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		errors[field] = field + " is required"
		return
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		errors[field] = "must be in YYYY-MM-DD format"
	}
}

func validateCurrency(errors map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		errors[field] = field + " is required"
		return
	}
	if _, err := currency.Parse(value); err != nil {
		errors[field] = err.Error()
	}
}
