package validation

import (
	"strings"

	"github.com/pfolio/portfolio-api/internal/api/request"
)

// ValidateImport rejects an import body with no text.
func ValidateImport(req request.ImportRequest) error {
	if strings.TrimSpace(req.Raw) == "" {
		return &Error{Fields: map[string]string{"raw": "raw is required"}}
	}
	return nil
}
