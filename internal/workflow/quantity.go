package workflow

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

// maxQuantity bounds operator input so sums never overflow.
const maxQuantity = 1_000_000_000

// ParseQuantity converts operator text into a whole, non-negative quantity.
// Empty, fractional, negative and non-numeric input is rejected rather than coerced to zero.
func ParseQuantity(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "quantity is required")
	}
	if strings.HasPrefix(trimmed, "-") {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("quantity %q must not be negative", trimmed))
	}
	value, err := strconv.Atoi(strings.TrimPrefix(trimmed, "+"))
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("quantity %q must be a whole number", trimmed))
	}
	if value > maxQuantity {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("quantity %q is too large", trimmed))
	}
	return value, nil
}

func validateQuantity(q int) error {
	if q < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "quantity must not be negative")
	}
	if q > maxQuantity {
		return appErrors.Clone(appErrors.ErrValidation, "quantity is too large")
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
