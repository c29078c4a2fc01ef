package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedService = errors.New("service has no loyalty pricing")
	ErrNegativeCount      = errors.New("daily purchase count cannot be negative")
)

// OutOfRangeError reports an amount outside the configured bounds.
type OutOfRangeError struct {
	Operation string
	Amount    decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s amount %s must be between %s and %s",
		e.Operation, e.Amount.StringFixed(2), e.Min.StringFixed(2), e.Max.StringFixed(2))
}
