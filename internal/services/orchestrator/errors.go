package orchestrator

import (
	"errors"

	apperrors "kudi/internal/errors"
	"kudi/internal/providers"
	"kudi/internal/services/pricing"
)

// ErrCashbackAlreadyApplied guards against crediting one purchase twice. It
// never reaches users.
var ErrCashbackAlreadyApplied = errors.New("cashback already applied for source transaction")

func required(field string) error {
	return apperrors.ErrValidation.WithMessage("%s is required", field)
}

// pricingError maps engine failures onto validation errors.
func pricingError(err error) error {
	var oor *pricing.OutOfRangeError
	switch {
	case errors.As(err, &oor):
		return apperrors.ErrOutOfRange.WithMessage("%s", oor.Error())
	case errors.Is(err, pricing.ErrUnsupportedService):
		return apperrors.ErrValidation.WithMessage("unsupported service")
	}
	return apperrors.ErrInternal.Wrap(err)
}

// providerFailure keeps only the provider's user-safe message.
func providerFailure(kind *apperrors.DomainError, err error) error {
	return kind.WithMessage("%s", providers.MessageOf(err)).Wrap(err)
}
