package wallet

import (
	"errors"

	apperrors "kudi/internal/errors"
	"kudi/internal/repositories"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be positive")

func insufficient(required, available decimal.Decimal) error {
	return apperrors.ErrInsufficientBalance.WithMessage(
		"insufficient wallet balance: %s required, %s available",
		required.StringFixed(2), available.StringFixed(2))
}

// domainError maps repository failures onto the user-facing catalogue.
func domainError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrWalletNotFound):
		return apperrors.ErrWalletNotFound.Wrap(err)
	case errors.Is(err, repositories.ErrWalletInactive):
		return apperrors.ErrWalletInactive.Wrap(err)
	case errors.Is(err, repositories.ErrInsufficientBalance):
		return apperrors.ErrInsufficientBalance.Wrap(err)
	}
	return err
}
