package errors

import "net/http"

var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "invalid request",
		Status:  http.StatusBadRequest,
	}
	ErrOutOfRange = &DomainError{
		Code:    "OUT_OF_RANGE",
		Message: "amount is outside the allowed range",
		Status:  http.StatusBadRequest,
	}
	ErrInsufficientBalance = &DomainError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
		Status:  http.StatusPaymentRequired,
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
		Status:  http.StatusNotFound,
	}
	ErrWalletInactive = &DomainError{
		Code:    "WALLET_INACTIVE",
		Message: "wallet is not active",
		Status:  http.StatusForbidden,
	}
	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "resource not found",
		Status:  http.StatusNotFound,
	}
	ErrInternal = &DomainError{
		Code:    "INTERNAL",
		Message: "something went wrong, please try again later",
		Status:  http.StatusInternalServerError,
	}
)

// Provider failures, named after the step that failed.
var (
	ErrVerificationFailed = &DomainError{
		Code:    "VERIFICATION_FAILED",
		Message: "account verification failed",
		Status:  http.StatusBadGateway,
	}
	ErrResolutionFailed = &DomainError{
		Code:    "RESOLUTION_FAILED",
		Message: "recipient resolution failed",
		Status:  http.StatusBadGateway,
	}
	ErrTransferFailed = &DomainError{
		Code:    "TRANSFER_FAILED",
		Message: "transfer failed",
		Status:  http.StatusBadGateway,
	}
	ErrSettlementFailed = &DomainError{
		Code:    "SETTLEMENT_FAILED",
		Message: "purchase failed",
		Status:  http.StatusBadGateway,
	}
)

var (
	ErrNothingToCollect = &DomainError{
		Code:    "NOTHING_TO_COLLECT",
		Message: "no uncollected revenue available",
		Status:  http.StatusConflict,
	}
	ErrCollectionInProgress = &DomainError{
		Code:    "COLLECTION_IN_PROGRESS",
		Message: "a revenue collection is already running",
		Status:  http.StatusConflict,
	}
)
