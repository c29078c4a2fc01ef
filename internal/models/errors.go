package models

import "errors"

var (
	ErrMissingReference       = errors.New("transaction reference is required")
	ErrMissingUser            = errors.New("transaction user is required")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidStatus          = errors.New("invalid transaction status")
	ErrNegativeAmount         = errors.New("amount cannot be negative")
	ErrRevenueOwner           = errors.New("revenue records belong to the system account")
	ErrRevenueStatus          = errors.New("revenue records are created completed, collections may start pending")
	ErrSystemOwner            = errors.New("system account only owns revenue records")
	ErrInvalidMetadata        = errors.New("invalid transaction metadata")
)
