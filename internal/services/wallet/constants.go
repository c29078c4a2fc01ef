package wallet

import "time"

const (
	DefaultCurrency    = "NGN"
	DefaultLockTimeout = 45 * time.Second
)
