package orchestrator

import "time"

const (
	DefaultProviderTimeout = 30 * time.Second
	DefaultCurrency        = "NGN"

	defaultNarration = "Wallet transfer"
)
