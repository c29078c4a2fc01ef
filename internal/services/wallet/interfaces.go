package wallet

import (
	"context"

	"kudi/internal/models"
)

// Cache is the snapshot cache used for balance reads.
type Cache interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID string) error
}

type noopCache struct{}

func (noopCache) GetWallet(context.Context, string) (*models.Wallet, error) { return nil, nil }
func (noopCache) CacheWallet(context.Context, *models.Wallet) error         { return nil }
func (noopCache) InvalidateWallet(context.Context, string) error            { return nil }
