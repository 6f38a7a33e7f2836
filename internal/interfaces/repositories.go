package interfaces

import (
	"context"

	"github.com/taipay/cashme/internal/models"
)

// MerchantRepository defines the contract for merchant data access
type MerchantRepository interface {
	CreateMerchant(ctx context.Context, merchant *models.Merchant) error
	GetMerchant(ctx context.Context, walletAddress string) (*models.Merchant, error)
	ListMerchants(ctx context.Context) ([]models.Merchant, error)
	// FindMerchantsNear returns merchants inside a bounding box of radiusKm
	// around point. A nil point or a non-positive radius returns all merchants.
	FindMerchantsNear(ctx context.Context, point *models.Location, radiusKm float64) ([]models.Merchant, error)
	// UpdateDailyLimit sets newLimit only if the stored limit still equals
	// expected, and reports the number of rows changed.
	UpdateDailyLimit(ctx context.Context, walletAddress string, expected, newLimit float64) (int64, error)
}

// TransactionRepository defines the contract for transaction data access
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactionsForUser(ctx context.Context, userAddress string) ([]models.Transaction, error)
	// ListTransactionsForMerchant returns at most limit payments received by
	// the merchant, newest first.
	ListTransactionsForMerchant(ctx context.Context, merchantAddress string, limit int) ([]models.Transaction, error)
	CountCompletedTransactions(ctx context.Context, merchantAddress string) (int64, error)
}
