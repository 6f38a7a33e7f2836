package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/events"
	"github.com/taipay/cashme/internal/interfaces"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/quote"
	"github.com/taipay/cashme/internal/telemetry"
)

func limitLockKey(walletAddress string) string {
	return strings.ToLower(strings.TrimSpace(walletAddress))
}

// deductDailyLimit performs the read-modify-write of a merchant's daily
// limit. Callers must hold the merchant's limit lock; the compare-and-set
// update catches writers that bypass it.
func deductDailyLimit(
	ctx context.Context,
	repo interfaces.MerchantRepository,
	publisher interfaces.EventPublisher,
	merchant *models.Merchant,
	amountUsed float64,
	now time.Time,
) (float64, error) {
	newLimit, err := quote.ApplyDailyLimitDeduction(*merchant, amountUsed)
	if err != nil {
		if errors.Is(err, quote.ErrInvalidAmount) && amountUsed > merchant.DailyLimit {
			telemetry.DailyLimitRejections.Inc()
		}
		return 0, err
	}

	rows, err := repo.UpdateDailyLimit(ctx, merchant.WalletAddress, merchant.DailyLimit, newLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to update daily limit: %w", err)
	}
	if rows == 0 {
		return 0, ErrConcurrentUpdate
	}

	event := models.LimitEvent{
		MerchantAddress: merchant.WalletAddress,
		PreviousLimit:   merchant.DailyLimit,
		DailyLimit:      newLimit,
		AmountUsed:      amountUsed,
		Timestamp:       now,
	}
	if err := publisher.Publish(ctx, events.TopicMerchantLimitUpdated, merchant.WalletAddress, event); err != nil {
		telemetry.Logger.Error("Failed to publish limit update",
			zap.String("merchant", merchant.WalletAddress),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Merchant daily limit updated",
		zap.String("merchant", merchant.WalletAddress),
		zap.Float64("previous_limit", merchant.DailyLimit),
		zap.Float64("daily_limit", newLimit),
		zap.Float64("amount_used", amountUsed),
	)
	return newLimit, nil
}
