package quote

import (
	"fmt"

	"github.com/taipay/cashme/internal/models"
)

// ComputeQuote converts inputAmount of token into local currency, takes the
// merchant's commission off the converted amount and checks the result
// against the merchant's remaining daily limit. No rounding is applied.
func ComputeQuote(inputAmount float64, token models.Token, merchant models.Merchant) (models.Quote, error) {
	if !isFinite(inputAmount) || inputAmount <= 0 {
		return models.Quote{}, fmt.Errorf("%w: amount must be a positive number, got %v", ErrInvalidAmount, inputAmount)
	}
	if !isFinite(token.Rate) || token.Rate <= 0 {
		return models.Quote{}, fmt.Errorf("%w: token %s has rate %v", ErrInvalidConfiguration, token.Symbol, token.Rate)
	}
	pct := merchant.CommissionPercent
	if !isFinite(pct) || pct < 0 || pct > 100 {
		return models.Quote{}, fmt.Errorf("%w: merchant %s has commission %v%%", ErrInvalidConfiguration, merchant.WalletAddress, pct)
	}
	if !isFinite(merchant.DailyLimit) || merchant.DailyLimit < 0 {
		return models.Quote{}, fmt.Errorf("%w: merchant %s has daily limit %v", ErrInvalidConfiguration, merchant.WalletAddress, merchant.DailyLimit)
	}

	localAmount := inputAmount * token.Rate
	if !isFinite(localAmount) {
		return models.Quote{}, fmt.Errorf("%w: amount %v overflows at rate %v", ErrInvalidAmount, inputAmount, token.Rate)
	}
	// pct/100 <= 1, so the product never exceeds localAmount.
	commissionAmount := localAmount * (pct / 100)

	if localAmount > merchant.DailyLimit {
		return models.Quote{}, &DailyLimitExceededError{Attempted: localAmount, Limit: merchant.DailyLimit}
	}

	return models.Quote{
		TokenSymbol:      token.Symbol,
		InputAmount:      inputAmount,
		LocalAmount:      localAmount,
		CommissionAmount: commissionAmount,
		FinalAmount:      localAmount - commissionAmount,
		Accepted:         true,
	}, nil
}

// ApplyDailyLimitDeduction returns the merchant's daily limit after
// amountUsed has been spent. It refuses to produce a negative limit.
func ApplyDailyLimitDeduction(merchant models.Merchant, amountUsed float64) (float64, error) {
	if !isFinite(amountUsed) || amountUsed <= 0 {
		return 0, fmt.Errorf("%w: amount used must be a positive number, got %v", ErrInvalidAmount, amountUsed)
	}
	if amountUsed > merchant.DailyLimit {
		return 0, fmt.Errorf("%w: amount used %v exceeds remaining daily limit %v", ErrInvalidAmount, amountUsed, merchant.DailyLimit)
	}
	return merchant.DailyLimit - amountUsed, nil
}
