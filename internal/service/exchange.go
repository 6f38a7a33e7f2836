package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/events"
	"github.com/taipay/cashme/internal/interfaces"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/quote"
	"github.com/taipay/cashme/internal/telemetry"
	"github.com/taipay/cashme/internal/tokens"
	"github.com/taipay/cashme/internal/wallet"
)

type ExchangeService struct {
	merchants    interfaces.MerchantRepository
	transactions interfaces.TransactionRepository
	wallet       interfaces.WalletGateway
	locker       interfaces.Locker
	publisher    interfaces.EventPublisher
	tokens       *tokens.Registry
	radiusKm     float64
	now          func() time.Time
}

func NewExchangeService(
	merchants interfaces.MerchantRepository,
	transactions interfaces.TransactionRepository,
	walletGateway interfaces.WalletGateway,
	locker interfaces.Locker,
	publisher interfaces.EventPublisher,
	registry *tokens.Registry,
	radiusKm float64,
) *ExchangeService {
	return &ExchangeService{
		merchants:    merchants,
		transactions: transactions,
		wallet:       walletGateway,
		locker:       locker,
		publisher:    publisher,
		tokens:       registry,
		radiusKm:     radiusKm,
		now:          time.Now,
	}
}

// DiscoverRequest selects merchants around Location. When Token is set every
// merchant also gets a quote for Amount.
type DiscoverRequest struct {
	Location *models.Location
	Amount   float64
	Token    string
}

type PaymentRequest struct {
	MerchantAddress string  `json:"merchantAddress"`
	Token           string  `json:"token"`
	Amount          float64 `json:"amount"`
}

type PaymentResult struct {
	Transaction models.Transaction `json:"transaction"`
	Quote       models.Quote       `json:"quote"`
	DailyLimit  float64            `json:"dailyLimit"`
	Warnings    []string           `json:"warnings,omitempty"`
}

func (s *ExchangeService) Tokens() []models.Token {
	return s.tokens.All()
}

func (s *ExchangeService) Discover(ctx context.Context, req DiscoverRequest) ([]models.RankedMerchant, error) {
	var tok *models.Token
	if req.Token != "" {
		t, err := s.tokens.Lookup(req.Token)
		if err != nil {
			return nil, err
		}
		if err := checkAmount(req.Amount); err != nil {
			return nil, err
		}
		tok = &t
	}
	if req.Location != nil {
		if err := quote.ValidateLocation(*req.Location); err != nil {
			return nil, err
		}
	}

	merchants, err := s.merchants.FindMerchantsNear(ctx, req.Location, s.radiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchants: %w", err)
	}

	ranked, err := quote.RankMerchants(merchants, req.Location)
	if err != nil {
		return nil, err
	}

	if tok != nil {
		for i := range ranked {
			q, err := quote.ComputeQuote(req.Amount, *tok, ranked[i].Merchant)
			s.observeQuote(tok.Symbol, err)
			if err != nil {
				ranked[i].QuoteError = err.Error()
				continue
			}
			ranked[i].Quote = &q
		}
	}

	telemetry.RankedMerchants.Observe(float64(len(ranked)))
	return ranked, nil
}

func (s *ExchangeService) Quote(ctx context.Context, merchantAddress, tokenSymbol string, amount float64) (models.Quote, *models.Merchant, error) {
	tok, err := s.tokens.Lookup(tokenSymbol)
	if err != nil {
		return models.Quote{}, nil, err
	}
	merchant, err := s.merchants.GetMerchant(ctx, merchantAddress)
	if err != nil {
		return models.Quote{}, nil, err
	}

	q, err := quote.ComputeQuote(amount, tok, *merchant)
	s.observeQuote(tok.Symbol, err)
	if err != nil {
		return models.Quote{}, merchant, err
	}
	return q, merchant, nil
}

// Pay quotes the request under the merchant's limit lock, has the wallet
// provider send the token amount, records the transaction with the quote's
// final amount and deducts the local amount from the merchant's daily limit.
func (s *ExchangeService) Pay(ctx context.Context, session *auth.Session, req PaymentRequest) (*PaymentResult, error) {
	if !session.IsAuthenticated() {
		return nil, auth.ErrNoSession
	}
	to, err := wallet.NormalizeAddress(req.MerchantAddress)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid merchant address", Fields: []string{"merchantAddress"}}
	}
	tok, err := s.tokens.Lookup(req.Token)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, limitLockKey(to))
	if err != nil {
		return nil, err
	}
	defer release()

	merchant, err := s.merchants.GetMerchant(ctx, to)
	if err != nil {
		return nil, err
	}

	q, err := quote.ComputeQuote(req.Amount, tok, *merchant)
	s.observeQuote(tok.Symbol, err)
	if err != nil {
		return nil, err
	}

	units, err := tokens.ToSmallestUnit(tok, req.Amount)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Fields: []string{"amount"}}
	}

	if err := s.wallet.SwitchChain(ctx, session.ActiveAddress(), tok.ChainID); err != nil {
		telemetry.PaymentsTotal.WithLabelValues(tok.Symbol, string(models.TransactionFailed)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	hash, err := s.wallet.SendPayment(ctx, session.ActiveAddress(), merchant.WalletAddress, tok.ChainID, units)
	if err != nil {
		telemetry.PaymentsTotal.WithLabelValues(tok.Symbol, string(models.TransactionFailed)).Inc()
		telemetry.Logger.Warn("Payment failed",
			zap.String("merchant", merchant.WalletAddress),
			zap.String("user", session.ActiveAddress()),
			zap.String("token", tok.Symbol),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	telemetry.PaymentsTotal.WithLabelValues(tok.Symbol, string(models.TransactionCompleted)).Inc()

	result := &PaymentResult{Quote: q, DailyLimit: merchant.DailyLimit}
	now := s.now().UTC()

	// The payment is on chain from here on, so bookkeeping failures are
	// reported as warnings rather than errors.
	tx := models.Transaction{
		Date:            now,
		MerchantAddress: merchant.WalletAddress,
		MerchantName:    merchant.BrandName,
		Amount:          q.FinalAmount,
		TokenSymbol:     tok.Symbol,
		InputAmount:     q.InputAmount,
		Status:          models.TransactionCompleted,
		UserAddress:     session.ActiveAddress(),
		TransactionHash: hash,
	}
	if err := s.transactions.CreateTransaction(ctx, &tx); err != nil {
		telemetry.Logger.Error("Failed to record transaction",
			zap.String("transaction_hash", hash),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, "transaction was sent but could not be recorded")
	} else {
		s.publishTransaction(ctx, tx)
	}
	result.Transaction = tx

	newLimit, err := deductDailyLimit(ctx, s.merchants, s.publisher, merchant, q.LocalAmount, now)
	if err != nil {
		telemetry.Logger.Error("Failed to deduct daily limit",
			zap.String("merchant", merchant.WalletAddress),
			zap.String("transaction_hash", hash),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, "merchant daily limit could not be updated")
	} else {
		result.DailyLimit = newLimit
	}

	telemetry.Logger.Info("Payment completed",
		zap.String("merchant", merchant.WalletAddress),
		zap.String("user", session.ActiveAddress()),
		zap.String("token", tok.Symbol),
		zap.Float64("local_amount", q.LocalAmount),
		zap.Float64("final_amount", q.FinalAmount),
		zap.String("transaction_hash", hash),
	)
	return result, nil
}

// RecordTransaction stores a payment the client completed on its own.
func (s *ExchangeService) RecordTransaction(ctx context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
	tx := &models.Transaction{
		Date:            s.now().UTC(),
		MerchantAddress: strings.TrimSpace(in.MerchantAddress),
		MerchantName:    strings.TrimSpace(in.MerchantName),
		Amount:          in.Amount,
		TokenSymbol:     strings.ToUpper(strings.TrimSpace(in.TokenSymbol)),
		InputAmount:     in.InputAmount,
		Status:          models.TransactionCompleted,
		UserAddress:     strings.TrimSpace(in.UserAddress),
		TransactionHash: strings.TrimSpace(in.TransactionHash),
	}
	if verr := missingFields(map[string]bool{
		"merchantAddress": tx.MerchantAddress != "",
		"merchantName":    tx.MerchantName != "",
		"amount":          tx.Amount != 0,
		"userAddress":     tx.UserAddress != "",
		"transactionHash": tx.TransactionHash != "",
	}, "merchantAddress", "merchantName", "amount", "userAddress", "transactionHash"); verr != nil {
		return nil, verr
	}
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) || tx.Amount < 0 {
		return nil, &ValidationError{Message: "Amount cannot be negative", Fields: []string{"amount"}}
	}

	if err := s.transactions.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	s.publishTransaction(ctx, *tx)
	return tx, nil
}

func (s *ExchangeService) UserTransactions(ctx context.Context, userAddress string) ([]models.Transaction, error) {
	if strings.TrimSpace(userAddress) == "" {
		return nil, &ValidationError{Message: "User address is required", Fields: []string{"address"}}
	}
	return s.transactions.ListTransactionsForUser(ctx, userAddress)
}

func (s *ExchangeService) publishTransaction(ctx context.Context, tx models.Transaction) {
	event := models.TransactionEvent{
		TransactionID:   tx.ID,
		MerchantAddress: tx.MerchantAddress,
		UserAddress:     tx.UserAddress,
		Amount:          tx.Amount,
		TokenSymbol:     tx.TokenSymbol,
		TransactionHash: tx.TransactionHash,
		Status:          tx.Status,
		Timestamp:       tx.Date,
	}
	if err := s.publisher.Publish(ctx, events.TopicTransactionRecorded, tx.MerchantAddress, event); err != nil {
		telemetry.Logger.Error("Failed to publish transaction event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
}

func (s *ExchangeService) observeQuote(symbol string, err error) {
	result := "accepted"
	switch {
	case err == nil:
	case errors.Is(err, quote.ErrDailyLimitExceeded):
		result = "limit_exceeded"
		telemetry.DailyLimitRejections.Inc()
	default:
		result = "invalid"
	}
	telemetry.QuotesTotal.WithLabelValues(symbol, result).Inc()
}

func checkAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: amount must be a positive number, got %v", quote.ErrInvalidAmount, amount)
	}
	return nil
}
