package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/interfaces"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/payintent"
	"github.com/taipay/cashme/internal/quote"
	"github.com/taipay/cashme/internal/telemetry"
	"github.com/taipay/cashme/internal/tokens"
)

// MerchantHistoryLimit caps the received-payments listing.
const MerchantHistoryLimit = 50

type MerchantService struct {
	repo         interfaces.MerchantRepository
	transactions interfaces.TransactionRepository
	locker       interfaces.Locker
	publisher    interfaces.EventPublisher
	tokens       *tokens.Registry
	origin       string
	now          func() time.Time
}

func NewMerchantService(
	repo interfaces.MerchantRepository,
	transactions interfaces.TransactionRepository,
	locker interfaces.Locker,
	publisher interfaces.EventPublisher,
	registry *tokens.Registry,
	origin string,
) *MerchantService {
	return &MerchantService{
		repo:         repo,
		transactions: transactions,
		locker:       locker,
		publisher:    publisher,
		tokens:       registry,
		origin:       origin,
		now:          time.Now,
	}
}

// Register creates the caller's merchant profile. The wallet address is the
// session's active address.
func (s *MerchantService) Register(ctx context.Context, session *auth.Session, in models.CreateMerchantInput) (*models.Merchant, error) {
	if !session.IsAuthenticated() {
		return nil, auth.ErrNoSession
	}

	m := &models.Merchant{
		WalletAddress:     session.ActiveAddress(),
		Name:              strings.TrimSpace(in.Name),
		BrandName:         strings.TrimSpace(in.BrandName),
		Description:       strings.TrimSpace(in.Description),
		PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		Address:           strings.TrimSpace(in.Address),
		PlaceID:           strings.TrimSpace(in.PlaceID),
		CommissionPercent: in.CommissionPercent,
		DailyLimit:        models.DefaultDailyLimit,
	}
	if in.DailyLimit != nil {
		m.DailyLimit = *in.DailyLimit
	}

	if verr := missingFields(map[string]bool{
		"name":        m.Name != "",
		"brandName":   m.BrandName != "",
		"phoneNumber": m.PhoneNumber != "",
		"email":       m.Email != "",
		"address":     m.Address != "",
		"placeId":     m.PlaceID != "",
		"latitude":    in.Latitude != nil,
		"longitude":   in.Longitude != nil,
	}, "name", "brandName", "phoneNumber", "email", "address", "placeId", "latitude", "longitude"); verr != nil {
		return nil, verr
	}
	m.Location = models.Location{Latitude: *in.Latitude, Longitude: *in.Longitude}
	if err := quote.ValidateLocation(m.Location); err != nil {
		return nil, &ValidationError{Message: err.Error(), Fields: []string{"latitude", "longitude"}}
	}
	if math.IsNaN(m.CommissionPercent) || m.CommissionPercent < 0 || m.CommissionPercent > 100 {
		return nil, &ValidationError{Message: "Commission must be between 0 and 100", Fields: []string{"commissionPercent"}}
	}
	if math.IsNaN(m.DailyLimit) || math.IsInf(m.DailyLimit, 0) || m.DailyLimit < 0 {
		return nil, &ValidationError{Message: "Daily limit cannot be negative", Fields: []string{"dailyLimit"}}
	}

	if err := s.repo.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}

	telemetry.Logger.Info("Merchant registered",
		zap.String("merchant", m.WalletAddress),
		zap.String("brand_name", m.BrandName),
		zap.Float64("daily_limit", m.DailyLimit),
	)
	return m, nil
}

func (s *MerchantService) Get(ctx context.Context, walletAddress string) (*models.Merchant, error) {
	if strings.TrimSpace(walletAddress) == "" {
		return nil, &ValidationError{Message: "Wallet address is required", Fields: []string{"address"}}
	}
	return s.repo.GetMerchant(ctx, walletAddress)
}

// Me returns the merchant profile owned by the session's wallet.
func (s *MerchantService) Me(ctx context.Context, session *auth.Session) (*models.Merchant, error) {
	if !session.IsAuthenticated() {
		return nil, auth.ErrNoSession
	}
	return s.repo.GetMerchant(ctx, session.ActiveAddress())
}

func (s *MerchantService) List(ctx context.Context) ([]models.Merchant, error) {
	return s.repo.ListMerchants(ctx)
}

// DeductDailyLimit spends amountUsed of the merchant's remaining daily limit
// and returns the new limit. Only the merchant's own wallet may do this.
func (s *MerchantService) DeductDailyLimit(ctx context.Context, session *auth.Session, walletAddress string, amountUsed float64) (float64, error) {
	if !session.IsAuthenticated() {
		return 0, auth.ErrNoSession
	}
	if !strings.EqualFold(strings.TrimSpace(walletAddress), session.ActiveAddress()) {
		return 0, ErrNotOwner
	}

	release, err := s.locker.Acquire(ctx, limitLockKey(walletAddress))
	if err != nil {
		return 0, err
	}
	defer release()

	merchant, err := s.repo.GetMerchant(ctx, walletAddress)
	if err != nil {
		return 0, err
	}
	return deductDailyLimit(ctx, s.repo, s.publisher, merchant, amountUsed, s.now().UTC())
}

// PaymentIntent returns the URL a merchant's QR code should encode.
func (s *MerchantService) PaymentIntent(ctx context.Context, walletAddress, tokenSymbol string) (string, payintent.Intent, error) {
	merchant, err := s.Get(ctx, walletAddress)
	if err != nil {
		return "", payintent.Intent{}, err
	}

	intent := payintent.Intent{
		Address:           merchant.WalletAddress,
		BrandName:         merchant.BrandName,
		DailyLimit:        merchant.DailyLimit,
		CommissionPercent: merchant.CommissionPercent,
	}
	if tokenSymbol != "" {
		tok, err := s.tokens.Lookup(tokenSymbol)
		if err != nil {
			return "", payintent.Intent{}, err
		}
		intent.Token = tok.Symbol
	}
	url, err := payintent.Build(s.origin, intent)
	if err != nil {
		return "", payintent.Intent{}, err
	}
	return url, intent, nil
}

// Transactions lists the most recent payments received by the session's
// merchant.
func (s *MerchantService) Transactions(ctx context.Context, session *auth.Session) ([]models.Transaction, error) {
	merchant, err := s.Me(ctx, session)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListTransactionsForMerchant(ctx, merchant.WalletAddress, MerchantHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant transactions: %w", err)
	}
	return txs, nil
}

// ResolvePaymentIntent decodes a scanned QR payload and returns it together
// with the merchant's current profile, since the encoded limit and
// commission may be stale.
func (s *MerchantService) ResolvePaymentIntent(ctx context.Context, raw string) (payintent.Intent, *models.Merchant, error) {
	intent, err := payintent.Parse(raw)
	if err != nil {
		return payintent.Intent{}, nil, err
	}
	if intent.Token != "" {
		tok, err := s.tokens.Lookup(intent.Token)
		if err != nil {
			return payintent.Intent{}, nil, err
		}
		intent.Token = tok.Symbol
	}

	merchant, err := s.repo.GetMerchant(ctx, intent.Address)
	if err != nil {
		return payintent.Intent{}, nil, err
	}
	return intent, merchant, nil
}

func (s *MerchantService) CountCompletedTransactions(ctx context.Context, merchantAddress string) (int64, error) {
	if strings.TrimSpace(merchantAddress) == "" {
		return 0, &ValidationError{Message: "Merchant address is required", Fields: []string{"address"}}
	}
	return s.transactions.CountCompletedTransactions(ctx, merchantAddress)
}
