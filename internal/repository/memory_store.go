package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taipay/cashme/internal/models"
)

// MemoryStore keeps merchants and transactions in process memory. It backs
// local runs without DATABASE_URL and the service tests.
type MemoryStore struct {
	mu           sync.RWMutex
	merchants    map[string]models.Merchant
	order        []string
	transactions []models.Transaction
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		merchants: make(map[string]models.Merchant),
		now:       time.Now,
	}
}

func addressKey(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

func (s *MemoryStore) CreateMerchant(_ context.Context, m *models.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := addressKey(m.WalletAddress)
	if _, ok := s.merchants[key]; ok {
		return ErrMerchantExists
	}
	now := s.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	s.merchants[key] = *m
	s.order = append(s.order, key)
	return nil
}

func (s *MemoryStore) GetMerchant(_ context.Context, walletAddress string) (*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.merchants[addressKey(walletAddress)]
	if !ok {
		return nil, ErrMerchantNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMerchants(_ context.Context) ([]models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Merchant, 0, len(s.order))
	for _, key := range s.order {
		res = append(res, s.merchants[key])
	}
	return res, nil
}

func (s *MemoryStore) FindMerchantsNear(ctx context.Context, point *models.Location, radiusKm float64) ([]models.Merchant, error) {
	all, err := s.ListMerchants(ctx)
	if err != nil || point == nil || radiusKm <= 0 {
		return all, err
	}

	minLat, maxLat, minLon, maxLon := boundingBox(point.Latitude, point.Longitude, radiusKm)
	res := all[:0]
	for _, m := range all {
		if m.Location.Latitude >= minLat && m.Location.Latitude <= maxLat &&
			inLonRange(m.Location.Longitude, minLon, maxLon) {
			res = append(res, m)
		}
	}
	return res, nil
}

func (s *MemoryStore) UpdateDailyLimit(_ context.Context, walletAddress string, expected, newLimit float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := addressKey(walletAddress)
	m, ok := s.merchants[key]
	if !ok || m.DailyLimit != expected {
		return 0, nil
	}
	m.DailyLimit = newLimit
	m.UpdatedAt = s.now().UTC()
	s.merchants[key] = m
	return 1, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := s.now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *MemoryStore) ListTransactionsForUser(_ context.Context, userAddress string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := addressKey(userAddress)
	var res []models.Transaction
	for _, tx := range s.transactions {
		if addressKey(tx.UserAddress) == key {
			res = append(res, tx)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date.After(res[j].Date)
	})
	return res, nil
}

func (s *MemoryStore) ListTransactionsForMerchant(_ context.Context, merchantAddress string, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := addressKey(merchantAddress)
	var res []models.Transaction
	for _, tx := range s.transactions {
		if addressKey(tx.MerchantAddress) == key {
			res = append(res, tx)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date.After(res[j].Date)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) CountCompletedTransactions(_ context.Context, merchantAddress string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := addressKey(merchantAddress)
	var n int64
	for _, tx := range s.transactions {
		if addressKey(tx.MerchantAddress) == key && tx.Status == models.TransactionCompleted {
			n++
		}
	}
	return n, nil
}
