package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/lock"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/repository"
	"github.com/taipay/cashme/internal/tokens"
)

const (
	merchantAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	otherAddr    = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	userAddr     = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

type sentPayment struct {
	from, to string
	chainID  int64
	amount   *big.Int
}

type fakeWallet struct {
	mu       sync.Mutex
	switched []int64
	sent     []sentPayment
	sendErr  error
}

func (w *fakeWallet) SwitchChain(_ context.Context, _ string, chainID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.switched = append(w.switched, chainID)
	return nil
}

func (w *fakeWallet) SendPayment(_ context.Context, from, to string, chainID int64, amount *big.Int) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sendErr != nil {
		return "", w.sendErr
	}
	w.sent = append(w.sent, sentPayment{from: from, to: to, chainID: chainID, amount: amount})
	return "0xhash", nil
}

type publishedEvent struct {
	topic, key string
	payload    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

// staleStore reports zero rows on every daily limit update, as if another
// writer always got there first.
type staleStore struct {
	*repository.MemoryStore
}

func (staleStore) UpdateDailyLimit(context.Context, string, float64, float64) (int64, error) {
	return 0, nil
}

type failingTransactions struct {
	*repository.MemoryStore
}

func (failingTransactions) CreateTransaction(context.Context, *models.Transaction) error {
	return errors.New("disk full")
}

type fixture struct {
	store     *repository.MemoryStore
	wallet    *fakeWallet
	publisher *recordingPublisher
	locker    *lock.LocalLocker
	exchange  *ExchangeService
	merchants *MerchantService
	session   *auth.Session
}

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		wallet:    &fakeWallet{},
		publisher: &recordingPublisher{},
		locker:    lock.NewLocalLocker(),
		session:   &auth.Session{Address: userAddr},
	}
	registry := tokens.Default()
	f.exchange = NewExchangeService(f.store, f.store, f.wallet, f.locker, f.publisher, registry, 0)
	f.exchange.now = func() time.Time { return fixedNow }
	f.merchants = NewMerchantService(f.store, f.store, f.locker, f.publisher, registry, "https://cashme.example")
	f.merchants.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) addMerchant(t *testing.T, addr string, lat, lon, commission, limit float64) {
	t.Helper()
	require.NoError(t, f.store.CreateMerchant(context.Background(), &models.Merchant{
		WalletAddress:     addr,
		BrandName:         "Shop " + addr[:6],
		Location:          models.Location{Latitude: lat, Longitude: lon},
		CommissionPercent: commission,
		DailyLimit:        limit,
	}))
}
