package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/events"
	"github.com/taipay/cashme/internal/lock"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/repository"
	"github.com/taipay/cashme/internal/service"
	"github.com/taipay/cashme/internal/tokens"
)

const (
	testSecret   = "router-test-secret"
	merchantAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	userAddr     = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type stubWallet struct {
	err error
}

func (stubWallet) SwitchChain(context.Context, string, int64) error { return nil }

func (w stubWallet) SendPayment(context.Context, string, string, int64, *big.Int) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	return "0xdeadbeef", nil
}

type testServer struct {
	store  *repository.MemoryStore
	router http.Handler
}

func newTestServer(t *testing.T, wallet stubWallet) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	registry := tokens.Default()
	locker := lock.NewLocalLocker()
	exchange := service.NewExchangeService(store, store, wallet, locker, events.Discard{}, registry, 0)
	merchants := service.NewMerchantService(store, store, locker, events.Discard{}, registry, "https://cashme.example")
	verifier := auth.NewVerifier(auth.Config{HMACSecret: testSecret})
	return &testServer{store: store, router: NewRouter(exchange, merchants, verifier)}
}

func (s *testServer) seedMerchant(t *testing.T, addr string, lat, lon, commission, limit float64) {
	t.Helper()
	require.NoError(t, s.store.CreateMerchant(context.Background(), &models.Merchant{
		WalletAddress:     addr,
		BrandName:         "Lin Exchange",
		Location:          models.Location{Latitude: lat, Longitude: lon},
		CommissionPercent: commission,
		DailyLimit:        limit,
	}))
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func sessionToken(t *testing.T, address string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"address": address})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	rec, payload := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}

func TestTokens(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	rec, payload := s.do(t, http.MethodGet, "/tokens", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["tokens"], 4)
}

func TestDiscoverEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, userAddr, 25.0878, 121.5240, 5, 10000)
	s.seedMerchant(t, merchantAddr, 25.0505, 121.5729, 5, 10000)

	rec, payload := s.do(t, http.MethodGet, "/merchants?lat=25.0330&lng=121.5654&amount=100&token=USDC", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	merchants := payload["merchants"].([]any)
	require.Len(t, merchants, 2)
	first := merchants[0].(map[string]any)
	assert.Equal(t, merchantAddr, first["walletAddress"])
	assert.InDelta(t, 2.0875, first["distanceKm"].(float64), 0.01)
	assert.InDelta(t, 2850, first["quote"].(map[string]any)["finalAmount"].(float64), 1e-9)

	rec, _ = s.do(t, http.MethodGet, "/merchants?lat=abc&lng=1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/merchants?token=USDC&amount=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload = s.do(t, http.MethodGet, "/merchants", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	first = payload["merchants"].([]any)[0].(map[string]any)
	assert.Nil(t, first["distanceKm"])
}

func TestQuoteEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, merchantAddr, 25.0505, 121.5729, 5, 10000)

	rec, payload := s.do(t, http.MethodPost, "/quotes", map[string]any{
		"merchantAddress": merchantAddr, "token": "USDC", "amount": 100,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	q := payload["quote"].(map[string]any)
	assert.InDelta(t, 3000, q["localAmount"].(float64), 1e-9)
	assert.InDelta(t, 150, q["commissionAmount"].(float64), 1e-9)
	assert.Equal(t, true, q["accepted"])

	rec, payload = s.do(t, http.MethodPost, "/quotes", map[string]any{
		"merchantAddress": merchantAddr, "token": "USDC", "amount": 400,
	}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.InDelta(t, 12000, payload["attempted"].(float64), 1e-9)
	assert.Equal(t, 10000.0, payload["limit"])
	assert.InDelta(t, 2000, payload["shortfall"].(float64), 1e-9)

	rec, _ = s.do(t, http.MethodPost, "/quotes", map[string]any{
		"merchantAddress": merchantAddr, "token": "USDC", "amount": 0,
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/quotes", map[string]any{
		"merchantAddress": userAddr, "token": "USDC", "amount": 1,
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndLookupMerchant(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	body := map[string]any{
		"name": "Lin", "brandName": "Lin Exchange", "phoneNumber": "0900", "email": "lin@example.com",
		"address": "Xinyi Rd", "placeId": "p1", "latitude": 25.05, "longitude": 121.57, "commissionPercent": 5,
	}

	rec, _ := s.do(t, http.MethodPost, "/merchants/register", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := sessionToken(t, merchantAddr)
	noLocation := map[string]any{}
	for k, v := range body {
		if k != "latitude" && k != "longitude" {
			noLocation[k] = v
		}
	}
	rec, payload := s.do(t, http.MethodPost, "/merchants/register", noLocation, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"latitude", "longitude"}, payload["fields"])

	rec, payload = s.do(t, http.MethodPost, "/merchants/register", body, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, merchantAddr, payload["merchant"].(map[string]any)["walletAddress"])

	rec, _ = s.do(t, http.MethodPost, "/merchants/register", body, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, payload = s.do(t, http.MethodGet, "/merchants/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lin Exchange", payload["merchant"].(map[string]any)["brandName"])

	rec, _ = s.do(t, http.MethodGet, "/merchants/0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/merchants/"+userAddr, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, payload = s.do(t, http.MethodGet, "/merchants/all", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["merchants"], 1)

	rec, payload = s.do(t, http.MethodGet, "/merchants/"+merchantAddr+"/payment-intent?token=FLOW", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["url"], "https://cashme.example/payment-intent?")
	assert.Contains(t, payload["url"], "token=FLOW")
}

func TestUpdateDailyLimitEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, merchantAddr, 25.05, 121.57, 0, 1000)
	path := "/merchants/" + merchantAddr + "/update-daily-limit"
	owner := sessionToken(t, merchantAddr)

	rec, _ := s.do(t, http.MethodPost, path, map[string]any{"amountUsed": 10}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, path, map[string]any{"amountUsed": 10}, sessionToken(t, userAddr))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, path, map[string]any{}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, path, map[string]any{"amountUsed": 1001}, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, payload := s.do(t, http.MethodPost, path, map[string]any{"amountUsed": 1000}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, payload["dailyLimit"])

	rec, _ = s.do(t, http.MethodPost, "/merchants/"+userAddr+"/update-daily-limit", map[string]any{"amountUsed": 1}, sessionToken(t, userAddr))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMerchantTransactionsEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, merchantAddr, 25.05, 121.57, 5, 10000)

	_, _ = s.do(t, http.MethodPost, "/payments", map[string]any{
		"merchantAddress": merchantAddr, "token": "USDC", "amount": 10,
	}, sessionToken(t, userAddr))

	rec, _ := s.do(t, http.MethodGet, "/merchants/me/transactions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, payload := s.do(t, http.MethodGet, "/merchants/me/transactions", nil, sessionToken(t, merchantAddr))
	require.Equal(t, http.StatusOK, rec.Code)
	txs := payload["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, userAddr, txs[0].(map[string]any)["userAddress"])

	rec, _ = s.do(t, http.MethodGet, "/merchants/me/transactions", nil, sessionToken(t, userAddr))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolvePaymentIntentEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, merchantAddr, 25.05, 121.57, 5, 10000)

	rec, payload := s.do(t, http.MethodGet, "/merchants/"+merchantAddr+"/payment-intent?token=usdc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	raw := payload["url"].(string)

	rec, payload = s.do(t, http.MethodPost, "/payment-intents/resolve", map[string]any{"url": raw}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USDC", payload["intent"].(map[string]any)["token"])
	assert.Equal(t, merchantAddr, payload["merchant"].(map[string]any)["walletAddress"])

	rec, _ = s.do(t, http.MethodPost, "/payment-intents/resolve", map[string]any{
		"url": strings.Replace(raw, "token=USDC", "token=DOGE", 1),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/payment-intents/resolve", map[string]any{"url": "not a url"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/payment-intents/resolve", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentFlow(t *testing.T) {
	s := newTestServer(t, stubWallet{})
	s.seedMerchant(t, merchantAddr, 25.05, 121.57, 5, 10000)
	token := sessionToken(t, userAddr)
	body := map[string]any{"merchantAddress": merchantAddr, "token": "USDC", "amount": 100}

	rec, _ := s.do(t, http.MethodPost, "/payments", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, payload := s.do(t, http.MethodPost, "/payments", body, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 7000, payload["dailyLimit"].(float64), 1e-9)
	tx := payload["transaction"].(map[string]any)
	assert.Equal(t, "0xdeadbeef", tx["transactionHash"])
	assert.InDelta(t, 2850, tx["amount"].(float64), 1e-9)

	rec, payload = s.do(t, http.MethodGet, "/transactions/user/"+userAddr, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["transactions"], 1)

	rec, payload = s.do(t, http.MethodGet, "/transactions/merchant/count?address="+merchantAddr, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, payload["count"])

	body["amount"] = 300
	rec, payload = s.do(t, http.MethodPost, "/payments", body, token)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.InDelta(t, 9000, payload["attempted"].(float64), 1e-9)
	assert.InDelta(t, 7000, payload["limit"].(float64), 1e-9)
}

func TestPaymentWalletFailure(t *testing.T) {
	s := newTestServer(t, stubWallet{err: errors.New("provider timeout")})
	s.seedMerchant(t, merchantAddr, 25.05, 121.57, 5, 10000)

	rec, _ := s.do(t, http.MethodPost, "/payments", map[string]any{
		"merchantAddress": merchantAddr, "token": "USDC", "amount": 1,
	}, sessionToken(t, userAddr))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreateTransactionEndpoint(t *testing.T) {
	s := newTestServer(t, stubWallet{})

	rec, payload := s.do(t, http.MethodPost, "/transactions", map[string]any{
		"merchantAddress": merchantAddr, "merchantName": "Lin", "amount": 50,
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"userAddress", "transactionHash"}, payload["fields"])

	rec, payload = s.do(t, http.MethodPost, "/transactions", map[string]any{
		"merchantAddress": merchantAddr, "merchantName": "Lin", "amount": 50,
		"userAddress": userAddr, "transactionHash": "0x01",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", payload["transaction"].(map[string]any)["status"])

	rec, _ = s.do(t, http.MethodGet, "/transactions/merchant/count", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
