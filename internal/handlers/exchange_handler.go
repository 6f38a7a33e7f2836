package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/service"
)

type ExchangeHandler struct {
	exchange *service.ExchangeService
}

func NewExchangeHandler(exchange *service.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchange: exchange}
}

func (h *ExchangeHandler) ListTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tokens": h.exchange.Tokens()})
}

// Discover serves GET /merchants?lat=..&lng=..&amount=..&token=..
func (h *ExchangeHandler) Discover(c *gin.Context) {
	var req service.DiscoverRequest

	lat, lng := c.Query("lat"), c.Query("lng")
	if lat != "" || lng != "" {
		latitude, errLat := strconv.ParseFloat(lat, 64)
		longitude, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must both be numbers"})
			return
		}
		req.Location = &models.Location{Latitude: latitude, Longitude: longitude}
	}

	if token := c.Query("token"); token != "" {
		amount, err := strconv.ParseFloat(c.Query("amount"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
			return
		}
		req.Token, req.Amount = token, amount
	}

	merchants, err := h.exchange.Discover(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to discover merchants")
		return
	}
	if merchants == nil {
		merchants = []models.RankedMerchant{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "merchants": merchants})
}

type quoteRequest struct {
	MerchantAddress string  `json:"merchantAddress" binding:"required"`
	Token           string  `json:"token" binding:"required"`
	Amount          float64 `json:"amount"`
}

func (h *ExchangeHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	q, merchant, err := h.exchange.Quote(c.Request.Context(), req.MerchantAddress, req.Token, req.Amount)
	if err != nil {
		respondError(c, err, "Failed to compute quote")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quote":             q,
		"merchantAddress":   merchant.WalletAddress,
		"brandName":         merchant.BrandName,
		"commissionPercent": merchant.CommissionPercent,
		"dailyLimit":        merchant.DailyLimit,
	})
}

func (h *ExchangeHandler) Pay(c *gin.Context) {
	session, err := auth.FromContext(c)
	if err != nil {
		respondError(c, err, "Failed to process payment")
		return
	}

	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.exchange.Pay(c.Request.Context(), session, req)
	if err != nil {
		respondError(c, err, "Failed to process payment")
		return
	}
	c.JSON(http.StatusOK, result)
}
