package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/service"
)

type MerchantHandler struct {
	merchants *service.MerchantService
}

func NewMerchantHandler(merchants *service.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchants: merchants}
}

func (h *MerchantHandler) Register(c *gin.Context) {
	session, err := auth.FromContext(c)
	if err != nil {
		respondError(c, err, "Failed to register merchant")
		return
	}

	var in models.CreateMerchantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	merchant, err := h.merchants.Register(c.Request.Context(), session, in)
	if err != nil {
		respondError(c, err, "Failed to register merchant")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "merchant": merchant})
}

func (h *MerchantHandler) GetMerchant(c *gin.Context) {
	merchant, err := h.merchants.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err, "Failed to fetch merchant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "merchant": merchant})
}

func (h *MerchantHandler) Me(c *gin.Context) {
	session, err := auth.FromContext(c)
	if err != nil {
		respondError(c, err, "Failed to fetch merchant")
		return
	}
	merchant, err := h.merchants.Me(c.Request.Context(), session)
	if err != nil {
		respondError(c, err, "Failed to fetch merchant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "merchant": merchant})
}

func (h *MerchantHandler) ListAll(c *gin.Context) {
	merchants, err := h.merchants.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list merchants")
		return
	}
	if merchants == nil {
		merchants = []models.Merchant{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "merchants": merchants})
}

type updateDailyLimitRequest struct {
	AmountUsed *float64 `json:"amountUsed"`
}

func (h *MerchantHandler) UpdateDailyLimit(c *gin.Context) {
	session, err := auth.FromContext(c)
	if err != nil {
		respondError(c, err, "Failed to update daily limit")
		return
	}

	var req updateDailyLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountUsed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required parameters"})
		return
	}

	limit, err := h.merchants.DeductDailyLimit(c.Request.Context(), session, c.Param("address"), *req.AmountUsed)
	if err != nil {
		respondError(c, err, "Failed to update daily limit")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Daily limit updated successfully",
		"dailyLimit": limit,
	})
}

func (h *MerchantHandler) PaymentIntent(c *gin.Context) {
	url, intent, err := h.merchants.PaymentIntent(c.Request.Context(), c.Param("address"), c.Query("token"))
	if err != nil {
		respondError(c, err, "Failed to build payment intent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "intent": intent})
}

// Transactions lists the payments received by the caller's merchant.
func (h *MerchantHandler) Transactions(c *gin.Context) {
	session, err := auth.FromContext(c)
	if err != nil {
		respondError(c, err, "Failed to fetch transactions")
		return
	}
	txs, err := h.merchants.Transactions(c.Request.Context(), session)
	if err != nil {
		respondError(c, err, "Failed to fetch transactions")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
}

type resolveIntentRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *MerchantHandler) ResolvePaymentIntent(c *gin.Context) {
	var req resolveIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	intent, merchant, err := h.merchants.ResolvePaymentIntent(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err, "Failed to resolve payment intent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": intent, "merchant": merchant})
}

func (h *MerchantHandler) CountCompletedTransactions(c *gin.Context) {
	count, err := h.merchants.CountCompletedTransactions(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondError(c, err, "Failed to fetch transaction count")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}
