package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taipay/cashme/internal/models"
	"github.com/taipay/cashme/internal/service"
)

type TransactionHandler struct {
	exchange *service.ExchangeService
}

func NewTransactionHandler(exchange *service.ExchangeService) *TransactionHandler {
	return &TransactionHandler{exchange: exchange}
}

func (h *TransactionHandler) Create(c *gin.Context) {
	var in models.CreateTransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tx, err := h.exchange.RecordTransaction(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to save transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction saved successfully", "transaction": tx})
}

func (h *TransactionHandler) ListForUser(c *gin.Context) {
	txs, err := h.exchange.UserTransactions(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err, "Failed to fetch transactions")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
}
