package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/lock"
	"github.com/taipay/cashme/internal/payintent"
	"github.com/taipay/cashme/internal/quote"
	"github.com/taipay/cashme/internal/repository"
	"github.com/taipay/cashme/internal/service"
	"github.com/taipay/cashme/internal/telemetry"
	"github.com/taipay/cashme/internal/tokens"
	"github.com/taipay/cashme/internal/wallet"
)

// respondError maps service and engine errors onto HTTP responses.
func respondError(c *gin.Context, err error, fallback string) {
	var limitErr *quote.DailyLimitExceededError
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &limitErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "Amount exceeds merchant's daily limit",
			"attempted": limitErr.Attempted,
			"limit":     limitErr.Limit,
			"shortfall": limitErr.Shortfall(),
		})
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Message}
		if len(validationErr.Fields) > 0 {
			body["fields"] = validationErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, quote.ErrInvalidAmount),
		errors.Is(err, quote.ErrInvalidCoordinate),
		errors.Is(err, quote.ErrInvalidConfiguration),
		errors.Is(err, tokens.ErrUnknownToken),
		errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, payintent.ErrInvalidIntent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrMerchantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
	case errors.Is(err, repository.ErrMerchantExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, lock.ErrLockHeld), errors.Is(err, service.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "Merchant is busy with another payment, try again"})
	case errors.Is(err, service.ErrPaymentFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		telemetry.Logger.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
