package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/handlers"
	"github.com/taipay/cashme/internal/service"
	"github.com/taipay/cashme/internal/telemetry"
)

func NewRouter(exchange *service.ExchangeService, merchants *service.MerchantService, verifier *auth.Verifier) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "cashme-exchange"})
	})

	exchangeHandler := handlers.NewExchangeHandler(exchange)
	merchantHandler := handlers.NewMerchantHandler(merchants)
	transactionHandler := handlers.NewTransactionHandler(exchange)
	requireSession := verifier.Middleware()

	r.GET("/tokens", exchangeHandler.ListTokens)
	r.POST("/quotes", exchangeHandler.Quote)
	r.POST("/payments", requireSession, exchangeHandler.Pay)

	// Merchant routes
	r.GET("/merchants", exchangeHandler.Discover)
	r.GET("/merchants/all", merchantHandler.ListAll)
	r.GET("/merchants/me", requireSession, merchantHandler.Me)
	r.GET("/merchants/me/transactions", requireSession, merchantHandler.Transactions)
	r.POST("/merchants/register", requireSession, merchantHandler.Register)
	r.GET("/merchants/:address", merchantHandler.GetMerchant)
	r.POST("/merchants/:address/update-daily-limit", requireSession, merchantHandler.UpdateDailyLimit)
	r.GET("/merchants/:address/payment-intent", merchantHandler.PaymentIntent)
	r.POST("/payment-intents/resolve", merchantHandler.ResolvePaymentIntent)

	// Transaction routes
	r.POST("/transactions", transactionHandler.Create)
	r.GET("/transactions/user/:address", transactionHandler.ListForUser)
	r.GET("/transactions/merchant/count", merchantHandler.CountCompletedTransactions)

	return r
}
