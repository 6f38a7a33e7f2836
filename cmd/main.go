package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taipay/cashme/internal/api"
	"github.com/taipay/cashme/internal/auth"
	"github.com/taipay/cashme/internal/config"
	"github.com/taipay/cashme/internal/events"
	"github.com/taipay/cashme/internal/interfaces"
	"github.com/taipay/cashme/internal/lock"
	"github.com/taipay/cashme/internal/repository"
	"github.com/taipay/cashme/internal/service"
	"github.com/taipay/cashme/internal/telemetry"
	"github.com/taipay/cashme/internal/tokens"
	"github.com/taipay/cashme/internal/wallet"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("cashme-exchange", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting CashMe exchange")

	registry := tokens.Default()
	if cfg.TokensFile != "" {
		loaded, err := tokens.Load(cfg.TokensFile)
		if err != nil {
			telemetry.Logger.Fatal("Failed to load token table", zap.String("path", cfg.TokensFile), zap.Error(err))
		}
		registry = loaded
	}

	// Storage
	var (
		merchantRepo    interfaces.MerchantRepository
		transactionRepo interfaces.TransactionRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		merchants := repository.NewMerchantRepository(db)
		if err := merchants.InitDB(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize merchants table", zap.Error(err))
		}
		transactions := repository.NewTransactionRepository(db)
		if err := transactions.InitDB(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize transactions table", zap.Error(err))
		}
		merchantRepo, transactionRepo = merchants, transactions
	} else {
		telemetry.Logger.Warn("DATABASE_URL not set, using in-memory store")
		store := repository.NewMemoryStore()
		merchantRepo, transactionRepo = store, store
	}

	// Daily limit lock
	var locker interfaces.Locker
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, "merchant_limit_lock", cfg.LimitLockTTL)
	} else {
		telemetry.Logger.Warn("REDIS_URL not set, daily limit lock is process-local")
		locker = lock.NewLocalLocker()
	}

	// Event publishing
	var publisher interfaces.EventPublisher = events.Discard{}
	if len(events.SplitBrokers(cfg.KafkaBrokers)) > 0 {
		kafkaWriter := events.NewKafkaWriter(cfg.KafkaBrokers)
		defer kafkaWriter.Close()
		publisher = events.NewKafkaPublisher(kafkaWriter)
	}

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()
	walletGateway := wallet.NewNATSGateway(nc, cfg.WalletTimeout)

	verifier := auth.NewVerifier(auth.Config{
		HMACSecret: cfg.AuthHMACSecret,
		Issuer:     cfg.AuthIssuer,
	})

	exchange := service.NewExchangeService(merchantRepo, transactionRepo, walletGateway, locker, publisher, registry, cfg.DiscoveryRadiusKm)
	merchants := service.NewMerchantService(merchantRepo, transactionRepo, locker, publisher, registry, cfg.PublicOrigin)

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(exchange, merchants, verifier),
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("CashMe exchange starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
