package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DatabaseURL       string
	RedisURL          string
	KafkaBrokers      string
	NatsURL           string
	JaegerEndpoint    string
	TokensFile        string
	PublicOrigin      string
	AuthHMACSecret    string
	AuthIssuer        string
	LimitLockTTL      time.Duration
	WalletTimeout     time.Duration
	DiscoveryRadiusKm float64
}

// Load reads the environment, after merging an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		NatsURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		JaegerEndpoint:    os.Getenv("JAEGER_ENDPOINT"),
		TokensFile:        os.Getenv("TOKENS_FILE"),
		PublicOrigin:      getEnv("PUBLIC_ORIGIN", "http://localhost:3000"),
		AuthHMACSecret:    os.Getenv("AUTH_HMAC_SECRET"),
		AuthIssuer:        os.Getenv("AUTH_ISSUER"),
		LimitLockTTL:      getDuration("LIMIT_LOCK_TTL", 30*time.Second),
		WalletTimeout:     getDuration("WALLET_TIMEOUT", 15*time.Second),
		DiscoveryRadiusKm: getFloat("DISCOVERY_RADIUS_KM", 0),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}
