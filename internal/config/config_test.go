package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "LIMIT_LOCK_TTL", "WALLET_TIMEOUT", "DISCOVERY_RADIUS_KM", "PUBLIC_ORIGIN", "NATS_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.LimitLockTTL)
	assert.Equal(t, 15*time.Second, cfg.WalletTimeout)
	assert.Equal(t, 0.0, cfg.DiscoveryRadiusKm)
	assert.Equal(t, "http://localhost:3000", cfg.PublicOrigin)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LIMIT_LOCK_TTL", "5s")
	t.Setenv("WALLET_TIMEOUT", "bogus")
	t.Setenv("DISCOVERY_RADIUS_KM", "12.5")
	t.Setenv("PUBLIC_ORIGIN", "https://cashme.example")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.LimitLockTTL)
	assert.Equal(t, 15*time.Second, cfg.WalletTimeout)
	assert.Equal(t, 12.5, cfg.DiscoveryRadiusKm)
	assert.Equal(t, "https://cashme.example", cfg.PublicOrigin)
}
