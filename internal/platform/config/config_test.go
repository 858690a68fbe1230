package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"ATTESTOR_ADDR", "ENVIRONMENT", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"KAFKA_BROKERS", "AUDIT_TOPIC", "LEDGER_URL", "SHARE_SIGNING_KEY", "SHARE_BASE_URL",
		"RESOLVE_TIMEOUT", "PROOF_TIMEOUT", "ANCHOR_TIMEOUT", "RECOVERY_MIN_FACTORS",
		"DID_CACHE_SIZE", "DID_CACHE_TTL", "REQUEST_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Server.IsLocal())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "attestor.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, "http://localhost:8080/v1/share", cfg.Share.BaseURL)
	assert.Equal(t, 30*24*time.Hour, cfg.Share.TTL)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Resolve)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Proof)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Anchor)
	assert.Equal(t, 1, cfg.Recovery.MinFactors)
	assert.Equal(t, 1024, cfg.DIDCache.Size)
	assert.Equal(t, 5*time.Minute, cfg.DIDCache.TTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SHARE_BASE_URL", "https://attest.example/v1/share/")
	t.Setenv("RESOLVE_TIMEOUT", "750ms")
	t.Setenv("RECOVERY_MIN_FACTORS", "2")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Server.IsLocal())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "https://attest.example/v1/share", cfg.Share.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeouts.Resolve)
	assert.Equal(t, 2, cfg.Recovery.MinFactors)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("PROOF_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "PROOF_TIMEOUT")
	})
	t.Run("zero recovery factors", func(t *testing.T) {
		t.Setenv("RECOVERY_MIN_FACTORS", "0")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "RECOVERY_MIN_FACTORS")
	})
}
