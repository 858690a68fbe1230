package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	Share    ShareConfig
	Timeouts Timeouts
	Recovery RecoveryConfig
	DIDCache DIDCacheConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration
}

// IsLocal reports whether the process runs in a developer environment.
func (s Server) IsLocal() bool {
	return s.Environment == "" || s.Environment == "local"
}

// DatabaseConfig selects Postgres persistence. Empty URL means in-memory stores.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Enabled reports whether audit streaming is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LedgerConfig points at the anchoring gateway. Empty URL disables anchoring.
type LedgerConfig struct {
	URL string
}

type ShareConfig struct {
	SigningKey string
	BaseURL    string
	TTL        time.Duration
}

// Timeouts bound every call to an external collaborator.
type Timeouts struct {
	Resolve time.Duration
	Proof   time.Duration
	Anchor  time.Duration
}

// RecoveryConfig is the N-of-M DID recovery policy; 1 accepts any single matching factor.
type RecoveryConfig struct {
	MinFactors int
}

type DIDCacheConfig struct {
	Size int
	TTL  time.Duration
}

const shareTTL = 30 * 24 * time.Hour

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.Server = Server{
		Addr:        getEnv("ATTESTOR_ADDR", ":8080"),
		Environment: getEnv("ENVIRONMENT", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Server.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	cfg.Database = DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	cfg.Kafka = KafkaConfig{
		Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic: getEnv("AUDIT_TOPIC", "attestor.audit"),
	}

	cfg.Ledger = LedgerConfig{URL: os.Getenv("LEDGER_URL")}

	cfg.Share = ShareConfig{
		// Development default; override in every deployed environment.
		SigningKey: getEnv("SHARE_SIGNING_KEY", "dev-share-key-change-in-production"),
		BaseURL:    strings.TrimRight(getEnv("SHARE_BASE_URL", "http://localhost:8080/v1/share"), "/"),
		TTL:        shareTTL,
	}

	if cfg.Timeouts.Resolve, err = getDuration("RESOLVE_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Timeouts.Proof, err = getDuration("PROOF_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Timeouts.Anchor, err = getDuration("ANCHOR_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.Recovery.MinFactors, err = getInt("RECOVERY_MIN_FACTORS", 1); err != nil {
		return Config{}, err
	}
	if cfg.Recovery.MinFactors < 1 {
		return Config{}, fmt.Errorf("RECOVERY_MIN_FACTORS must be at least 1")
	}

	if cfg.DIDCache.Size, err = getInt("DID_CACHE_SIZE", 1024); err != nil {
		return Config{}, err
	}
	if cfg.DIDCache.TTL, err = getDuration("DID_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
