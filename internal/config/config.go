// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Blob backends selectable through BLOB_BACKEND
const (
	BlobBackendMemory = "memory"
	BlobBackendBadger = "badger"
	BlobBackendBucket = "bucket"
	BlobBackendPinata = "pinata"
)

// SepoliaChainID is the default network
const SepoliaChainID = 11155111

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the server will listen on.
	ServerPort int

	// LogLevel is the logrus level name.
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string

	// AdminAddresses are the wallet addresses granted the admin role.
	AdminAddresses []string
	// ChallengeTTL is how long a login nonce stays usable.
	ChallengeTTL time.Duration
	// SessionTTL is the lifetime of a session token.
	SessionTTL time.Duration
	// TokenSigningKey is a hex SEC 1 DER P-256 key as printed by keygen. A key
	// is generated at startup when empty.
	TokenSigningKey string

	// RedisURL enables the redis challenge store and event stream when set.
	RedisURL string

	BlobBackend        string
	BadgerPath         string
	BucketURL          string
	PinataAPIKey       string
	PinataSecretAPIKey string
	PinataGatewayURL   string

	// EthRPCURL is the JSON-RPC endpoint of the ledger network.
	EthRPCURL string
	// EthChainID is the chain the registry lives on.
	EthChainID uint64
	// RegistryAddress is the deployed CertificateRegistry.
	RegistryAddress string
	// IssuerPrivateKey signs ledger transactions and attestations.
	IssuerPrivateKey string
	// AttestEnabled turns on the EIP-712 attestation stage.
	AttestEnabled bool
	// ConfirmTimeout bounds how long a ledger write waits to be mined.
	ConfirmTimeout time.Duration

	// LinkBaseURL is the viewer page shareable links point at.
	LinkBaseURL string

	// RateLimitEnabled indicates whether per-IP rate limiting of /auth is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the sustained rate allowed per client IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size per client IP.
	RateLimitBurst int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 9000),

		LogLevel:  env.GetString("LOG_LEVEL", "info"),
		LogFormat: env.GetString("LOG_FORMAT", "text"),

		AdminAddresses:  splitList(env.GetString("ADMIN_ADDRESSES", "")),
		ChallengeTTL:    env.GetDuration("CHALLENGE_TTL_SECONDS", 300, time.Second),
		SessionTTL:      env.GetDuration("SESSION_TTL_HOURS", 24, time.Hour),
		TokenSigningKey: env.GetString("TOKEN_SIGNING_KEY", ""),

		RedisURL: env.GetString("REDIS_URL", ""),

		BlobBackend:        env.GetString("BLOB_BACKEND", BlobBackendBadger),
		BadgerPath:         env.GetString("BADGER_PATH", "data/blobs"),
		BucketURL:          env.GetString("BUCKET_URL", "mem://"),
		PinataAPIKey:       env.GetString("PINATA_API_KEY", ""),
		PinataSecretAPIKey: env.GetString("PINATA_SECRET_API_KEY", ""),
		PinataGatewayURL:   env.GetString("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),

		EthRPCURL:        env.GetString("ETH_RPC_URL", ""),
		EthChainID:       uint64(env.GetInt("ETH_CHAIN_ID", SepoliaChainID)),
		RegistryAddress:  env.GetString("REGISTRY_ADDRESS", ""),
		IssuerPrivateKey: env.GetString("ISSUER_PRIVATE_KEY", ""),
		AttestEnabled:    env.GetBool("ATTEST_ENABLED", true),
		ConfirmTimeout:   env.GetDuration("CONFIRM_TIMEOUT_SECONDS", 180, time.Second),

		LinkBaseURL: env.GetString("LINK_BASE_URL", "http://localhost:9000/certificates/view"),

		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 5.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 10),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "certichain"),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// Logger builds the application logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
