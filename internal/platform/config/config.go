// Package config loads process configuration from the environment so main
// stays lean. All values are read once at startup; the vendor service reads
// policy values (deposit, score threshold) from the structs built here at
// call time, never from the environment directly.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	// BootstrapAdminEmail, when set, seeds an admin account at startup
	// with a generated one-time password. Meant for local development
	// and first deployments; leave empty once admins exist.
	BootstrapAdminEmail string

	Identity  Identity
	Deposit   Deposit
	Captcha   Captcha
	RateLimit RateLimit
	Session   Session
	Redis     Redis
	Postgres  Postgres
	Kafka     Kafka
}

// Identity configures the identity-verification provider.
// An empty Provider means verification is not required at all; Provider
// "mock" runs without network access.
type Identity struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	// MinScore is the minimum confidence score; provider results below it
	// are forced to FAILED regardless of the provider's own verdict.
	MinScore float64
}

// Deposit configures the security-deposit requirement for new vendors.
type Deposit struct {
	Enabled     bool
	AmountCents int64
	Currency    string
}

// Captcha configures the human-presence gate. Empty secret disables it.
type Captcha struct {
	Secret   string
	Endpoint string
}

// RateLimit bounds submission attempts per user per window.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Session configures the credential issuer.
type Session struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Redis configures the optional distributed rate-limit store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the optional durable stores. Empty DSN keeps the
// in-memory stores.
type Postgres struct {
	DSN string
}

// Kafka configures the audit outbox drain. Empty brokers disables it.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                getString("ZERINA_ADDR", ":8080"),
		BootstrapAdminEmail: os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		Identity: Identity{
			Provider: getString("IDENTITY_PROVIDER", "mock"),
			BaseURL:  os.Getenv("IDENTITY_BASE_URL"),
			APIKey:   os.Getenv("IDENTITY_API_KEY"),
			Timeout:  getDuration("IDENTITY_TIMEOUT", 5*time.Second),
			MinScore: getFloat("IDENTITY_MIN_SCORE", 0.5),
		},
		Deposit: Deposit{
			Enabled:     os.Getenv("SECURITY_DEPOSIT_ENABLED") == "true",
			AmountCents: getInt64("SECURITY_DEPOSIT_AMOUNT_CENTS", 10000),
			Currency:    getString("SECURITY_DEPOSIT_CURRENCY", "EUR"),
		},
		Captcha: Captcha{
			Secret:   os.Getenv("CAPTCHA_SECRET"),
			Endpoint: getString("CAPTCHA_ENDPOINT", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
		RateLimit: RateLimit{
			Limit:  getInt("SUBMISSION_RATE_LIMIT", 5),
			Window: getDuration("SUBMISSION_RATE_WINDOW", time.Hour),
		},
		Session: Session{
			SigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getString("JWT_ISSUER", "zerina"),
			TTL:        getDuration("SESSION_TTL", 24*time.Hour),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Kafka: Kafka{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getString("KAFKA_AUDIT_TOPIC", "zerina.audit"),
		},
	}
	return cfg
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
