package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration of the engine. It is built once at
// startup and handed to constructors; nothing reads the environment after that.
type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Logging    LoggingConfig
	Pricing    PricingConfig
	Loyalty    LoyaltyConfig
	Providers  ProvidersConfig
	Settlement SettlementConfig
	Webhooks   WebhookConfig
}

type ServerConfig struct {
	Port         string
	AllowOrigins string
	RateLimit    int
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the postgres connection string understood by both gorm's driver
// and lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
	LockTTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type AuthConfig struct {
	JWTSecret string
}

type LoggingConfig struct {
	Level string
}

// PricingConfig holds every number the pricing engine needs.
type PricingConfig struct {
	TransferTierThreshold decimal.Decimal
	TransferTier1Fee      decimal.Decimal
	TransferTier2Fee      decimal.Decimal
	TransferMin           decimal.Decimal
	TransferMax           decimal.Decimal
	AirtimeMin            decimal.Decimal
	AirtimeMax            decimal.Decimal
	DataMin               decimal.Decimal
	DataMax               decimal.Decimal
	BillMin               decimal.Decimal
	BillMax               decimal.Decimal
	BillFlatFee           decimal.Decimal
	BillPercentageFee     decimal.Decimal
}

type LoyaltyConfig struct {
	Threshold int
	Rate      decimal.Decimal
	Timezone  string
}

// Location resolves the configured timezone, falling back to UTC.
func (c LoyaltyConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid LOYALTY_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

type ProviderConfig struct {
	BaseURL   string
	SecretKey string
}

type ProvidersConfig struct {
	Verification  ProviderConfig
	Disbursement  ProviderConfig
	Timeout       time.Duration
	RetryAttempts int
	RetryMaxWait  time.Duration
	// LookupTimeout bounds one verify or resolve attempt.
	LookupTimeout time.Duration
}

// SettlementConfig describes the operator-owned bank account revenue is swept to.
type SettlementConfig struct {
	AccountNumber       string
	BankCode            string
	AccountName         string
	MinCollectionAmount decimal.Decimal
}

type WebhookConfig struct {
	VerificationSecret string
	DisbursementSecret string
	// Schemes are "hmac-sha512" or "shared-secret"; empty keeps the
	// provider's default.
	VerificationScheme string
	DisbursementScheme string
	ReplayInterval     time.Duration
	MaxAttempts        int
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the environment into a Config, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Env: GetEnv("ENV", "development"),
		Server: ServerConfig{
			Port:         GetEnv("PORT", "3000"),
			AllowOrigins: GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
			RateLimit:    GetIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "kudi"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			CacheTTL: GetDurationEnv("REDIS_CACHE_TTL", 5*time.Minute),
			LockTTL:  GetDurationEnv("REDIS_LOCK_TTL", 90*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(GetEnv("KAFKA_BROKERS", "")),
			Topic:   GetEnv("KAFKA_LEDGER_TOPIC", "ledger.events"),
		},
		Auth: AuthConfig{
			JWTSecret: GetEnv("JWT_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level: GetEnv("LOG_LEVEL", "info"),
		},
		Pricing: PricingConfig{
			TransferTierThreshold: GetDecimalEnv("TRANSFER_TIER_THRESHOLD", decimal.NewFromInt(10000)),
			TransferTier1Fee:      GetDecimalEnv("TRANSFER_TIER1_FEE", decimal.NewFromInt(50)),
			TransferTier2Fee:      GetDecimalEnv("TRANSFER_TIER2_FEE", decimal.NewFromInt(100)),
			TransferMin:           GetDecimalEnv("TRANSFER_MIN", decimal.NewFromInt(100)),
			TransferMax:           GetDecimalEnv("TRANSFER_MAX", decimal.NewFromInt(1000000)),
			AirtimeMin:            GetDecimalEnv("AIRTIME_MIN", decimal.NewFromInt(50)),
			AirtimeMax:            GetDecimalEnv("AIRTIME_MAX", decimal.NewFromInt(50000)),
			DataMin:               GetDecimalEnv("DATA_MIN", decimal.NewFromInt(50)),
			DataMax:               GetDecimalEnv("DATA_MAX", decimal.NewFromInt(100000)),
			BillMin:               GetDecimalEnv("BILL_MIN", decimal.NewFromInt(100)),
			BillMax:               GetDecimalEnv("BILL_MAX", decimal.NewFromInt(500000)),
			BillFlatFee:           GetDecimalEnv("BILL_FLAT_FEE", decimal.Zero),
			BillPercentageFee:     GetDecimalEnv("BILL_PERCENTAGE_FEE", decimal.Zero),
		},
		Loyalty: LoyaltyConfig{
			Threshold: GetIntEnv("LOYALTY_THRESHOLD", 3),
			Rate:      GetDecimalEnv("LOYALTY_CASHBACK_RATE", decimal.RequireFromString("0.02")),
			Timezone:  GetEnv("LOYALTY_TIMEZONE", "UTC"),
		},
		Providers: ProvidersConfig{
			Verification: ProviderConfig{
				BaseURL:   GetEnv("VERIFICATION_BASE_URL", ""),
				SecretKey: GetEnv("VERIFICATION_SECRET_KEY", ""),
			},
			Disbursement: ProviderConfig{
				BaseURL:   GetEnv("DISBURSEMENT_BASE_URL", ""),
				SecretKey: GetEnv("DISBURSEMENT_SECRET_KEY", ""),
			},
			Timeout:       GetDurationEnv("PROVIDER_TIMEOUT", 30*time.Second),
			RetryAttempts: GetIntEnv("PROVIDER_RETRY_ATTEMPTS", 3),
			RetryMaxWait:  GetDurationEnv("PROVIDER_RETRY_MAX_WAIT", 30*time.Second),
			LookupTimeout: GetDurationEnv("PROVIDER_LOOKUP_TIMEOUT", 10*time.Second),
		},
		Settlement: SettlementConfig{
			AccountNumber:       GetEnv("SETTLEMENT_ACCOUNT_NUMBER", ""),
			BankCode:            GetEnv("SETTLEMENT_BANK_CODE", ""),
			AccountName:         GetEnv("SETTLEMENT_ACCOUNT_NAME", ""),
			MinCollectionAmount: GetDecimalEnv("SETTLEMENT_MIN_AMOUNT", decimal.NewFromInt(1000)),
		},
		Webhooks: WebhookConfig{
			VerificationSecret: GetEnv("VERIFICATION_WEBHOOK_SECRET", ""),
			DisbursementSecret: GetEnv("DISBURSEMENT_WEBHOOK_SECRET", ""),
			VerificationScheme: GetEnv("VERIFICATION_WEBHOOK_SCHEME", ""),
			DisbursementScheme: GetEnv("DISBURSEMENT_WEBHOOK_SCHEME", ""),
			ReplayInterval:     GetDurationEnv("WEBHOOK_REPLAY_INTERVAL", time.Minute),
			MaxAttempts:        GetIntEnv("WEBHOOK_MAX_ATTEMPTS", 5),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.Auth.JWTSecret = "kudi-dev-secret"
	}
	if cfg.Loyalty.Threshold <= 0 {
		return nil, fmt.Errorf("LOYALTY_THRESHOLD must be positive, got %d", cfg.Loyalty.Threshold)
	}
	if cfg.Pricing.TransferMin.GreaterThan(cfg.Pricing.TransferMax) {
		return nil, fmt.Errorf("TRANSFER_MIN exceeds TRANSFER_MAX")
	}
	for key, scheme := range map[string]string{
		"VERIFICATION_WEBHOOK_SCHEME": cfg.Webhooks.VerificationScheme,
		"DISBURSEMENT_WEBHOOK_SCHEME": cfg.Webhooks.DisbursementScheme,
	} {
		switch scheme {
		case "", "hmac-sha512", "shared-secret":
		default:
			return nil, fmt.Errorf("%s must be hmac-sha512 or shared-secret, got %q", key, scheme)
		}
	}

	return cfg, nil
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetDecimalEnv parses a money or rate value such as "2500" or "0.015".
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
		log.Printf("invalid decimal for %s: %q", key, val)
	}
	return defaultVal
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
