package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Debug   bool
	LogFile string

	ServerPort     string
	AllowedOrigins []string
	AllowCreds     bool

	// LedgerStore selects the listing store: "postgres" or "memory".
	LedgerStore   string
	MarketAddress string
	ListingFee    decimal.Decimal
	EnableFaucet  bool

	EventHistorySize int

	Admin    AdminConfig
	Database Database
	SendGrid SendGridConfig
	TLS      TLSConfig
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type Database struct {
	URL                string
	MaxConns           int32
	MinConns           int32
	MaxConnIdleTime    time.Duration
	ApplySchemaOnStart bool
}

// TLSConfig prefers CertPath/KeyPath, then inline PEM, then a generated
// self-signed certificate outside production.
type TLSConfig struct {
	Enable          bool
	CertPath        string
	KeyPath         string
	CertPEM         string
	KeyPEM          string
	AllowSelfSigned bool
}

type SendGridConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	AlertEmail  string
}

// Load reads .env when present. Missing files are not an error; the process
// environment is used as is.
func Load() {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, using environment variables")
	}
}

func Get() *Config {
	cfg := &Config{
		Env:              strings.ToLower(getString("APP_ENV", getString("ENV", "development"))),
		Debug:            getBool("DEBUG", false),
		LogFile:          getString("LOG_FILE", ""),
		ServerPort:       getString("SERVER_PORT", ""),
		AllowedOrigins:   getSlice("CORS_ALLOWED_ORIGINS", []string{"*"}, ","),
		AllowCreds:       getBool("CORS_ALLOW_CREDENTIALS", false),
		LedgerStore:      strings.ToLower(getString("LEDGER_STORE", "postgres")),
		MarketAddress:    getString("MARKET_ADDRESS", "0x0000000000000000000000000000000000006d6b"),
		ListingFee:       getDecimal("LISTING_FEE", decimal.NewFromInt(25)),
		EnableFaucet:     getBool("ENABLE_FAUCET", false),
		EventHistorySize: getInt("EVENT_HISTORY_SIZE", 200),
		Admin: AdminConfig{
			Name:     getString("ADMIN_NAME", "admin"),
			Email:    getString("ADMIN_EMAIL", ""),
			Password: getString("ADMIN_PASSWORD", ""),
		},
		Database: Database{
			URL:                getString("DATABASE_URL", ""),
			MaxConns:           int32(getInt("DB_MAX_CONNS", 10)),
			MinConns:           int32(getInt("DB_MIN_CONNS", 2)),
			MaxConnIdleTime:    getDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			ApplySchemaOnStart: getBool("APPLY_SCHEMA_ON_START", true),
		},
		SendGrid: SendGridConfig{
			APIKey:      getString("SENDGRID_API_KEY", ""),
			SenderEmail: getString("SENDGRID_SENDER_EMAIL", ""),
			SenderName:  getString("SENDGRID_SENDER_NAME", "NFT Market"),
			AlertEmail:  getString("ALERT_EMAIL", ""),
		},
		TLS: TLSConfig{
			Enable:          getBool("ENABLE_TLS", true),
			CertPath:        getString("TLS_CERT_PATH", ""),
			KeyPath:         getString("TLS_KEY_PATH", ""),
			CertPEM:         getString("TLS_CERT", ""),
			KeyPEM:          getString("TLS_KEY", ""),
			AllowSelfSigned: getBool("TLS_SELF_SIGNED", true),
		},
	}
	// TLS is mandatory in production.
	if cfg.Env == "production" {
		cfg.TLS.Enable = true
	}
	return cfg
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	val, err := strconv.Atoi(getString(key, ""))
	if err != nil {
		return defaultValue
	}

	return val
}

func getBool(key string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(getString(key, "")); err == nil {
		return val
	}

	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		zap.L().With(zap.String("key", key), zap.Duration("default", defaultValue)).Warn("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(getString(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	out := make([]string, 0)
	for _, p := range strings.Split(valStr, sep) {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// Validate rejects TLS settings that are unsafe for env.
func (t TLSConfig) Validate(env string) error {
	if env != "production" {
		return nil
	}
	if !t.Enable {
		return errors.New("TLS must be enabled in production")
	}
	if t.CertPath == "" || t.KeyPath == "" {
		return errors.New("TLS_CERT_PATH and TLS_KEY_PATH are required in production")
	}
	return nil
}
