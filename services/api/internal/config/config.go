// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port              string
	DatabaseURL       string
	StoreDriver       string
	CORSOrigins       []string
	ReservationTTL    time.Duration
	SweepInterval     time.Duration
	SweepOnStart      bool
	LowStockThreshold int
	TelegramToken     string
	TelegramAPIURL    string
	OperatorChatIDs   []string
	PaymentKey        string
	AdminToken        string
	LogLevel          string
	LogPretty         bool
	OTLPEndpoint      string
	ServiceName       string
}

// Load reads envFiles (default ".env") into the environment without
// overriding variables already set, then resolves every setting. A missing
// env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Port:              v.GetString("PORT"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		StoreDriver:       strings.ToLower(v.GetString("STORE_DRIVER")),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		ReservationTTL:    v.GetDuration("RESERVATION_TTL"),
		SweepInterval:     v.GetDuration("SWEEP_INTERVAL"),
		SweepOnStart:      v.GetBool("SWEEP_ON_START"),
		LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		TelegramToken:     v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramAPIURL:    v.GetString("TELEGRAM_API_URL"),
		OperatorChatIDs:   splitList(v.GetString("OPERATOR_CHAT_IDS")),
		PaymentKey:        v.GetString("PAYMENT_CHECKSUM_KEY"),
		AdminToken:        v.GetString("ADMIN_TOKEN"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogPretty:         v.GetBool("LOG_PRETTY"),
		OTLPEndpoint:      v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       v.GetString("SERVICE_NAME"),
	}
	return cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("RESERVATION_TTL", 5*time.Minute)
	v.SetDefault("SWEEP_INTERVAL", time.Duration(0))
	v.SetDefault("SWEEP_ON_START", true)
	v.SetDefault("LOW_STOCK_THRESHOLD", 3)
	v.SetDefault("TELEGRAM_API_URL", "https://api.telegram.org")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("SERVICE_NAME", "salebot-api")
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ReservationTTL <= 0 {
		return errors.New("RESERVATION_TTL must be positive")
	}
	if c.SweepInterval < 0 {
		return errors.New("SWEEP_INTERVAL must not be negative")
	}
	return nil
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
