package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Port int

	SiteURL    string
	WebhookURL string

	// PayhipAPIKey is surfaced in the startup banner only; PayHip does not
	// document a webhook signing scheme, so the key is never used to verify
	// payloads.
	PayhipAPIKey string

	PaymentLogDir string

	OTLPEndpoint string
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewEdgePolicyHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "payhook"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		Port:          getenvInt("PORT", 80),
		SiteURL:       strings.TrimSpace(getenv("SITE_URL", "http://localhost:3000")),
		WebhookURL:    strings.TrimSpace(getenv("WEBHOOK_URL", "")),
		PayhipAPIKey:  strings.TrimSpace(getenv("PAYHIP_API_KEY", "")),
		PaymentLogDir: getenv("PAYMENT_LOG_DIR", "./payment-logs"),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.WebhookURL == "" {
		cfg.WebhookURL = cfg.SiteURL + "/webhook/payhip"
	}

	return cfg
}

// RedactedAPIKey returns a display-safe prefix of the PayHip API key.
func (c Config) RedactedAPIKey() string {
	key := strings.TrimSpace(c.PayhipAPIKey)
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return key[:1] + "..."
	}
	return key[:8] + "..."
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
