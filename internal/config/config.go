// Package config loads service settings from the environment, optionally
// seeded from a .env file.
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

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	PostgresURL          string        `mapstructure:"POSTGRES_URL"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic     string        `mapstructure:"ORDER_EVENTS_TOPIC"`
	JWTSecret            string        `mapstructure:"JWT_SECRET"`
	TokenTTL             time.Duration `mapstructure:"TOKEN_TTL"`
	UploadDir            string        `mapstructure:"UPLOAD_DIR"`
	PublicUploadPrefix   string        `mapstructure:"PUBLIC_UPLOAD_PREFIX"`
	EasySlipURL          string        `mapstructure:"EASYSLIP_URL"`
	EasySlipAPIKey       string        `mapstructure:"EASYSLIP_API_KEY"`
	BankName             string        `mapstructure:"BANK_NAME"`
	BankAccountName      string        `mapstructure:"BANK_ACCOUNT_NAME"`
	BankAccountNumber    string        `mapstructure:"BANK_ACCOUNT_NUMBER"`
	EmailServiceURL      string        `mapstructure:"EMAIL_SERVICE_URL"`
	ShopServiceURL       string        `mapstructure:"SHOP_SERVICE_URL"`
	AdminServiceURL      string        `mapstructure:"ADMIN_SERVICE_URL"`
	CORSAllowedOrigins   string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	OTLPEndpoint         string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SlipUploadsPerMinute int           `mapstructure:"SLIP_UPLOADS_PER_MINUTE"`

	v *viper.Viper
}

var defaults = map[string]any{
	"PORT":                        "",
	"POSTGRES_URL":                "",
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"KAFKA_BROKERS":               "",
	"ORDER_EVENTS_TOPIC":          "order.events",
	"JWT_SECRET":                  "",
	"TOKEN_TTL":                   "24h",
	"UPLOAD_DIR":                  "uploads",
	"PUBLIC_UPLOAD_PREFIX":        "/uploads",
	"EASYSLIP_URL":                "https://developer.easyslip.com/api/v1/verify",
	"EASYSLIP_API_KEY":            "",
	"BANK_NAME":                   "",
	"BANK_ACCOUNT_NAME":           "",
	"BANK_ACCOUNT_NUMBER":         "",
	"EMAIL_SERVICE_URL":           "",
	"SHOP_SERVICE_URL":            "",
	"ADMIN_SERVICE_URL":           "",
	"CORS_ALLOWED_ORIGINS":        "*",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"SLIP_UPLOADS_PER_MINUTE":     5,
}

// Load reads the given env files (".env" when none are given) and then the
// process environment, which wins. Missing env files are not an error.
func Load(port string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("PORT", port)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.v = v

	return cfg, nil
}

// Require returns an error naming every key that has no value.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if strings.TrimSpace(c.v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
