package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (TURF_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string         `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string         `usage:"PostgreSQL connection URL (TURF_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL      string         `usage:"Redis URL for cart sessions; in-memory when empty (TURF_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CatalogSource string         `usage:"Product JSON file or URL; products table when empty" flag:"catalog-source"`
	ImageBaseURL  string         `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	APIKeyPepper  string         `usage:"HMAC pepper for broker API key hashing (TURF_API_KEY_PEPPER)" flag:"api-key-pepper"`
	CartTTL       time.Duration  `default:"720h" usage:"Idle lifetime of a storefront cart" flag:"cart-ttl"`
	WhatsApp      WhatsAppConfig `env:"WHATSAPP" flag:"whatsapp" yaml:"whatsapp"`
	Submission    SubmissionConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// WhatsAppConfig controls the wa.me hand-off.
type WhatsAppConfig struct {
	Phone    string `default:"254700000000" usage:"Shop WhatsApp number, any common Kenyan format"`
	Company  string `default:"Eastleigh Turf Grass" usage:"Company name used in messages"`
	Currency string `default:"KES" usage:"Currency code used in messages"`
}

// SubmissionConfig throttles submissions per sender.
type SubmissionConfig struct {
	Rate  time.Duration `default:"10s" usage:"One submission token is refilled every Rate"`
	Burst int           `default:"3"   usage:"Submissions a sender may make back to back"`
}

// RateLimitConfig controls the per-client HTTP token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads an optional .env file, then configuration from
// environment variables and YAML config files, and applies platform
// defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:], "config.yaml", "/etc/turfshop/config.yaml")
}

func loadConfig(args []string, files ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TURF",
		Args:      args,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set TURF_DATABASE_URL or DATABASE_URL")
	case c.CartTTL < 0:
		return errors.New("cart TTL must not be negative")
	case c.Submission.Burst < 1:
		return errors.New("submission burst must be at least 1")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's TURF_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
