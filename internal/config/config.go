package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeSecretKey      string        `env:"STRIPE_SECRET_KEY,required" validate:"required"`
	StripeRequestTimeout time.Duration `env:"STRIPE_REQUEST_TIMEOUT" envDefault:"20s"`
	Currency             string        `env:"CURRENCY" envDefault:"inr" validate:"required,len=3"`

	// AuthJWTSecret verifies the HS256 access tokens minted by the hosted
	// auth platform for storefront users.
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required" validate:"required,min=16"`

	// StorefrontURL is the origin the buyer is redirected back to after a
	// hosted payment session completes or is cancelled.
	StorefrontURL string `env:"STOREFRONT_URL,required" validate:"required,url"`

	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"" validate:"omitempty,oneof=resend"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_if=EmailProvider resend,omitempty,email"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	parsed, err := url.Parse(strings.TrimSpace(c.StorefrontURL))
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("STOREFRONT_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("STOREFRONT_URL must use https outside local development")
	}

	if c.StripeRequestTimeout < time.Second || c.StripeRequestTimeout > 2*time.Minute {
		return fmt.Errorf("STRIPE_REQUEST_TIMEOUT must be between 1s and 2m")
	}

	return nil
}

// IsAdminEmail reports whether the given email belongs to a storefront admin.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(admin)) == email {
			return true
		}
	}
	return false
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
