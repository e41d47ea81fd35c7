package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:          "postgres://localhost:5432/khelmart",
		StripeSecretKey:      "sk_test_123",
		StripeRequestTimeout: 20 * time.Second,
		Currency:             "inr",
		AuthJWTSecret:        strings.Repeat("s", 32),
		StorefrontURL:        "https://shop.example.com",
		CacheProvider:        "memory",
		LogFormat:            "text",
		Port:                 "8080",
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	t.Parallel()

	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStorefrontURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https url", url: "https://shop.example.com", wantErr: false},
		{name: "http localhost allowed", url: "http://localhost:5173", wantErr: false},
		{name: "http non-local rejected", url: "http://shop.example.com", wantErr: true},
		{name: "relative url rejected", url: "/cart", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.StorefrontURL = tt.url

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateRedisRequiredForRedisCache(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "redis"
	cfg.RedisConnectionString = ""

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "RedisConnectionString") || !strings.Contains(err.Error(), "required_if") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStripeTimeoutBounds(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.StripeRequestTimeout = 100 * time.Millisecond

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestValidateShortJWTSecret(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AuthJWTSecret = "short"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "AuthJWTSecret") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsAdminEmail(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.AdminEmails = []string{"Owner@khelmart.in", " staff@khelmart.in "}

	if !cfg.IsAdminEmail("owner@khelmart.in") {
		t.Fatalf("expected case-insensitive admin match")
	}
	if !cfg.IsAdminEmail("staff@khelmart.in") {
		t.Fatalf("expected trimmed admin match")
	}
	if cfg.IsAdminEmail("buyer@example.com") {
		t.Fatalf("did not expect admin match")
	}
	if cfg.IsAdminEmail("") {
		t.Fatalf("empty email must not be admin")
	}
}
