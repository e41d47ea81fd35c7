// Package email provides transactional email delivery.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
}

// NewProvider returns the configured provider, or a no-op sender when email
// is not configured.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "":
		return NoopProvider{}, nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be 'resend' or empty")
	}
}

// NoopProvider silently drops email when no provider is configured.
type NoopProvider struct{}

func (NoopProvider) SendEmail(ctx context.Context, email *Email) error {
	_ = ctx
	_ = email
	return nil
}
