package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukapay/dukapay-gobackend/internal/models"
)

// ErrNotConfigured is returned when the merchant credentials are incomplete.
var ErrNotConfigured = errors.New("merchant configuration missing")

// Provider supplies the merchant gateway credentials. Kept behind an
// interface so services never reach into ambient environment state.
type Provider interface {
	MerchantConfig(ctx context.Context) (*models.MerchantConfig, error)
}

// EnvProvider reads the merchant configuration from the environment once at
// construction time (after godotenv has loaded .env in main).
type EnvProvider struct {
	cfg models.MerchantConfig
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{
		cfg: models.MerchantConfig{
			BaseURL:         os.Getenv("MPESA_BASE_URL"),
			ShortCode:       os.Getenv("MPESA_SHORTCODE"),
			Passkey:         os.Getenv("MPESA_PASSKEY"),
			ConsumerKey:     os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:  os.Getenv("MPESA_CONSUMER_SECRET"),
			CallbackBaseURL: os.Getenv("CALLBACK_BASE_URL"),
		},
	}
}

func (p *EnvProvider) MerchantConfig(ctx context.Context) (*models.MerchantConfig, error) {
	for name, v := range map[string]string{
		"MPESA_BASE_URL":        p.cfg.BaseURL,
		"MPESA_SHORTCODE":       p.cfg.ShortCode,
		"MPESA_PASSKEY":         p.cfg.Passkey,
		"MPESA_CONSUMER_KEY":    p.cfg.ConsumerKey,
		"MPESA_CONSUMER_SECRET": p.cfg.ConsumerSecret,
		"CALLBACK_BASE_URL":     p.cfg.CallbackBaseURL,
	} {
		if v == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrNotConfigured, name)
		}
	}
	cfg := p.cfg
	return &cfg, nil
}

// StaticProvider serves a fixed configuration, useful for tests and for
// multi-tenant setups where the credentials come from a database row.
type StaticProvider struct {
	Cfg *models.MerchantConfig
}

func (p *StaticProvider) MerchantConfig(ctx context.Context) (*models.MerchantConfig, error) {
	if p.Cfg == nil {
		return nil, ErrNotConfigured
	}
	return p.Cfg, nil
}
