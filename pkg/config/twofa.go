package config

import (
	"time"

	"github.com/tendant/simple-mfa/pkg/twofa"
)

// TwoFactorConfig holds the service level 2FA settings
type TwoFactorConfig struct {
	Issuer          string        `env:"TWOFA_ISSUER" env-default:"simple-mfa"`
	Prefix          string        `env:"API_PREFIX_2FA" env-default:"/api/v1/2fa"`
	CodeTTL         time.Duration `env:"TWOFA_CODE_TTL" env-default:"5m"`
	ResendCooldown  time.Duration `env:"TWOFA_RESEND_COOLDOWN" env-default:"60s"`
	LinkTokenTTL    time.Duration `env:"TWOFA_LINK_TOKEN_TTL" env-default:"10m"`
	DeliveryTimeout time.Duration `env:"TWOFA_DELIVERY_TIMEOUT" env-default:"10s"`
	// RecordLeaseTTL caps how long one replica may hold a record
	RecordLeaseTTL time.Duration `env:"TWOFA_RECORD_LEASE_TTL" env-default:"30s"`

	// RecordStore selects the SecurityRecord repository: postgres, file or memory
	RecordStore string `env:"TWOFA_RECORD_STORE" env-default:"postgres"`
	DataDir     string `env:"TWOFA_DATA_DIR" env-default:"./data"`

	// CodeStore selects the ephemeral code store: redis or memory
	CodeStore string `env:"TWOFA_CODE_STORE" env-default:"redis"`
}

// ProviderOptions converts the durations to provider options
func (c TwoFactorConfig) ProviderOptions() []twofa.ProviderOption {
	return []twofa.ProviderOption{
		twofa.WithCodeTTL(c.CodeTTL),
		twofa.WithResendCooldown(c.ResendCooldown),
		twofa.WithLinkTokenTTL(c.LinkTokenTTL),
		twofa.WithDeliveryTimeout(c.DeliveryTimeout),
	}
}

// Validate checks the settings before any store is opened
func (c TwoFactorConfig) Validate() error {
	errs := CollectErrors(
		RequireNonEmpty("TWOFA_ISSUER", c.Issuer),
		RequirePositiveDuration("TWOFA_CODE_TTL", c.CodeTTL),
		RequirePositiveDuration("TWOFA_RESEND_COOLDOWN", c.ResendCooldown),
		RequirePositiveDuration("TWOFA_LINK_TOKEN_TTL", c.LinkTokenTTL),
		RequirePositiveDuration("TWOFA_DELIVERY_TIMEOUT", c.DeliveryTimeout),
		RequirePositiveDuration("TWOFA_RECORD_LEASE_TTL", c.RecordLeaseTTL),
		RequireOneOf("TWOFA_RECORD_STORE", c.RecordStore, []string{"postgres", "postgresql", "file", "memory", "inmem"}),
		RequireOneOf("TWOFA_CODE_STORE", c.CodeStore, []string{"redis", "memory", "inmem"}),
	)
	if c.RecordStore == "file" {
		if err := RequireNonEmpty("TWOFA_DATA_DIR", c.DataDir); err != nil {
			errs = append(errs, *err)
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
