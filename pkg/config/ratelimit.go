package config

import (
	"time"

	"github.com/tendant/simple-mfa/pkg/ratelimit"
)

// RateLimitConfig limits the routes that send or check codes
type RateLimitConfig struct {
	Enabled           bool          `env:"RATELIMIT_ENABLED" env-default:"true"`
	Capacity          int           `env:"RATELIMIT_CAPACITY" env-default:"10"`
	PerMinute         float64       `env:"RATELIMIT_PER_MINUTE" env-default:"10"`
	BucketTTL         time.Duration `env:"RATELIMIT_BUCKET_TTL" env-default:"1h"`
	TrustForwardedFor bool          `env:"RATELIMIT_TRUST_FORWARDED_FOR" env-default:"false"`
}

func (r RateLimitConfig) ToMiddlewareConfig() ratelimit.Config {
	return ratelimit.Config{
		Capacity:          r.Capacity,
		RefillRate:        r.PerMinute / 60.0,
		BucketTTL:         r.BucketTTL,
		TrustForwardedFor: r.TrustForwardedFor,
	}
}
