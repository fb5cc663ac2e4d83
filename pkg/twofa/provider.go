package twofa

import (
	"context"
	"time"

	"github.com/tendant/simple-mfa/pkg/notification"
)

// MethodInfo describes a method for presentation.
type MethodInfo struct {
	Method      Method `json:"method"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// SetupResult is returned once from Setup. Only the fields of the chosen
// method are populated.
type SetupResult struct {
	Method         Method   `json:"method"`
	Secret         string   `json:"secret,omitempty"`
	SetupURI       string   `json:"setup_uri,omitempty"`
	QRCode         string   `json:"qr_code,omitempty"`
	ManualEntryKey string   `json:"manual_entry_key,omitempty"`
	DeepLink       string   `json:"deep_link,omitempty"`
	LinkingToken   string   `json:"linking_token,omitempty"`
	MailboxAddress string   `json:"mailbox_address,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
	BackupCodes    []string `json:"backup_codes"`
}

// Provider implements one second-factor method.
//
// Providers mutate the record in memory only. The Manager loads the record,
// serializes access to it, and persists it after the provider returns.
// Expected outcomes (locked, wrong code, transport down) are reported as
// false, never as errors.
type Provider interface {
	Method() Method
	Info() MethodInfo
	// IsAvailable reports whether the method's transport is configured.
	IsAvailable() bool
	Instructions() string
	// Setup stores method specific material on rec and fills the result.
	Setup(ctx context.Context, user User, rec *SecurityRecord) (SetupResult, error)
	DeliverCode(ctx context.Context, user User, rec *SecurityRecord) bool
	// Resend is DeliverCode guarded by a cool-down.
	Resend(ctx context.Context, user User, rec *SecurityRecord) bool
	VerifyCode(ctx context.Context, rec *SecurityRecord, code string) bool
}

// NoticeSender delivers templated notices. *notification.NotificationManager
// satisfies it.
type NoticeSender interface {
	Send(ctx context.Context, noticeType notification.NoticeType, system notification.NotificationSystem, data notification.NotificationData) error
	HasNotifier(system notification.NotificationSystem) bool
}

var _ NoticeSender = (*notification.NotificationManager)(nil)

type providerOptions struct {
	now             func() time.Time
	codeTTL         time.Duration
	cooldownTTL     time.Duration
	linkTokenTTL    time.Duration
	deliveryTimeout time.Duration
	windowSteps     uint
	stepSeconds     uint
}

func defaultProviderOptions() providerOptions {
	return providerOptions{
		now:             time.Now,
		codeTTL:         5 * time.Minute,
		cooldownTTL:     60 * time.Second,
		linkTokenTTL:    10 * time.Minute,
		deliveryTimeout: 10 * time.Second,
		windowSteps:     DefaultWindowSteps,
		stepSeconds:     DefaultStepSeconds,
	}
}

// ProviderOption configures a provider
type ProviderOption func(*providerOptions)

// WithProviderClock replaces time.Now
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(o *providerOptions) {
		o.now = now
	}
}

// WithCodeTTL sets how long a delivered code stays valid
func WithCodeTTL(ttl time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if ttl > 0 {
			o.codeTTL = ttl
		}
	}
}

// WithResendCooldown sets the minimum gap between resends
func WithResendCooldown(ttl time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if ttl > 0 {
			o.cooldownTTL = ttl
		}
	}
}

// WithLinkTokenTTL sets how long a bot linking token stays valid
func WithLinkTokenTTL(ttl time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if ttl > 0 {
			o.linkTokenTTL = ttl
		}
	}
}

// WithDeliveryTimeout bounds each transport call
func WithDeliveryTimeout(timeout time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if timeout > 0 {
			o.deliveryTimeout = timeout
		}
	}
}

// WithTOTPWindow sets the accepted drift and step length for authenticator codes
func WithTOTPWindow(windowSteps, stepSeconds uint) ProviderOption {
	return func(o *providerOptions) {
		o.windowSteps = windowSteps
		if stepSeconds > 0 {
			o.stepSeconds = stepSeconds
		}
	}
}

func applyProviderOptions(opts []ProviderOption) providerOptions {
	o := defaultProviderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
