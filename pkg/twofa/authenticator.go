package twofa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AuthenticatorProvider verifies time-based codes from an authenticator app.
// Nothing is delivered.
type AuthenticatorProvider struct {
	issuer string
	opts   providerOptions
}

func NewAuthenticatorProvider(issuer string, opts ...ProviderOption) *AuthenticatorProvider {
	return &AuthenticatorProvider{
		issuer: issuer,
		opts:   applyProviderOptions(opts),
	}
}

func (p *AuthenticatorProvider) Method() Method { return MethodAuthenticator }

func (p *AuthenticatorProvider) Info() MethodInfo {
	return MethodInfo{
		Method:      MethodAuthenticator,
		Name:        "Authenticator app",
		Description: "Use a time-based code from an app such as Google Authenticator or Authy.",
		Icon:        "smartphone",
	}
}

func (p *AuthenticatorProvider) IsAvailable() bool { return true }

func (p *AuthenticatorProvider) Instructions() string {
	return "Scan the QR code with your authenticator app, or enter the key manually, then type the 6-digit code it shows."
}

// Setup issues a new secret. Any previous secret stops working.
func (p *AuthenticatorProvider) Setup(ctx context.Context, user User, rec *SecurityRecord) (SetupResult, error) {
	account := user.Email
	if account == "" {
		account = user.ID
	}
	key, err := GenerateTOTPKey(p.issuer, account)
	if err != nil {
		return SetupResult{}, err
	}
	payload, err := NewSetupPayload(key)
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to build setup payload: %w", err)
	}

	rec.Secret = payload.Secret
	rec.UpdatedAt = p.opts.now()

	return SetupResult{
		Method:         MethodAuthenticator,
		Secret:         payload.Secret,
		SetupURI:       payload.URI,
		QRCode:         payload.QRCode,
		ManualEntryKey: payload.ManualEntryKey,
		Instructions:   p.Instructions(),
	}, nil
}

// DeliverCode is a no-op: the user's app generates the code.
func (p *AuthenticatorProvider) DeliverCode(ctx context.Context, user User, rec *SecurityRecord) bool {
	return true
}

func (p *AuthenticatorProvider) Resend(ctx context.Context, user User, rec *SecurityRecord) bool {
	return true
}

func (p *AuthenticatorProvider) VerifyCode(ctx context.Context, rec *SecurityRecord, code string) bool {
	now := p.opts.now()
	if rec.IsLocked(now) {
		return false
	}
	if rec.Secret == "" {
		slog.Warn("Authenticator record has no secret", "user_id", rec.UserID)
		return false
	}

	code = strings.TrimSpace(code)
	if IsBackupCodeShape(code) {
		if rec.ConsumeBackupCode(code, now) {
			slog.Info("Backup code accepted", "user_id", rec.UserID, "method", MethodAuthenticator)
			return true
		}
		rec.RecordFailure(now)
		return false
	}

	if !VerifyTOTP(rec.Secret, code, now, p.opts.windowSteps, p.opts.stepSeconds) {
		rec.RecordFailure(now)
		return false
	}
	rec.RecordSuccess(now)
	return true
}
