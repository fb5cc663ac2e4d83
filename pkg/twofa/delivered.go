package twofa

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tendant/simple-mfa/pkg/codestore"
	"github.com/tendant/simple-mfa/pkg/notification"
)

// deliveredCodes is the shared behavior of methods that send a one-time code
// over a transport and check it against the code store.
type deliveredCodes struct {
	method   Method
	store    codestore.Store
	notifier NoticeSender
	system   notification.NotificationSystem
	opts     providerOptions
}

// deliver stores a fresh code and sends it to destination. Transport errors
// and timeouts return false and never count as failed attempts.
func (d *deliveredCodes) deliver(ctx context.Context, rec *SecurityRecord, destination string) bool {
	if rec.IsLocked(d.opts.now()) {
		slog.Info("Skipping code delivery for locked record", "user_id", rec.UserID, "method", d.method)
		return false
	}
	if destination == "" {
		slog.Warn("No destination for code delivery", "user_id", rec.UserID, "method", d.method)
		return false
	}

	code, err := GenerateNumericCode(CodeDigits)
	if err != nil {
		slog.Error("Failed to generate code", "method", d.method, "err", err)
		return false
	}

	key := CodeKey(rec.UserID, d.method)
	if err := d.store.Set(ctx, key, code, d.opts.codeTTL); err != nil {
		slog.Error("Failed to store delivered code", "user_id", rec.UserID, "method", d.method, "err", err)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.deliveryTimeout)
	defer cancel()

	err = d.notifier.Send(sendCtx, notification.TwofaCodeNotice, d.system, notification.NotificationData{
		To: destination,
		Data: map[string]string{
			"TwofaPasscode":    code,
			"ExpiresInMinutes": strconv.Itoa(int(d.opts.codeTTL.Minutes())),
		},
	})
	if err != nil {
		slog.Warn("Failed to deliver verification code", "user_id", rec.UserID, "method", d.method, "err", err)
		if derr := d.store.Delete(ctx, key); derr != nil {
			slog.Error("Failed to drop undelivered code", "user_id", rec.UserID, "method", d.method, "err", derr)
		}
		return false
	}

	slog.Info("Verification code delivered", "user_id", rec.UserID, "method", d.method)
	return true
}

// resend refuses while the cool-down marker is present. A refused resend
// leaves the earlier code and its expiry untouched. A failed delivery
// clears the marker.
func (d *deliveredCodes) resend(ctx context.Context, rec *SecurityRecord, destination string) bool {
	if rec.IsLocked(d.opts.now()) || destination == "" {
		return false
	}
	ok, err := d.store.SetNX(ctx, CooldownKey(rec.UserID, d.method), "1", d.opts.cooldownTTL)
	if err != nil {
		slog.Error("Failed to set resend cool-down", "user_id", rec.UserID, "method", d.method, "err", err)
		return false
	}
	if !ok {
		slog.Info("Resend refused during cool-down", "user_id", rec.UserID, "method", d.method)
		return false
	}
	if d.deliver(ctx, rec, destination) {
		return true
	}
	// Nothing reached the user, so the next resend may go out at once.
	if err := d.store.Delete(ctx, CooldownKey(rec.UserID, d.method)); err != nil {
		slog.Error("Failed to clear resend cool-down", "user_id", rec.UserID, "method", d.method, "err", err)
	}
	return false
}

// verify tries a backup code when the candidate has that shape, otherwise
// consumes the delivered code. Every miss counts as a failure.
func (d *deliveredCodes) verify(ctx context.Context, rec *SecurityRecord, candidate string) bool {
	now := d.opts.now()
	if rec.IsLocked(now) {
		return false
	}

	candidate = strings.TrimSpace(candidate)
	if IsBackupCodeShape(candidate) {
		if rec.ConsumeBackupCode(candidate, now) {
			slog.Info("Backup code accepted", "user_id", rec.UserID, "method", d.method)
			return true
		}
		rec.RecordFailure(now)
		return false
	}

	ok, err := d.store.CompareAndDelete(ctx, CodeKey(rec.UserID, d.method), candidate)
	if err != nil {
		slog.Error("Failed to check delivered code", "user_id", rec.UserID, "method", d.method, "err", err)
		return false
	}
	if !ok {
		rec.RecordFailure(now)
		return false
	}
	rec.RecordSuccess(now)
	return true
}
