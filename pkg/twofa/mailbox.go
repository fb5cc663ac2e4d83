package twofa

import (
	"context"

	"github.com/tendant/simple-mfa/pkg/codestore"
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/notification"
	"github.com/tendant/simple-mfa/pkg/utils"
)

// MailboxProvider emails a one-time code to the user's address.
type MailboxProvider struct {
	codes deliveredCodes
}

func NewMailboxProvider(store codestore.Store, notifier NoticeSender, opts ...ProviderOption) *MailboxProvider {
	return &MailboxProvider{
		codes: deliveredCodes{
			method:   MethodMailbox,
			store:    store,
			notifier: notifier,
			system:   notification.EmailSystem,
			opts:     applyProviderOptions(opts),
		},
	}
}

func (p *MailboxProvider) Method() Method { return MethodMailbox }

func (p *MailboxProvider) Info() MethodInfo {
	return MethodInfo{
		Method:      MethodMailbox,
		Name:        "Email",
		Description: "Receive a one-time code at your email address.",
		Icon:        "mail",
	}
}

func (p *MailboxProvider) IsAvailable() bool {
	return p.codes.notifier != nil && p.codes.notifier.HasNotifier(notification.EmailSystem)
}

func (p *MailboxProvider) Instructions() string {
	return "We will email you a 6-digit code. Enter it to confirm."
}

func (p *MailboxProvider) Setup(ctx context.Context, user User, rec *SecurityRecord) (SetupResult, error) {
	if user.Email == "" {
		return SetupResult{}, apperrors.InvalidInput("email", "an email address is required for mailbox verification")
	}
	return SetupResult{
		Method:         MethodMailbox,
		MailboxAddress: utils.MaskEmail(user.Email),
		Instructions:   p.Instructions(),
	}, nil
}

func (p *MailboxProvider) DeliverCode(ctx context.Context, user User, rec *SecurityRecord) bool {
	return p.codes.deliver(ctx, rec, user.Email)
}

func (p *MailboxProvider) Resend(ctx context.Context, user User, rec *SecurityRecord) bool {
	return p.codes.resend(ctx, rec, user.Email)
}

func (p *MailboxProvider) VerifyCode(ctx context.Context, rec *SecurityRecord, code string) bool {
	return p.codes.verify(ctx, rec, code)
}
