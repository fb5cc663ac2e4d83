package twofa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tendant/simple-mfa/pkg/codestore"
	"github.com/tendant/simple-mfa/pkg/notification"
)

var linkTokenPattern = regexp.MustCompile(`^` + LinkTokenPrefix + `[0-9a-f]{32}$`)

// ParseLinkMessage extracts a linking token from a bot message. Both
// "/start <token>" and the bare token are accepted.
func ParseLinkMessage(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 2 && fields[0] == "/start" {
		fields = fields[1:]
	}
	if len(fields) != 1 || !linkTokenPattern.MatchString(fields[0]) {
		return "", false
	}
	return fields[0], true
}

// DeepLinker builds bot deep links. *telegram.Client satisfies it.
type DeepLinker interface {
	IsConfigured() bool
	DeepLink(startParam string) string
}

// BotChannelProvider sends one-time codes to a linked bot chat. A chat is
// linked by presenting a single-use token to the bot.
type BotChannelProvider struct {
	codes  deliveredCodes
	linker DeepLinker
}

func NewBotChannelProvider(store codestore.Store, notifier NoticeSender, linker DeepLinker, opts ...ProviderOption) *BotChannelProvider {
	return &BotChannelProvider{
		codes: deliveredCodes{
			method:   MethodBotChannel,
			store:    store,
			notifier: notifier,
			system:   notification.TelegramSystem,
			opts:     applyProviderOptions(opts),
		},
		linker: linker,
	}
}

func (p *BotChannelProvider) Method() Method { return MethodBotChannel }

func (p *BotChannelProvider) Info() MethodInfo {
	return MethodInfo{
		Method:      MethodBotChannel,
		Name:        "Telegram",
		Description: "Receive a one-time code from our Telegram bot.",
		Icon:        "send",
	}
}

func (p *BotChannelProvider) IsAvailable() bool {
	return p.linker != nil && p.linker.IsConfigured() &&
		p.codes.notifier != nil && p.codes.notifier.HasNotifier(notification.TelegramSystem)
}

func (p *BotChannelProvider) Instructions() string {
	return "Open the link to start a chat with our bot, or send it the linking token. Codes will be sent to that chat."
}

// Setup drops any existing chat binding and issues a linking token.
func (p *BotChannelProvider) Setup(ctx context.Context, user User, rec *SecurityRecord) (SetupResult, error) {
	token, err := GenerateLinkingToken()
	if err != nil {
		return SetupResult{}, err
	}
	if err := p.codes.store.Set(ctx, LinkKey(token), user.ID, p.codes.opts.linkTokenTTL); err != nil {
		return SetupResult{}, fmt.Errorf("failed to store linking token: %w", err)
	}

	rec.ChannelBinding = ""
	rec.UpdatedAt = p.codes.opts.now()

	return SetupResult{
		Method:       MethodBotChannel,
		DeepLink:     p.linker.DeepLink(token),
		LinkingToken: token,
		Instructions: p.Instructions(),
	}, nil
}

// DeliverCode refuses while the record has no chat binding.
func (p *BotChannelProvider) DeliverCode(ctx context.Context, user User, rec *SecurityRecord) bool {
	return p.codes.deliver(ctx, rec, rec.ChannelBinding)
}

func (p *BotChannelProvider) Resend(ctx context.Context, user User, rec *SecurityRecord) bool {
	return p.codes.resend(ctx, rec, rec.ChannelBinding)
}

func (p *BotChannelProvider) VerifyCode(ctx context.Context, rec *SecurityRecord, code string) bool {
	return p.codes.verify(ctx, rec, code)
}

// LookupLinkToken returns the user a token was issued to without consuming it.
func (p *BotChannelProvider) LookupLinkToken(ctx context.Context, token string) (string, bool) {
	userID, err := p.codes.store.Get(ctx, LinkKey(token))
	if err != nil {
		if !errors.Is(err, codestore.ErrNotFound) {
			slog.Error("Failed to look up linking token", "err", err)
		}
		return "", false
	}
	return userID, true
}

// ConsumeLinkToken deletes the token if it still belongs to userID. Only one
// caller can win.
func (p *BotChannelProvider) ConsumeLinkToken(ctx context.Context, token, userID string) bool {
	ok, err := p.codes.store.CompareAndDelete(ctx, LinkKey(token), userID)
	if err != nil {
		slog.Error("Failed to consume linking token", "err", err)
		return false
	}
	return ok
}

// NotifyLinkResult tells the chat whether linking worked. Send failures are
// logged only.
func (p *BotChannelProvider) NotifyLinkResult(ctx context.Context, chatID string, linked bool) {
	notice := notification.TelegramLinkFailedNotice
	if linked {
		notice = notification.TelegramLinkedNotice
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.codes.opts.deliveryTimeout)
	defer cancel()

	if err := p.codes.notifier.Send(sendCtx, notice, notification.TelegramSystem, notification.NotificationData{To: chatID}); err != nil {
		slog.Warn("Failed to send link result", "chat_id", chatID, "linked", linked, "err", err)
	}
}
