package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-mfa/pkg/telegram"
)

// MessageSender is the part of the Telegram client the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// TelegramNotifier renders the text template and posts it to a bot chat.
type TelegramNotifier struct {
	sender MessageSender
}

func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (n *TelegramNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("telegram notification requires a chat id in 'To'")
	}

	text, err := renderText("telegram", template.Text, notification.Data)
	if err != nil {
		return err
	}
	if text == "" {
		text = notification.Body
	}
	if text == "" {
		return fmt.Errorf("telegram notification requires a text body")
	}

	if err := n.sender.SendMessage(ctx, notification.To, text); err != nil {
		slog.Error("Failed to send telegram message", "notice", noticeType, "err", err)
		return err
	}
	return nil
}

var _ MessageSender = (*telegram.Client)(nil)
