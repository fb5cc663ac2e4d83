package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithTelegram adds a bot notifier backed by the given sender
func WithTelegram(sender MessageSender) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(TelegramSystem, NewTelegramNotifier(sender))
		return nil
	}
}

// WithTwofaCodeEmailTemplate registers the 2FA code email template
func WithTwofaCodeEmailTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TwofaCodeNotice, EmailSystem, NoticeTemplate{
			Subject: "Your verification code",
			Text:    "Your verification code is: {{.TwofaPasscode}}\nIt expires in {{.ExpiresInMinutes}} minutes.",
			Html:    loadTemplate("templates/email/2fa_code_notice.html"),
		})
	}
}

// WithTwofaCodeTelegramTemplate registers the 2FA code bot message
func WithTwofaCodeTelegramTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TwofaCodeNotice, TelegramSystem, NoticeTemplate{
			Subject: "Verification code",
			Text:    "Your verification code is: {{.TwofaPasscode}}\nIt expires in {{.ExpiresInMinutes}} minutes.",
		})
	}
}

// WithTelegramLinkTemplates registers the bot replies of the account linking flow
func WithTelegramLinkTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		if err := nm.RegisterNotification(TelegramLinkedNotice, TelegramSystem, NoticeTemplate{
			Subject: "Account linked",
			Text:    "This chat is now linked to your account. Verification codes will be sent here.",
		}); err != nil {
			return err
		}
		return nm.RegisterNotification(TelegramLinkFailedNotice, TelegramSystem, NoticeTemplate{
			Subject: "Invalid token",
			Text:    "This linking token is invalid or has expired. Start the setup again from your account settings.",
		})
	}
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithTwofaCodeEmailTemplate(),
			WithTwofaCodeTelegramTemplate(),
			WithTelegramLinkTemplates(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}

		return nil
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
