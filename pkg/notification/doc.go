// Package notification sends templated notices over pluggable channels.
//
// A NotificationManager maps each NotificationSystem (email, telegram) to a
// Notifier and each NoticeType to one template per system. Callers pick both
// the notice and the system explicitly:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(smtpConfig),
//	    notification.WithTelegram(botClient),
//	    notification.WithDefaultTemplates(),
//	)
//
//	err = nm.Send(ctx, notification.TwofaCodeNotice, notification.EmailSystem, notification.NotificationData{
//	    To:   "user@example.com",
//	    Data: map[string]string{"TwofaPasscode": "123456", "ExpiresInMinutes": "5"},
//	})
//
// # Notifiers
//
//   - EmailNotifier: SMTP through wneessen/go-mail, text and HTML alternatives
//   - TelegramNotifier: renders the text template and posts it to a bot chat
//   - MockNotifier: records notifications for tests
//
// Notifiers receive the caller's context; transports are expected to honor
// its deadline.
package notification
