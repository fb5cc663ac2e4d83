package notification

import "context"

type NotificationData struct {
	To      string            // Recipient identifier (email address, bot chat id)
	Subject string            // Optional: overrides the template subject
	Body    string            // Optional: pre-rendered content
	Data    map[string]string // Template variables
}

// NoticeTemplate holds the subject and bodies for one notice on one system.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
