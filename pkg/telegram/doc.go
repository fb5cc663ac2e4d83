// Package telegram is a minimal Telegram Bot API client: it sends text
// messages, builds t.me deep links and decodes webhook updates.
//
// Requests go through hashicorp/go-retryablehttp with a bounded timeout so a
// slow Bot API turns into an error instead of a stuck request.
package telegram
