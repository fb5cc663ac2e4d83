package telegram

import (
	"strconv"
	"strings"
)

// Update is the subset of a Bot API webhook update the service reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// ChatID returns the chat id as a string, or "" when the update has no message.
func (u Update) ChatID() string {
	if u.Message == nil {
		return ""
	}
	return strconv.FormatInt(u.Message.Chat.ID, 10)
}

// Text returns the message text, or "" when the update has no message.
func (u Update) Text() string {
	if u.Message == nil {
		return ""
	}
	return strings.TrimSpace(u.Message.Text)
}
