package config

import (
	"time"

	"github.com/tendant/simple-mfa/pkg/telegram"
)

// TelegramConfig holds the bot settings for the bot_channel method. The
// method stays unavailable while BotToken or BotUsername is empty.
type TelegramConfig struct {
	BotToken      string        `env:"TELEGRAM_BOT_TOKEN" env-default:""`
	BotUsername   string        `env:"TELEGRAM_BOT_USERNAME" env-default:""`
	WebhookSecret string        `env:"TELEGRAM_WEBHOOK_SECRET" env-default:""`
	BaseURL       string        `env:"TELEGRAM_API_BASE_URL" env-default:"https://api.telegram.org"`
	Timeout       time.Duration `env:"TELEGRAM_TIMEOUT" env-default:"10s"`
	RetryMax      int           `env:"TELEGRAM_RETRY_MAX" env-default:"2"`
}

func (t TelegramConfig) IsConfigured() bool {
	return t.BotToken != "" && t.BotUsername != ""
}

func (t TelegramConfig) ToClientConfig() telegram.Config {
	return telegram.Config{
		BotToken:    t.BotToken,
		BotUsername: t.BotUsername,
		BaseURL:     t.BaseURL,
		Timeout:     t.Timeout,
		RetryMax:    t.RetryMax,
	}
}
