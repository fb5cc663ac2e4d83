package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const DefaultBaseURL = "https://api.telegram.org"

type Config struct {
	BotToken    string
	BotUsername string
	BaseURL     string
	Timeout     time.Duration
	RetryMax    int
}

// Client talks to the Telegram Bot API.
type Client struct {
	botToken    string
	botUsername string
	baseURL     string
	http        *retryablehttp.Client
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = config.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = config.Timeout
	rc.Logger = slog.Default()

	return &Client{
		botToken:    config.BotToken,
		botUsername: strings.TrimPrefix(config.BotUsername, "@"),
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		http:        rc,
	}
}

// IsConfigured reports whether the client has credentials to reach the bot.
func (c *Client) IsConfigured() bool {
	return c != nil && c.botToken != "" && c.botUsername != ""
}

// DeepLink returns the t.me link that opens the bot with a start parameter.
func (c *Client) DeepLink(startParam string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", c.botUsername, url.QueryEscape(startParam))
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// SendMessage posts a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("telegram client not configured")
	}
	if chatID == "" {
		return fmt.Errorf("telegram message requires a chat id")
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// the url carries the bot token, keep it out of the error
		return fmt.Errorf("failed to send telegram message: %w", redact(err, c.botToken))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		return &APIError{Code: result.ErrorCode, Description: result.Description}
	}

	slog.Debug("Telegram message sent", "chat_id", chatID)
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "<redacted>"), err: err}
}
