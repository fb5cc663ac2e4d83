package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError reports one invalid setting
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:")
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

func RequireNonEmpty(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %d", value)}
	}
	return nil
}

func RequirePositiveDuration(field string, value time.Duration) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %v", value)}
	}
	return nil
}

func RequireOneOf(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{Field: field, Message: fmt.Sprintf("must be one of %v, got %q", allowed, value)}
}

// RequireValidURL accepts absolute http and https URLs
func RequireValidURL(field, value string) *ValidationError {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", value)}
	}
	return nil
}

// CollectErrors drops the nil results
func CollectErrors(errors ...*ValidationError) ValidationErrors {
	var result ValidationErrors
	for _, err := range errors {
		if err != nil {
			result = append(result, *err)
		}
	}
	return result
}

// Validate requires a username whenever a bot token is set
func (t TelegramConfig) Validate() error {
	if t.BotToken == "" {
		return nil
	}
	errs := CollectErrors(
		RequireNonEmpty("TELEGRAM_BOT_USERNAME", t.BotUsername),
		RequireValidURL("TELEGRAM_API_BASE_URL", t.BaseURL),
	)
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (r RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	errs := CollectErrors(RequirePositive("RATELIMIT_CAPACITY", r.Capacity))
	if r.PerMinute <= 0 {
		errs = append(errs, ValidationError{Field: "RATELIMIT_PER_MINUTE", Message: fmt.Sprintf("must be positive, got %v", r.PerMinute)})
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
