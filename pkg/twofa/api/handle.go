package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/telegram"
	"github.com/tendant/simple-mfa/pkg/twofa"
)

// WebhookSecretHeader is set by the Bot API on every webhook call when a
// secret token was registered with setWebhook.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TwoFaHandler returns a http.Handler for the twofa API. Every route except
// the bot webhook requires a valid bearer token issued by tokenAuth.
func TwoFaHandler(h *Handle, tokenAuth *jwtauth.JWTAuth) http.Handler {
	r := chi.NewRouter()

	r.Post("/telegram/webhook", h.TelegramWebhook)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))

		r.Get("/methods", h.GetMethods)
		r.Get("/status", h.GetStatus)
		r.Post("/setup", h.PostSetup)
		r.Post("/disable", h.PostDisable)
		r.Post("/backup-codes", h.PostBackupCodes)

		// Routes that send or check codes.
		r.Group(func(r chi.Router) {
			if h.rateLimit != nil {
				r.Use(h.rateLimit.Handler)
			}
			r.Post("/enable", h.PostEnable)
			r.Post("/send", h.PostSend)
			r.Post("/resend", h.PostResend)
			r.Post("/verify", h.PostVerify)
		})
	})

	return r
}

type Handle struct {
	manager       *twofa.Manager
	webhookSecret string
	rateLimit     RateLimiter
}

// RateLimiter throttles the code routes. Reset is called once a user
// verifies a code.
type RateLimiter interface {
	Handler(next http.Handler) http.Handler
	Reset(userID string)
}

type Option func(*Handle)

// WithWebhookSecret makes the webhook reject calls without the matching
// secret header
func WithWebhookSecret(secret string) Option {
	return func(h *Handle) {
		h.webhookSecret = secret
	}
}

// WithRateLimit wraps the code sending and checking routes
func WithRateLimit(rl RateLimiter) Option {
	return func(h *Handle) {
		h.rateLimit = rl
	}
}

func NewHandle(manager *twofa.Manager, opts ...Option) *Handle {
	h := &Handle{manager: manager}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetMethods handles GET /methods
func (h *Handle) GetMethods(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, MethodsResponse{Methods: h.manager.AvailableMethods()})
}

// GetStatus handles GET /status
func (h *Handle) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}

	status, err := h.manager.Status(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err, "Failed to get two-factor status")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, status)
}

// PostSetup handles POST /setup
func (h *Handle) PostSetup(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req MethodRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.manager.Setup(r.Context(), user, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to set up two-factor method")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// PostEnable handles POST /enable
func (h *Handle) PostEnable(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Method == "" || req.Code == "" {
		writeError(w, r, apperrors.InvalidInput("request", "method and code are required"), "")
		return
	}

	enabled, err := h.manager.Enable(r.Context(), user.ID, req.Method, req.Code)
	if err != nil {
		writeError(w, r, err, "Failed to enable two-factor method")
		return
	}
	if !enabled {
		h.rejectCode(w, r, user.ID, req.Method)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EnableResponse{
		Message: "Two-factor method enabled",
		Method:  twofa.Method(req.Method),
	})
}

// PostDisable handles POST /disable
func (h *Handle) PostDisable(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req MethodRequest
	if !decode(w, r, &req) {
		return
	}

	disabled, err := h.manager.Disable(r.Context(), user.ID, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to disable two-factor method")
		return
	}

	message := "Two-factor method disabled"
	if !disabled {
		message = "Two-factor method was not enabled"
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, DisableResponse{Message: message, Disabled: disabled})
}

// PostSend handles POST /send. The method is optional.
func (h *Handle) PostSend(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req MethodRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	sent, err := h.manager.SendVerificationCode(r.Context(), user, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to send verification code")
		return
	}
	if !sent {
		if h.locked(r, user.ID, req.Method) {
			writeError(w, r, twofa.ErrLocked, "")
			return
		}
		writeError(w, r, twofa.ErrDeliveryFailed, "")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SendResponse{Message: "Verification code sent"})
}

// PostResend handles POST /resend
func (h *Handle) PostResend(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req MethodRequest
	if !decode(w, r, &req) {
		return
	}

	sent, err := h.manager.Resend(r.Context(), user, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to resend verification code")
		return
	}
	if !sent {
		if h.locked(r, user.ID, req.Method) {
			writeError(w, r, twofa.ErrLocked, "")
			return
		}
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{
			Error: "Verification code could not be resent yet, please try again shortly",
			Code:  string(apperrors.ErrCodeRateLimitExceeded),
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SendResponse{Message: "Verification code sent"})
}

// PostVerify handles POST /verify. Without a method every enabled method is
// tried.
func (h *Handle) PostVerify(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req CodeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, r, apperrors.InvalidInput("code", "must not be empty"), "")
		return
	}

	verified, err := h.manager.VerifyUserCode(r.Context(), user.ID, req.Code, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to verify code")
		return
	}
	if !verified {
		h.rejectCode(w, r, user.ID, req.Method)
		return
	}
	if h.rateLimit != nil {
		h.rateLimit.Reset(user.ID)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyResponse{Message: "Code verified", Verified: true})
}

// PostBackupCodes handles POST /backup-codes
func (h *Handle) PostBackupCodes(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	var req MethodRequest
	if !decode(w, r, &req) {
		return
	}

	codes, err := h.manager.RegenerateBackupCodes(r.Context(), user.ID, req.Method)
	if err != nil {
		writeError(w, r, err, "Failed to regenerate backup codes")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, BackupCodesResponse{BackupCodes: codes})
}

// TelegramWebhook handles POST /telegram/webhook. Updates without a text
// message are acknowledged and ignored so the platform does not retry them.
func (h *Handle) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			slog.Warn("Rejected webhook call with bad secret", "remote_addr", r.RemoteAddr)
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Error("Failed to decode webhook update", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	chatID := update.ChatID()
	if chatID == "" {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, WebhookResponse{})
		return
	}

	linked, err := h.manager.HandleBotMessage(r.Context(), chatID, update.Text())
	if err != nil {
		writeError(w, r, err, "Failed to handle bot message")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, WebhookResponse{Linked: linked})
}

// rejectCode answers a code that was not accepted. A locked record gets a
// cool-down message that does not reveal the remaining time.
func (h *Handle) rejectCode(w http.ResponseWriter, r *http.Request, userID, method string) {
	if h.locked(r, userID, method) {
		writeError(w, r, twofa.ErrLocked, "")
		return
	}
	writeError(w, r, twofa.ErrInvalidCode, "")
}

func (h *Handle) locked(r *http.Request, userID, method string) bool {
	if method == "" {
		return false
	}
	locked, err := h.manager.IsLocked(r.Context(), userID, method)
	if err != nil {
		slog.Error("Failed to check lockout", "user_id", userID, "method", method, "error", err)
		return false
	}
	return locked
}

// userFromRequest reads the user from the verified token claims: "sub" is
// the user id, "email" and "name" are optional.
func (h *Handle) userFromRequest(w http.ResponseWriter, r *http.Request) (twofa.User, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		slog.Error("Failed to get claims from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return twofa.User{}, false
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return twofa.User{}, false
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return twofa.User{ID: sub, Email: email, Name: name}, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	slog.Error("Failed to decode request body", "error", err)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
	return false
}

// writeError maps err to a status through its error code. Internal errors
// are logged and answered with fallback instead of their message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)

	message := fallback
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && code != apperrors.ErrCodeInternal {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Two-factor request failed", "path", r.URL.Path, "code", code, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message, Code: string(code)})
}
