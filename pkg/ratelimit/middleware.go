package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
)

// Config holds rate limiting configuration
type Config struct {
	Capacity   int     // Max burst per key
	RefillRate float64 // Requests per second per key

	// BucketTTL is how long an idle key is remembered
	BucketTTL time.Duration

	// TrustForwardedFor takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustForwardedFor bool
}

// DefaultConfig allows a burst of 10 code requests per key, refilled at 10
// per minute.
func DefaultConfig() Config {
	return Config{
		Capacity:   10,
		RefillRate: 10.0 / 60.0,
		BucketTTL:  time.Hour,
	}
}

// Middleware limits requests per authenticated user, falling back to the
// client address for anonymous requests.
type Middleware struct {
	config  Config
	limiter *RateLimiter
}

func NewMiddleware(config Config) *Middleware {
	return &Middleware{
		config:  config,
		limiter: NewRateLimiter(config.Capacity, config.RefillRate, config.BucketTTL),
	}
}

func newMiddlewareWithLimiter(config Config, limiter *RateLimiter) *Middleware {
	return &Middleware{config: config, limiter: limiter}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.key(r)
		ok, wait := m.limiter.Take(key)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := strconv.FormatInt(int64(math.Ceil(wait.Seconds())), 10)
		slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path, "method", r.Method)

		err := apperrors.RateLimitExceeded(retryAfter)
		w.Header().Set("Retry-After", retryAfter)
		render.Status(r, err.HTTPStatusCode())
		render.JSON(w, r, errorBody{
			Error: "Too many requests. Please try again later.",
			Code:  string(err.Code),
		})
	})
}

// Janitor prunes idle keys every interval until ctx is done.
func (m *Middleware) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.limiter.Prune(); n > 0 {
				slog.Debug("Pruned idle rate limit buckets", "count", n)
			}
		}
	}
}

// Reset clears the limit for a user id
func (m *Middleware) Reset(userID string) {
	m.limiter.Reset("user:" + userID)
}

func (m *Middleware) key(r *http.Request) string {
	if userID := getUserID(r); userID != "" {
		return "user:" + userID
	}
	return "ip:" + m.clientIP(r)
}

func (m *Middleware) clientIP(r *http.Request) string {
	if m.config.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getUserID reads the "sub" claim set by the jwtauth verifier
func getUserID(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
