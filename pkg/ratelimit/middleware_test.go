package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, config Config, clock *fakeClock) (http.Handler, *jwtauth.JWTAuth) {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("ratelimit-test-secret"), nil)
	limiter := NewRateLimiterWithClock(config.Capacity, config.RefillRate, config.BucketTTL, clock.Now)
	mw := newMiddlewareWithLimiter(config, limiter)

	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokenAuth))
	r.Use(mw.Handler)
	r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r, tokenAuth
}

func post(h http.Handler, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_LimitsPerIP(t *testing.T) {
	clock := newFakeClock()
	h, _ := newTestRouter(t, Config{Capacity: 2, RefillRate: 0.5}, clock)

	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:5000", "").Code)
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:5001", "").Code)

	rec := post(h, "10.0.0.1:5002", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.2:5000", "").Code)

	clock.Advance(2 * time.Second)
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:5003", "").Code)
}

func TestMiddleware_LimitsPerUser(t *testing.T) {
	clock := newFakeClock()
	h, tokenAuth := newTestRouter(t, Config{Capacity: 1, RefillRate: 1.0 / 60.0}, clock)

	_, alice, err := tokenAuth.Encode(map[string]interface{}{"sub": "alice"})
	require.NoError(t, err)
	_, bob, err := tokenAuth.Encode(map[string]interface{}{"sub": "bob"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:5000", alice).Code)
	// Same user from another address is still limited.
	assert.Equal(t, http.StatusTooManyRequests, post(h, "10.0.0.9:5000", alice).Code)
	// Another user behind the same address is not.
	assert.Equal(t, http.StatusOK, post(h, "10.0.0.1:5000", bob).Code)
}

func TestMiddleware_ForwardedFor(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiterWithClock(1, 0.01, 0, clock.Now)

	trusting := newMiddlewareWithLimiter(Config{TrustForwardedFor: true}, limiter)
	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	req.RemoteAddr = "192.168.1.1:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "ip:203.0.113.7", trusting.key(req))

	direct := newMiddlewareWithLimiter(Config{}, limiter)
	assert.Equal(t, "ip:192.168.1.1", direct.key(req))
}

func TestMiddleware_ResetUser(t *testing.T) {
	clock := newFakeClock()
	config := Config{Capacity: 1, RefillRate: 1.0 / 60.0}
	limiter := NewRateLimiterWithClock(config.Capacity, config.RefillRate, 0, clock.Now)
	mw := newMiddlewareWithLimiter(config, limiter)
	tokenAuth := jwtauth.New("HS256", []byte("ratelimit-test-secret"), nil)

	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokenAuth))
	r.Use(mw.Handler)
	r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, alice, err := tokenAuth.Encode(map[string]interface{}{"sub": "alice"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, post(r, "10.0.0.1:5000", alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "10.0.0.1:5000", alice).Code)

	mw.Reset("alice")
	assert.Equal(t, http.StatusOK, post(r, "10.0.0.1:5000", alice).Code)
}
