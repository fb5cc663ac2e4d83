package twofa

import (
	"encoding/base32"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"
)

func TestVerifyTOTP_CurrentStep(t *testing.T) {
	secret := newSecret(t)

	at := time.Date(2026, 3, 1, 12, 0, 10, 0, time.UTC)
	code := totpCode(t, secret, at)
	assert.True(t, VerifyTOTP(secret, code, at, DefaultWindowSteps, DefaultStepSeconds))
	assert.True(t, VerifyTOTP(secret, " "+code+" ", at, DefaultWindowSteps, DefaultStepSeconds))
}

func TestVerifyTOTP_Window(t *testing.T) {
	secret := newSecret(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, steps := range []int{-2, -1, 1, 2} {
		code := totpCode(t, secret, at.Add(time.Duration(steps)*30*time.Second))
		assert.True(t, VerifyTOTP(secret, code, at, DefaultWindowSteps, DefaultStepSeconds), "steps=%d", steps)
	}

	for _, steps := range []int{-3, 3} {
		code := totpCode(t, secret, at.Add(time.Duration(steps)*30*time.Second))
		// A far code can collide with a near one by chance; only assert
		// when it does not.
		near := map[string]bool{}
		for s := -2; s <= 2; s++ {
			near[totpCode(t, secret, at.Add(time.Duration(s)*30*time.Second))] = true
		}
		if near[code] {
			continue
		}
		assert.False(t, VerifyTOTP(secret, code, at, DefaultWindowSteps, DefaultStepSeconds), "steps=%d", steps)
	}
}

func TestVerifyTOTP_Rejects(t *testing.T) {
	secret := newSecret(t)
	at := time.Now()

	assert.False(t, VerifyTOTP("", "123456", at, DefaultWindowSteps, DefaultStepSeconds))
	assert.False(t, VerifyTOTP(secret, "", at, DefaultWindowSteps, DefaultStepSeconds))
	assert.False(t, VerifyTOTP(secret, "12345", at, DefaultWindowSteps, DefaultStepSeconds))
	assert.False(t, VerifyTOTP(secret, "1234567", at, DefaultWindowSteps, DefaultStepSeconds))
	assert.False(t, VerifyTOTP(secret, wrongTOTP(t, secret, at), at, DefaultWindowSteps, DefaultStepSeconds))
	assert.False(t, VerifyTOTP(secret, totpCode(t, secret, at), at, DefaultWindowSteps, 0))
}

func TestVerifyTOTP_MatchesIndependentImplementation(t *testing.T) {
	secret := newSecret(t)

	code := gotp.NewDefaultTOTP(secret).Now()
	assert.True(t, VerifyTOTP(secret, code, time.Now(), DefaultWindowSteps, DefaultStepSeconds))
}

func TestGenerateTOTPKey(t *testing.T) {
	key, err := GenerateTOTPKey("simple-mfa", "alice@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z2-7]{32}$`, key.Secret())
	assert.Equal(t, "simple-mfa", key.Issuer())
	assert.Equal(t, "alice@example.com", key.AccountName())

	_, err = base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(key.Secret())
	assert.NoError(t, err)

	other, err := GenerateTOTPKey("simple-mfa", "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, key.Secret(), other.Secret())

	_, err = GenerateTOTPKey("", "alice@example.com")
	assert.Error(t, err)
	_, err = GenerateTOTPKey("simple-mfa", "")
	assert.Error(t, err)
}

func TestNewSetupPayload(t *testing.T) {
	key, err := GenerateTOTPKey("simple-mfa", "alice@example.com")
	require.NoError(t, err)

	payload, err := NewSetupPayload(key)
	require.NoError(t, err)
	assert.Equal(t, key.Secret(), payload.Secret)

	u, err := url.Parse(payload.URI)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", u.Scheme)
	assert.Equal(t, "totp", u.Host)
	q := u.Query()
	assert.Equal(t, payload.Secret, q.Get("secret"))
	assert.Equal(t, "simple-mfa", q.Get("issuer"))
	assert.Equal(t, "6", q.Get("digits"))
	assert.Equal(t, "30", q.Get("period"))
	assert.Contains(t, u.Path, "alice@example.com")

	require.True(t, strings.HasPrefix(payload.QRCode, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload.QRCode, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	groups := strings.Split(payload.ManualEntryKey, " ")
	assert.Len(t, groups, 8)
	assert.Equal(t, payload.Secret, strings.Join(groups, ""))

	// The payload secret is the one the app will generate codes from.
	now := time.Now()
	assert.True(t, VerifyTOTP(payload.Secret, totpCode(t, payload.Secret, now), now, DefaultWindowSteps, DefaultStepSeconds))
}

func TestChunk(t *testing.T) {
	assert.Equal(t, "ABCD EFGH IJ", chunk("ABCDEFGHIJ", 4))
	assert.Equal(t, "ABCD", chunk("ABCD", 4))
	assert.Equal(t, "", chunk("", 4))
}
