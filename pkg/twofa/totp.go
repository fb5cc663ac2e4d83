package twofa

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultWindowSteps = 2
	DefaultStepSeconds = 30
	// SecretSize is the secret length in bytes: 32 base-32 characters.
	SecretSize = 20
	qrCodeSize = 200
)

// VerifyTOTP checks code against secret at time at, accepting codes from
// windowSteps steps before or after the current one.
func VerifyTOTP(secret, code string, at time.Time, windowSteps, stepSeconds uint) bool {
	if secret == "" || stepSeconds == 0 {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at.UTC(), totp.ValidateOpts{
		Period:    stepSeconds,
		Skew:      windowSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// SetupPayload is what an authenticator app needs to enroll a secret.
type SetupPayload struct {
	Secret         string
	URI            string
	QRCode         string // data:image/png;base64 URI
	ManualEntryKey string
}

// GenerateTOTPKey creates a new random secret of SecretSize bytes bound to
// issuer and account.
func GenerateTOTPKey(issuer, account string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      DefaultStepSeconds,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key, nil
}

// NewSetupPayload renders key as an otpauth URI, a QR image of it, and the
// secret chunked for manual entry.
func NewSetupPayload(key *otp.Key) (SetupPayload, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return SetupPayload{}, fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return SetupPayload{}, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return SetupPayload{
		Secret:         key.Secret(),
		URI:            key.URL(),
		QRCode:         "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		ManualEntryKey: chunk(key.Secret(), 4),
	}, nil
}

func chunk(s string, size int) string {
	var b strings.Builder
	for i := 0; i < len(s); i += size {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
