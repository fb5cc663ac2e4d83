package twofa

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	CodeDigits      = 6
	LinkTokenPrefix = "link_"
)

// GenerateNumericCode returns a uniformly random code of the given number of
// digits, zero padded.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("invalid code length: %d", digits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// GenerateBackupCodes returns count independent uppercase hex codes.
func GenerateBackupCodes(count, length int) ([]string, error) {
	if count <= 0 || length <= 0 {
		return nil, fmt.Errorf("invalid backup code batch: count=%d length=%d", count, length)
	}
	codes := make([]string, 0, count)
	buf := make([]byte, (length+1)/2)
	for len(codes) < count {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		codes = append(codes, strings.ToUpper(hex.EncodeToString(buf))[:length])
	}
	return codes, nil
}

// GenerateLinkingToken returns a single-use token for binding a bot chat.
func GenerateLinkingToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return LinkTokenPrefix + hex.EncodeToString(buf), nil
}
