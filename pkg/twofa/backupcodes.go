package twofa

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

const (
	BackupCodeCount  = 8
	BackupCodeLength = 8
)

// IsBackupCodeShape reports whether code looks like a backup code: eight
// hex characters in either case.
func IsBackupCodeShape(code string) bool {
	if len(code) != BackupCodeLength {
		return false
	}
	for _, c := range code {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// hashBackupCode salts with the user id so equal codes of different users
// never share a digest.
func hashBackupCode(userID, code string) string {
	sum := sha256.Sum256([]byte(userID + ":" + strings.ToUpper(code)))
	return hex.EncodeToString(sum[:])
}

// RegenerateBackupCodes replaces the whole batch and returns the plaintext
// codes. They cannot be recovered from the record afterwards.
func (r *SecurityRecord) RegenerateBackupCodes(now time.Time) ([]string, error) {
	codes, err := GenerateBackupCodes(BackupCodeCount, BackupCodeLength)
	if err != nil {
		return nil, err
	}
	batch := make([]BackupCode, len(codes))
	for i, code := range codes {
		batch[i] = BackupCode{Hash: hashBackupCode(r.UserID, code)}
	}
	r.BackupCodes = batch
	r.UpdatedAt = now
	return codes, nil
}

// ConsumeBackupCode tombstones the matching unused code and records a
// success. On no match the record is left untouched; counting the failure is
// up to the caller.
func (r *SecurityRecord) ConsumeBackupCode(code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	digest := []byte(hashBackupCode(r.UserID, code))
	for i := range r.BackupCodes {
		entry := &r.BackupCodes[i]
		if entry.Used() {
			continue
		}
		if subtle.ConstantTimeCompare(digest, []byte(entry.Hash)) == 1 {
			t := now
			entry.UsedAt = &t
			r.RecordSuccess(now)
			return true
		}
	}
	return false
}

// BackupCodesRemaining counts unused backup codes.
func (r *SecurityRecord) BackupCodesRemaining() int {
	n := 0
	for _, c := range r.BackupCodes {
		if !c.Used() {
			n++
		}
	}
	return n
}
