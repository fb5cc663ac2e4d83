package twofa

import (
	"time"

	"github.com/google/uuid"
)

// Method identifies a second-factor verification method.
type Method string

const (
	MethodAuthenticator Method = "authenticator"
	MethodMailbox       Method = "mailbox"
	MethodBotChannel    Method = "bot_channel"
)

// Methods lists every supported method in the order they are tried when a
// caller does not pick one.
var Methods = []Method{MethodAuthenticator, MethodMailbox, MethodBotChannel}

// ParseMethod validates s against the closed set of methods.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", unknownMethod(s)
	}
	return m, nil
}

func (m Method) Valid() bool {
	switch m {
	case MethodAuthenticator, MethodMailbox, MethodBotChannel:
		return true
	}
	return false
}

func (m Method) String() string { return string(m) }

// User is the subset of the external user entity that 2FA needs.
type User struct {
	ID    string
	Email string
	Name  string
}

// BackupCode is one entry of a backup-code batch. Only the digest is kept.
type BackupCode struct {
	Hash   string     `json:"hash"`
	UsedAt *time.Time `json:"used_at,omitempty"`
}

func (c BackupCode) Used() bool { return c.UsedAt != nil }

// SecurityRecord is the persisted 2FA state for one (user, method) pair.
//
// Mutate it only through its methods so the failure counter, lockout and
// enablement invariants hold.
type SecurityRecord struct {
	ID             uuid.UUID    `json:"id"`
	UserID         string       `json:"user_id"`
	Method         Method       `json:"method"`
	Secret         string       `json:"secret,omitempty"`
	ChannelBinding string       `json:"channel_binding,omitempty"`
	IsEnabled      bool         `json:"is_enabled"`
	BackupCodes    []BackupCode `json:"backup_codes"`
	FailedAttempts int          `json:"failed_attempts"`
	LockedUntil    *time.Time   `json:"locked_until,omitempty"`
	LastUsedAt     *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewSecurityRecord returns a disabled record with no secret material.
func NewSecurityRecord(userID string, method Method, now time.Time) *SecurityRecord {
	return &SecurityRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Method:      method,
		BackupCodes: []BackupCode{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsSetupComplete reports whether the record has what its method needs to
// verify codes: a secret for authenticator, a chat binding for bot_channel.
func (r *SecurityRecord) IsSetupComplete() bool {
	switch r.Method {
	case MethodAuthenticator:
		return r.Secret != ""
	case MethodBotChannel:
		return r.ChannelBinding != ""
	case MethodMailbox:
		return true
	}
	return false
}

// Enable marks the record usable. It refuses while setup is incomplete.
func (r *SecurityRecord) Enable(now time.Time) bool {
	if !r.IsSetupComplete() {
		return false
	}
	r.IsEnabled = true
	r.UpdatedAt = now
	return true
}

func (r *SecurityRecord) Disable(now time.Time) {
	r.IsEnabled = false
	r.UpdatedAt = now
}

// BindChannel links the record to a bot chat. It reports false when the
// record was already bound to chatID.
func (r *SecurityRecord) BindChannel(chatID string, now time.Time) bool {
	if r.ChannelBinding == chatID {
		return false
	}
	r.ChannelBinding = chatID
	r.UpdatedAt = now
	return true
}

// beginSetup puts the record back into the disabled state for a fresh setup.
// Lockout state survives so re-running setup cannot be used to clear it.
func (r *SecurityRecord) beginSetup(now time.Time) {
	r.IsEnabled = false
	r.UpdatedAt = now
}

// Clone returns a deep copy.
func (r *SecurityRecord) Clone() *SecurityRecord {
	c := *r
	c.BackupCodes = make([]BackupCode, len(r.BackupCodes))
	for i, code := range r.BackupCodes {
		c.BackupCodes[i] = code
		if code.UsedAt != nil {
			t := *code.UsedAt
			c.BackupCodes[i].UsedAt = &t
		}
	}
	if r.LockedUntil != nil {
		t := *r.LockedUntil
		c.LockedUntil = &t
	}
	if r.LastUsedAt != nil {
		t := *r.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}
