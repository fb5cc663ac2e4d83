package twofa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-mfa/pkg/codestore"
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
)

// ChannelLinker is implemented by providers that bind an external chat to a
// user through a linking token.
type ChannelLinker interface {
	LookupLinkToken(ctx context.Context, token string) (userID string, ok bool)
	ConsumeLinkToken(ctx context.Context, token, userID string) bool
	NotifyLinkResult(ctx context.Context, chatID string, linked bool)
}

var _ ChannelLinker = (*BotChannelProvider)(nil)

// MethodStatus summarizes one enabled method.
type MethodStatus struct {
	Method               Method     `json:"method"`
	IsSetupComplete      bool       `json:"is_setup_complete"`
	LastUsedAt           *time.Time `json:"last_used_at"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

// Status is the aggregated 2FA state of a user.
type Status struct {
	IsEnabled        bool           `json:"is_enabled"`
	EnabledMethods   []MethodStatus `json:"enabled_methods"`
	AvailableMethods []MethodInfo   `json:"available_methods"`
}

// Manager orchestrates the providers and persists every record transition.
// Calls touching the same (user, method) are serialized.
type Manager struct {
	repo      RecordRepository
	providers map[Method]Provider
	locks     *keyedMutex
	lease     *recordLease
	now       func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithRecordLease makes record updates hold a lease in store, so replicas
// sharing store and the repository see each other's failure counts. ttl
// bounds how long a crashed holder blocks the record.
func WithRecordLease(store codestore.Store, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.lease = newRecordLease(store, ttl)
	}
}

// NewManager builds a manager over a fixed set of providers, at most one per
// method.
func NewManager(repo RecordRepository, providers []Provider, opts ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("record repository is required")
	}
	m := &Manager{
		repo:      repo,
		providers: make(map[Method]Provider, len(providers)),
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
	for _, p := range providers {
		method := p.Method()
		if !method.Valid() {
			return nil, fmt.Errorf("provider has unknown method %q", method)
		}
		if _, dup := m.providers[method]; dup {
			return nil, fmt.Errorf("duplicate provider for method %s", method)
		}
		m.providers[method] = p
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) provider(method string) (Method, Provider, error) {
	meth, err := ParseMethod(method)
	if err != nil {
		return "", nil, err
	}
	p, ok := m.providers[meth]
	if !ok {
		return "", nil, apperrors.Newf(apperrors.ErrCodeNotConfigured, "%s is not configured", meth)
	}
	return meth, p, nil
}

func (m *Manager) availableProvider(method string) (Method, Provider, error) {
	meth, p, err := m.provider(method)
	if err != nil {
		return "", nil, err
	}
	if !p.IsAvailable() {
		return "", nil, apperrors.Newf(apperrors.ErrCodeNotConfigured, "%s is not configured", meth)
	}
	return meth, p, nil
}

// lock serializes (user, method) within the process and, with a lease
// configured, across processes.
func (m *Manager) lock(ctx context.Context, userID string, method Method) (func(), error) {
	unlock := m.locks.Lock(recordLockKey(userID, method))
	if m.lease == nil {
		return unlock, nil
	}
	release, err := m.lease.acquire(ctx, userID, method)
	if err != nil {
		unlock()
		slog.Warn("Record lease not acquired", "user_id", userID, "method", method, "err", err)
		return nil, err
	}
	return func() {
		release()
		unlock()
	}, nil
}

// load returns ErrNotSetup when no record exists.
func (m *Manager) load(ctx context.Context, userID string, method Method) (*SecurityRecord, error) {
	rec, err := m.repo.GetRecord(ctx, userID, method)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notSetup(userID, method)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load security record")
	}
	return rec, nil
}

func (m *Manager) save(ctx context.Context, rec *SecurityRecord) error {
	if err := m.repo.SaveRecord(ctx, rec); err != nil {
		slog.Error("Failed to save security record", "user_id", rec.UserID, "method", rec.Method, "err", err)
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to save security record")
	}
	return nil
}

// AvailableMethods lists the methods whose transport is configured.
func (m *Manager) AvailableMethods() []MethodInfo {
	infos := []MethodInfo{}
	for _, method := range Methods {
		p, ok := m.providers[method]
		if ok && p.IsAvailable() {
			infos = append(infos, p.Info())
		}
	}
	return infos
}

// Setup creates or resets the record for (user, method) in the disabled
// state, issues a fresh backup-code batch and returns the method's setup
// material. Lockout state is preserved across re-setup.
func (m *Manager) Setup(ctx context.Context, user User, method string) (SetupResult, error) {
	meth, p, err := m.availableProvider(method)
	if err != nil {
		return SetupResult{}, err
	}

	unlock, err := m.lock(ctx, user.ID, meth)
	if err != nil {
		return SetupResult{}, err
	}
	defer unlock()

	now := m.now()
	rec, err := m.repo.GetRecord(ctx, user.ID, meth)
	if errors.Is(err, ErrRecordNotFound) {
		rec = NewSecurityRecord(user.ID, meth, now)
	} else if err != nil {
		return SetupResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load security record")
	}

	rec.beginSetup(now)
	codes, err := rec.RegenerateBackupCodes(now)
	if err != nil {
		return SetupResult{}, err
	}

	result, err := p.Setup(ctx, user, rec)
	if err != nil {
		slog.Warn("Two-factor setup failed", "user_id", user.ID, "method", meth, "err", err)
		return SetupResult{}, err
	}

	if err := m.save(ctx, rec); err != nil {
		return SetupResult{}, err
	}

	result.BackupCodes = codes
	slog.Info("Two-factor setup started", "user_id", user.ID, "method", meth)
	return result, nil
}

// Enable verifies code against the record and, on success, enables it.
// A false result with a nil error means the code was rejected; use IsLocked
// to tell a lockout apart.
func (m *Manager) Enable(ctx context.Context, userID, method, code string) (bool, error) {
	meth, p, err := m.provider(method)
	if err != nil {
		return false, err
	}

	unlock, err := m.lock(ctx, userID, meth)
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.load(ctx, userID, meth)
	if err != nil {
		return false, err
	}

	now := m.now()
	if rec.IsLocked(now) {
		return false, nil
	}

	// An unbound bot channel cannot be enabled; leave its codes unspent.
	if !rec.IsSetupComplete() {
		slog.Info("Enable refused, setup is incomplete", "user_id", userID, "method", meth)
		return false, nil
	}

	ok := p.VerifyCode(ctx, rec, code)
	if ok {
		rec.Enable(now)
	}
	if err := m.save(ctx, rec); err != nil {
		return false, err
	}

	if ok {
		slog.Info("Two-factor method enabled", "user_id", userID, "method", meth)
	}
	return ok, nil
}

// Disable turns the method off. It reports false when no record exists.
func (m *Manager) Disable(ctx context.Context, userID, method string) (bool, error) {
	meth, err := ParseMethod(method)
	if err != nil {
		return false, err
	}

	unlock, err := m.lock(ctx, userID, meth)
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.repo.GetRecord(ctx, userID, meth)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load security record")
	}

	rec.Disable(m.now())
	if err := m.save(ctx, rec); err != nil {
		return false, err
	}
	slog.Info("Two-factor method disabled", "user_id", userID, "method", meth)
	return true, nil
}

// firstEnabled returns the first enabled method in Methods order.
func (m *Manager) firstEnabled(ctx context.Context, userID string) (Method, error) {
	recs, err := m.repo.ListRecords(ctx, userID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list security records")
	}
	for _, rec := range recs {
		if rec.IsEnabled {
			return rec.Method, nil
		}
	}
	return "", apperrors.Newf(apperrors.ErrCode2FANotSetup, "no two-factor method is enabled")
}

// SendVerificationCode delivers a code for method, or for the user's first
// enabled method when method is empty. A false result means delivery did not
// happen (locked, unbound or transport failure) and nothing was counted.
func (m *Manager) SendVerificationCode(ctx context.Context, user User, method string) (bool, error) {
	if method == "" {
		first, err := m.firstEnabled(ctx, user.ID)
		if err != nil {
			return false, err
		}
		method = string(first)
	}
	return m.deliver(ctx, user, method, false)
}

// Resend is SendVerificationCode guarded by the resend cool-down.
func (m *Manager) Resend(ctx context.Context, user User, method string) (bool, error) {
	return m.deliver(ctx, user, method, true)
}

func (m *Manager) deliver(ctx context.Context, user User, method string, resend bool) (bool, error) {
	meth, p, err := m.availableProvider(method)
	if err != nil {
		return false, err
	}

	unlock, err := m.lock(ctx, user.ID, meth)
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.load(ctx, user.ID, meth)
	if err != nil {
		return false, err
	}

	if resend {
		return p.Resend(ctx, user, rec), nil
	}
	return p.DeliverCode(ctx, user, rec), nil
}

// VerifyUserCode checks code against an enabled method. With no method,
// every enabled method is tried in Methods order until one accepts; each
// attempt counts against its own record only.
func (m *Manager) VerifyUserCode(ctx context.Context, userID, code, method string) (bool, error) {
	if method != "" {
		meth, err := ParseMethod(method)
		if err != nil {
			return false, err
		}
		return m.verify(ctx, userID, meth, code)
	}

	recs, err := m.repo.ListRecords(ctx, userID)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list security records")
	}

	tried := false
	for _, rec := range recs {
		if !rec.IsEnabled {
			continue
		}
		tried = true
		ok, err := m.verify(ctx, userID, rec.Method, code)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if !tried {
		return false, apperrors.Newf(apperrors.ErrCode2FANotSetup, "no two-factor method is enabled")
	}
	return false, nil
}

func (m *Manager) verify(ctx context.Context, userID string, meth Method, code string) (bool, error) {
	_, p, err := m.provider(string(meth))
	if err != nil {
		return false, err
	}

	unlock, err := m.lock(ctx, userID, meth)
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.load(ctx, userID, meth)
	if err != nil {
		return false, err
	}
	if !rec.IsEnabled {
		return false, notSetup(userID, meth)
	}
	if rec.IsLocked(m.now()) {
		return false, nil
	}

	ok := p.VerifyCode(ctx, rec, code)
	if err := m.save(ctx, rec); err != nil {
		return false, err
	}
	if !ok {
		slog.Info("Two-factor verification failed", "user_id", userID, "method", meth, "failed_attempts", rec.FailedAttempts)
	}
	return ok, nil
}

// Status aggregates the user's records.
func (m *Manager) Status(ctx context.Context, userID string) (Status, error) {
	recs, err := m.repo.ListRecords(ctx, userID)
	if err != nil {
		return Status{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list security records")
	}

	status := Status{
		EnabledMethods:   []MethodStatus{},
		AvailableMethods: m.AvailableMethods(),
	}
	for _, rec := range recs {
		if !rec.IsEnabled {
			continue
		}
		status.IsEnabled = true
		status.EnabledMethods = append(status.EnabledMethods, MethodStatus{
			Method:               rec.Method,
			IsSetupComplete:      rec.IsSetupComplete(),
			LastUsedAt:           rec.LastUsedAt,
			BackupCodesRemaining: rec.BackupCodesRemaining(),
		})
	}
	return status, nil
}

// RegenerateBackupCodes replaces the backup codes of an existing record and
// returns the new plaintext batch.
func (m *Manager) RegenerateBackupCodes(ctx context.Context, userID, method string) ([]string, error) {
	meth, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}

	unlock, err := m.lock(ctx, userID, meth)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := m.load(ctx, userID, meth)
	if err != nil {
		return nil, err
	}
	codes, err := rec.RegenerateBackupCodes(m.now())
	if err != nil {
		return nil, err
	}
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	slog.Info("Backup codes regenerated", "user_id", userID, "method", meth)
	return codes, nil
}

// IsLocked reports whether verification for (user, method) is withheld.
// A missing record is never locked.
func (m *Manager) IsLocked(ctx context.Context, userID, method string) (bool, error) {
	meth, err := ParseMethod(method)
	if err != nil {
		return false, err
	}
	rec, err := m.repo.GetRecord(ctx, userID, meth)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load security record")
	}
	return rec.IsLocked(m.now()), nil
}

// ResetLockout clears the failure counter and any lockout.
func (m *Manager) ResetLockout(ctx context.Context, userID, method string) error {
	meth, err := ParseMethod(method)
	if err != nil {
		return err
	}

	unlock, err := m.lock(ctx, userID, meth)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := m.load(ctx, userID, meth)
	if err != nil {
		return err
	}
	rec.ResetLockout(m.now())
	if err := m.save(ctx, rec); err != nil {
		return err
	}
	slog.Info("Two-factor lockout reset", "user_id", userID, "method", meth)
	return nil
}

// HandleBotMessage processes an inbound bot message. A valid linking token
// binds the chat to the token's user and the chat gets a confirmation; any
// other text gets an invalid-token reply and changes nothing.
func (m *Manager) HandleBotMessage(ctx context.Context, chatID, text string) (bool, error) {
	p, ok := m.providers[MethodBotChannel]
	if !ok {
		return false, ErrNotConfigured
	}
	linker, ok := p.(ChannelLinker)
	if !ok {
		return false, ErrNotConfigured
	}
	if chatID == "" {
		return false, apperrors.InvalidInput("chat_id", "must not be empty")
	}

	token, ok := ParseLinkMessage(text)
	if !ok {
		linker.NotifyLinkResult(ctx, chatID, false)
		return false, nil
	}

	userID, ok := linker.LookupLinkToken(ctx, token)
	if !ok {
		slog.Info("Unknown or expired linking token", "chat_id", chatID)
		linker.NotifyLinkResult(ctx, chatID, false)
		return false, nil
	}

	unlock, err := m.lock(ctx, userID, MethodBotChannel)
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.repo.GetRecord(ctx, userID, MethodBotChannel)
	if errors.Is(err, ErrRecordNotFound) {
		linker.NotifyLinkResult(ctx, chatID, false)
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load security record")
	}

	if !linker.ConsumeLinkToken(ctx, token, userID) {
		linker.NotifyLinkResult(ctx, chatID, false)
		return false, nil
	}

	if rec.BindChannel(chatID, m.now()) {
		if err := m.save(ctx, rec); err != nil {
			return false, err
		}
		slog.Info("Bot chat linked", "user_id", userID, "chat_id", chatID)
	}
	linker.NotifyLinkResult(ctx, chatID, true)
	return true, nil
}
