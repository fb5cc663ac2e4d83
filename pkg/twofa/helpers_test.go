package twofa

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-mfa/pkg/codestore"
	"github.com/tendant/simple-mfa/pkg/notification"
	"github.com/tendant/simple-mfa/pkg/telegram"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock         *testClock
	store         *codestore.InMemStore
	repo          *InMemRecordRepository
	email         *notification.MockNotifier
	bot           *notification.MockNotifier
	notices       *notification.NotificationManager
	authenticator *AuthenticatorProvider
	mailbox       *MailboxProvider
	botChannel    *BotChannelProvider
	manager       *Manager
}

func newFixture(t *testing.T, opts ...ProviderOption) *fixture {
	t.Helper()

	f := &fixture{
		clock: newTestClock(),
		repo:  NewInMemRecordRepository(),
		email: &notification.MockNotifier{},
		bot:   &notification.MockNotifier{},
	}
	f.store = codestore.NewInMemStoreWithClock(f.clock.Now)

	notices, err := notification.NewNotificationManagerWithOptions(notification.WithDefaultTemplates())
	require.NoError(t, err)
	notices.RegisterNotifier(notification.EmailSystem, f.email)
	notices.RegisterNotifier(notification.TelegramSystem, f.bot)
	f.notices = notices

	bot := telegram.NewClient(telegram.Config{BotToken: "123:test", BotUsername: "mfa_test_bot"})

	opts = append([]ProviderOption{WithProviderClock(f.clock.Now)}, opts...)
	f.authenticator = NewAuthenticatorProvider("simple-mfa", opts...)
	f.mailbox = NewMailboxProvider(f.store, notices, opts...)
	f.botChannel = NewBotChannelProvider(f.store, notices, bot, opts...)

	f.manager, err = NewManager(f.repo, []Provider{f.authenticator, f.mailbox, f.botChannel}, WithClock(f.clock.Now))
	require.NoError(t, err)
	return f
}

func (f *fixture) record(t *testing.T, userID string, method Method) *SecurityRecord {
	t.Helper()
	rec, err := f.repo.GetRecord(context.Background(), userID, method)
	require.NoError(t, err)
	return rec
}

// lastCode returns the code carried by the most recent notification.
func lastCode(t *testing.T, n *notification.MockNotifier) string {
	t.Helper()
	sent := n.Sent()
	require.NotEmpty(t, sent, "no notification was sent")
	code := sent[len(sent)-1].Data["TwofaPasscode"]
	require.Len(t, code, CodeDigits)
	return code
}

var totpOpts = totp.ValidateOpts{Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

// newSecret generates a fresh authenticator secret.
func newSecret(t *testing.T) string {
	t.Helper()
	key, err := GenerateTOTPKey("simple-mfa", "alice@example.com")
	require.NoError(t, err)
	return key.Secret()
}

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totpOpts)
	require.NoError(t, err)
	return code
}

// wrongTOTP returns a six digit code that matches no step inside the
// default window around at.
func wrongTOTP(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	valid := map[string]bool{}
	for step := -DefaultWindowSteps; step <= DefaultWindowSteps; step++ {
		valid[totpCode(t, secret, at.Add(time.Duration(step)*30*time.Second))] = true
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%06d", i)
		if !valid[candidate] {
			return candidate
		}
	}
}

// blockingNotifier never finishes before the context does.
type blockingNotifier struct{}

func (blockingNotifier) Send(ctx context.Context, noticeType notification.NoticeType, data notification.NotificationData, tmpl notification.NoticeTemplate) error {
	<-ctx.Done()
	return ctx.Err()
}
