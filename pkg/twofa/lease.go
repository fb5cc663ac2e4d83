package twofa

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-mfa/pkg/codestore"
	apperrors "github.com/tendant/simple-mfa/pkg/errors"
)

const (
	DefaultLeaseTTL   = 30 * time.Second
	leasePollInterval = 25 * time.Millisecond
)

var errLeaseWait = errors.New("lease wait exceeded")

// recordLease serializes record updates across processes sharing one code
// store. The holder writes a random token under LeaseKey; release deletes
// the key only while it still holds that token.
type recordLease struct {
	store codestore.Store
	ttl   time.Duration
	wait  time.Duration
}

func newRecordLease(store codestore.Store, ttl time.Duration) *recordLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &recordLease{store: store, ttl: ttl, wait: ttl}
}

func (l *recordLease) acquire(ctx context.Context, userID string, method Method) (func(), error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	token := hex.EncodeToString(buf)
	key := LeaseKey(userID, method)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	ticker := time.NewTicker(leasePollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.store.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to acquire record lease")
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "record lease not acquired")
		case <-timer.C:
			return nil, apperrors.Wrapf(errLeaseWait, apperrors.ErrCodeTimeout, "%s record of %s is busy", method, userID)
		case <-ticker.C:
		}
	}
}

// release runs on a fresh context so a cancelled request still frees the key.
func (l *recordLease) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := l.store.CompareAndDelete(ctx, key, token)
	if err != nil {
		slog.Error("Failed to release record lease", "key", key, "err", err)
		return
	}
	if !ok {
		slog.Warn("Record lease expired before release", "key", key)
	}
}
