package twofa

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(t *testing.T, userID string, method Method) *SecurityRecord {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewSecurityRecord(userID, method, now)
	_, err := rec.RegenerateBackupCodes(now)
	require.NoError(t, err)
	switch method {
	case MethodAuthenticator:
		rec.Secret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	case MethodBotChannel:
		rec.ChannelBinding = "12345"
	}
	return rec
}

// testRecordRepository runs the behavior every RecordRepository must share.
func testRecordRepository(t *testing.T, newRepo func(t *testing.T) RecordRepository) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetRecord(ctx, "nobody", MethodMailbox)
		assert.ErrorIs(t, err, ErrRecordNotFound)

		recs, err := repo.ListRecords(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		repo := newRepo(t)
		rec := sampleRecord(t, "u1", MethodAuthenticator)
		rec.RecordFailure(rec.CreatedAt)

		require.NoError(t, repo.SaveRecord(ctx, rec))

		got, err := repo.GetRecord(ctx, "u1", MethodAuthenticator)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Secret, got.Secret)
		assert.Equal(t, 1, got.FailedAttempts)
		assert.Equal(t, rec.BackupCodes, got.BackupCodes)
		assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("OneRecordPerUserAndMethod", func(t *testing.T) {
		repo := newRepo(t)
		rec := sampleRecord(t, "u1", MethodMailbox)
		require.NoError(t, repo.SaveRecord(ctx, rec))

		now := rec.CreatedAt.Add(time.Minute)
		rec.Enable(now)
		for i := 0; i < MaxFailedAttempts; i++ {
			rec.RecordFailure(now)
		}
		require.NoError(t, repo.SaveRecord(ctx, rec))

		recs, err := repo.ListRecords(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.True(t, recs[0].IsEnabled)
		assert.Equal(t, MaxFailedAttempts, recs[0].FailedAttempts)
		require.NotNil(t, recs[0].LockedUntil)
		assert.WithinDuration(t, now.Add(LockoutDuration), *recs[0].LockedUntil, time.Millisecond)
	})

	t.Run("ListOrderedByMethod", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.SaveRecord(ctx, sampleRecord(t, "u1", MethodBotChannel)))
		require.NoError(t, repo.SaveRecord(ctx, sampleRecord(t, "u1", MethodAuthenticator)))
		require.NoError(t, repo.SaveRecord(ctx, sampleRecord(t, "u1", MethodMailbox)))
		require.NoError(t, repo.SaveRecord(ctx, sampleRecord(t, "u2", MethodMailbox)))

		recs, err := repo.ListRecords(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, MethodAuthenticator, recs[0].Method)
		assert.Equal(t, MethodMailbox, recs[1].Method)
		assert.Equal(t, MethodBotChannel, recs[2].Method)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		repo := newRepo(t)
		rec := sampleRecord(t, "u1", MethodMailbox)
		require.NoError(t, repo.SaveRecord(ctx, rec))

		rec.FailedAttempts = 2
		got, err := repo.GetRecord(ctx, "u1", MethodMailbox)
		require.NoError(t, err)
		assert.Equal(t, 0, got.FailedAttempts, "unsaved changes must not leak into the store")

		got.IsEnabled = true
		again, err := repo.GetRecord(ctx, "u1", MethodMailbox)
		require.NoError(t, err)
		assert.False(t, again.IsEnabled)
	})
}

func TestInMemRecordRepository(t *testing.T) {
	testRecordRepository(t, func(t *testing.T) RecordRepository {
		return NewInMemRecordRepository()
	})
}

func TestFileRecordRepository(t *testing.T) {
	testRecordRepository(t, func(t *testing.T) RecordRepository {
		repo, err := NewFileRecordRepository(t.TempDir())
		require.NoError(t, err)
		return repo
	})
}

func TestFileRecordRepository_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")

	repo, err := NewFileRecordRepository(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	rec := sampleRecord(t, "u1", MethodBotChannel)
	require.NoError(t, repo.SaveRecord(ctx, rec))

	info, err := os.Stat(filepath.Join(dir, recordsFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewFileRecordRepository(dir)
	require.NoError(t, err)
	got, err := reopened.GetRecord(ctx, "u1", MethodBotChannel)
	require.NoError(t, err)
	assert.Equal(t, "12345", got.ChannelBinding)
	assert.Len(t, got.BackupCodes, BackupCodeCount)
}

func TestFileRecordRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, recordsFileName), []byte("{not json"), 0600))

	_, err := NewFileRecordRepository(dir)
	assert.Error(t, err)
}

func TestNewRecordRepository(t *testing.T) {
	repo, err := NewRecordRepository("memory", RepositoryConfig{})
	require.NoError(t, err)
	assert.IsType(t, &InMemRecordRepository{}, repo)

	repo, err = NewRecordRepository("file", RepositoryConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileRecordRepository{}, repo)

	_, err = NewRecordRepository("file", RepositoryConfig{})
	assert.Error(t, err)
	_, err = NewRecordRepository("postgres", RepositoryConfig{})
	assert.Error(t, err)
	_, err = NewRecordRepository("mongo", RepositoryConfig{})
	assert.Error(t, err)
}
