package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailmigrate/internal/database"
	"github.com/customeros/mailmigrate/internal/logger"
)

func openTestCache(t *testing.T, path string) *Repositories {
	t.Helper()

	db, err := database.OpenCacheDatabase(path)
	require.NoError(t, err)
	require.NoError(t, MigrateCacheDB(db))

	log := logger.NewAppLogger(&logger.Config{LogLevel: "fatal", LogFile: ""})
	log.InitLogger()

	repos := InitRepositories(db, log)
	t.Cleanup(func() { _ = repos.TransferCache.Close() })
	return repos
}

func TestTransferCache_MarkAndLookup(t *testing.T) {
	ctx := context.Background()
	repos := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"))
	cache := repos.TransferCache

	ok, err := cache.IsTransferred(ctx, 101, "INBOX")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.MarkTransferred(ctx, 101, 7, "INBOX", 2048))

	ok, err = cache.IsTransferred(ctx, 101, "INBOX")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same UID in a different folder is a different message.
	ok, err = cache.IsTransferred(ctx, 101, "Sent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransferCache_MarkIdempotent(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, filepath.Join(t.TempDir(), "cache.db")).TransferCache

	require.NoError(t, cache.MarkTransferred(ctx, 5, 1, "INBOX", 100))
	require.NoError(t, cache.MarkTransferred(ctx, 5, 2, "INBOX", 100))

	stats, err := cache.Statistics(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
}

func TestTransferCache_TransferredUIDs(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, filepath.Join(t.TempDir(), "cache.db")).TransferCache

	require.NoError(t, cache.MarkTransferred(ctx, 1, 0, "INBOX", 10))
	require.NoError(t, cache.MarkTransferred(ctx, 3, 0, "INBOX", 10))
	require.NoError(t, cache.MarkTransferred(ctx, 9, 0, "Archive", 10))

	set, err := cache.TransferredUIDs(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, map[uint32]struct{}{1: {}, 3: {}}, set)

	set, err = cache.TransferredUIDs(ctx, "Drafts")
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestTransferCache_Statistics(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, filepath.Join(t.TempDir(), "cache.db")).TransferCache

	require.NoError(t, cache.MarkTransferred(ctx, 1, 0, "INBOX", 1024))
	require.NoError(t, cache.MarkTransferred(ctx, 2, 0, "INBOX", 2048))
	require.NoError(t, cache.MarkTransferred(ctx, 1, 0, "Archive", 3072))

	stats, err := cache.Statistics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(6144), stats.TotalSize)
	assert.Equal(t, int64(2), stats.PerFolder["INBOX"])
	assert.Equal(t, int64(1), stats.PerFolder["Archive"])

	stats, err = cache.Statistics(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, int64(3072), stats.TotalSize)
}

func TestTransferCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	cache := openTestCache(t, path).TransferCache
	require.NoError(t, cache.MarkTransferred(ctx, 42, 17, "INBOX", 4096))
	require.NoError(t, cache.Close())

	reopened := openTestCache(t, path).TransferCache
	ok, err := reopened.IsTransferred(ctx, 42, "INBOX")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransferCache_CloseIdempotent(t *testing.T) {
	cache := openTestCache(t, filepath.Join(t.TempDir(), "cache.db")).TransferCache
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
