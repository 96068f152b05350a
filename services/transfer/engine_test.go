package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/retry"
)

func quietLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "fatal", LogFile: ""})
	l.InitLogger()
	return l
}

func newTestEngine(source, dest *fakeMailbox, cache *fakeCache, maxSize int64) *Engine {
	log := quietLogger()
	return NewEngine(source, dest, cache, log, maxSize, retry.NewExecutor(3, time.Millisecond, log), nil)
}

func TestTransferFolder_MovesEverything(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 1024, "\\Seen")
	source.addMessage(2, 2048)
	source.addMessage(3, 3072, "\\Seen", "\\Answered")

	dest := newFakeMailbox("dst.example.com")
	cache := newFakeCache()
	engine := newTestEngine(source, dest, cache, 0)

	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalMessages)
	assert.Equal(t, 3, result.Transferred)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int64(6144), result.TotalSize)

	require.Len(t, dest.appended, 3)
	first := dest.appended[0]
	assert.Equal(t, "INBOX", first.Folder)
	assert.Equal(t, source.messages[1].Payload, first.Payload)
	assert.Equal(t, source.messages[1].InternalDate, first.Date)
	assert.Equal(t, []string{"\\Seen"}, first.Flags)

	// Every delivery is recorded with its destination UID.
	for _, uid := range []uint32{1, 2, 3} {
		destUID, ok := cache.marked[cacheKey{uid, "INBOX"}]
		assert.True(t, ok, "UID %d not marked", uid)
		assert.NotZero(t, destUID)
	}
}

func TestTransferFolder_ResumesFromCache(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 100)
	source.addMessage(2, 100)
	source.addMessage(3, 100)

	dest := newFakeMailbox("dst.example.com")
	cache := newFakeCache()
	require.NoError(t, cache.MarkTransferred(context.Background(), 2, 50, "INBOX", 100))

	engine := newTestEngine(source, dest, cache, 0)
	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Transferred)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, dest.appended, 2)
	assert.Equal(t, uint32(1), dest.appended[0].UID)
	assert.Equal(t, uint32(3), dest.appended[1].UID)

	// A second run finds nothing left to do.
	result, err = engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Transferred)
	assert.Equal(t, 3, result.Skipped)
	assert.Len(t, dest.appended, 2)
}

func TestTransferFolder_OversizeNeverAppended(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 1024)
	source.addMessage(2, 4096)

	dest := newFakeMailbox("dst.example.com")
	cache := newFakeCache()
	engine := newTestEngine(source, dest, cache, 2048)

	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Transferred)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, dest.appended, 1)
	assert.Equal(t, uint32(1), dest.appended[0].UID)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "UID 2")

	// Oversize messages stay uncached so a raised limit picks them up later.
	_, marked := cache.marked[cacheKey{2, "INBOX"}]
	assert.False(t, marked)
}

func TestTransferFolder_TransientFetchRetried(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 256)
	source.fetchFailures[1] = 2
	source.fetchErr = func(uid uint32) error {
		return er.New(er.KindFetch, "fetch UID 1", "src.example.com")
	}

	dest := newFakeMailbox("dst.example.com")
	engine := newTestEngine(source, dest, newFakeCache(), 0)

	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transferred)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, dest.appended, 1)
}

func TestTransferFolder_AppendFailureIsolated(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 100)
	source.addMessage(2, 100)

	dest := newFakeMailbox("dst.example.com")
	dest.appendErr = er.New(er.KindAppend, "append UID 1", "dst.example.com")
	dest.appendFailures = 3 // exhausts all retries for UID 1, then recovers

	cache := newFakeCache()
	engine := newTestEngine(source, dest, cache, 0)

	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Transferred)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "append UID 1")

	_, marked := cache.marked[cacheKey{1, "INBOX"}]
	assert.False(t, marked)
	_, marked = cache.marked[cacheKey{2, "INBOX"}]
	assert.True(t, marked)
}

func TestTransferFolder_CacheWriteFailureDoesNotRetransfer(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 100)

	dest := newFakeMailbox("dst.example.com")
	cache := newFakeCache()
	cache.markErr = errors.New("disk full")

	engine := newTestEngine(source, dest, cache, 0)
	result, err := engine.TransferFolder(context.Background(), "INBOX", "INBOX")
	require.NoError(t, err)

	// The append happened, so the message counts as transferred even though
	// the mark failed; the failure is surfaced in the error list.
	assert.Equal(t, 1, result.Transferred)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, dest.appended, 1)
	require.Len(t, result.Errors, 1)
}

func TestTransferFolder_EmptyFolder(t *testing.T) {
	engine := newTestEngine(newFakeMailbox("src"), newFakeMailbox("dst"), newFakeCache(), 0)

	result, err := engine.TransferFolder(context.Background(), "Drafts", "Drafts")
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalMessages)
	assert.Equal(t, 0, result.Transferred)
}

func TestTransferFolder_Interrupted(t *testing.T) {
	source := newFakeMailbox("src.example.com")
	source.addMessage(1, 100)
	source.addMessage(2, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The signal arrives while UID 2 is being fetched.
	source.fetchFailures[2] = 1
	source.fetchErr = func(uid uint32) error {
		cancel()
		return er.New(er.KindFetch, "fetch UID 2", "src.example.com")
	}

	dest := newFakeMailbox("dst.example.com")
	engine := newTestEngine(source, dest, newFakeCache(), 0)
	result, err := engine.TransferFolder(ctx, "INBOX", "INBOX")

	require.Error(t, err)
	assert.True(t, er.IsInterrupted(err))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Transferred)
	assert.Len(t, dest.appended, 1)
}
