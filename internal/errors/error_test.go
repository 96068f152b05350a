package errors

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferError_Message(t *testing.T) {
	err := Wrap(KindFetch, "fetch UID 17482", "imap.example.com", fmt.Errorf("connection reset"))
	assert.Equal(t, "fetch UID 17482 on imap.example.com: connection reset", err.Error())

	err = Wrap(KindCache, "mark UID 3", "", fmt.Errorf("disk full"))
	assert.Equal(t, "mark UID 3: disk full", err.Error())
}

func TestWrap_NilCause(t *testing.T) {
	assert.NoError(t, Wrap(KindFetch, "fetch", "host", nil))
}

func TestKindOf(t *testing.T) {
	err := Wrap(KindAuth, "login", "imap.example.com", fmt.Errorf("bad credentials"))
	assert.Equal(t, KindAuth, KindOf(err))

	// Kind survives further wrapping.
	wrapped := pkgerrors.Wrap(err, "connect source")
	assert.Equal(t, KindAuth, KindOf(wrapped))

	// Unclassified errors fall into the retryable catch-all.
	assert.Equal(t, KindProtocol, KindOf(fmt.Errorf("plain")))
}

func TestClassification(t *testing.T) {
	for _, kind := range []Kind{KindConnect, KindFetch, KindAppend, KindProtocol} {
		assert.True(t, IsRetryable(New(kind, "op", "")), string(kind))
		assert.False(t, IsFatal(New(kind, "op", "")), string(kind))
	}
	for _, kind := range []Kind{KindAuth, KindConfigInvalid, KindInterrupted} {
		assert.True(t, IsFatal(New(kind, "op", "")), string(kind))
		assert.False(t, IsRetryable(New(kind, "op", "")), string(kind))
	}
	assert.False(t, IsRetryable(New(KindSizeLimit, "op", "")))
	assert.False(t, IsFatal(New(KindSizeLimit, "op", "")))
}

func TestIsInterrupted(t *testing.T) {
	err := Wrap(KindInterrupted, "transfer interrupted", "", fmt.Errorf("signal"))
	require.True(t, IsInterrupted(err))
	assert.True(t, pkgerrors.Is(err, ErrInterrupted))
	assert.False(t, IsInterrupted(New(KindFetch, "fetch", "")))
	assert.False(t, IsInterrupted(nil))
}
