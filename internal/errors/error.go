package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a transfer error into the closed set of failure categories
// the tool recognizes. The kind decides whether an operation is retried,
// skipped, or aborts the run.
type Kind string

const (
	KindConfigInvalid Kind = "CONFIG_INVALID"
	KindConnect       Kind = "CONNECT"
	KindAuth          Kind = "AUTH"
	KindFolderOp      Kind = "FOLDER_OP"
	KindFetch         Kind = "FETCH"
	KindAppend        Kind = "APPEND"
	KindCache         Kind = "CACHE"
	KindSizeLimit     Kind = "SIZE_LIMIT"
	KindProtocol      Kind = "PROTOCOL"
	KindInterrupted   Kind = "INTERRUPTED"
)

var (
	ErrNotConnected = errors.New("not connected to IMAP server")
	ErrNoFolder     = errors.New("no folder selected")
	ErrInterrupted  = &TransferError{Kind: KindInterrupted, Op: "transfer interrupted"}
)

// TransferError carries the error kind plus the operation and server host it
// occurred on, so every surfaced message reads like
// "fetch UID 17482 on imap.example.com: connection reset".
type TransferError struct {
	Kind Kind
	Op   string
	Host string
	Err  error
}

func (e *TransferError) Error() string {
	switch {
	case e.Host != "" && e.Err != nil:
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Host, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Host != "":
		return fmt.Sprintf("%s on %s", e.Op, e.Host)
	default:
		return e.Op
	}
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInterrupted) match any interrupted error
// regardless of op text.
func (e *TransferError) Is(target error) bool {
	t, ok := target.(*TransferError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Wrap builds a kinded error around cause. Returns nil when cause is nil so
// call sites can wrap unconditionally.
func Wrap(kind Kind, op, host string, cause error) error {
	if cause == nil {
		return nil
	}
	return &TransferError{Kind: kind, Op: op, Host: host, Err: cause}
}

// New builds a kinded error with no underlying cause.
func New(kind Kind, op, host string) error {
	return &TransferError{Kind: kind, Op: op, Host: host}
}

// KindOf extracts the kind from anywhere in the error chain. Unclassified
// errors report KindProtocol, the retryable catch-all.
func KindOf(err error) Kind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindProtocol
}

// IsRetryable reports whether the operation that produced err may be retried.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConnect, KindFetch, KindAppend, KindProtocol:
		return true
	}
	return false
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindConfigInvalid, KindInterrupted:
		return true
	}
	return false
}

// IsInterrupted reports whether err stems from a shutdown signal.
func IsInterrupted(err error) bool {
	return err != nil && KindOf(err) == KindInterrupted
}
