package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteOperationFailed is the single failure kind of remote calls.
	ErrRemoteOperationFailed = errors.New("remote operation failed")

	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionMismatch    = errors.New("session belongs to another user")
	ErrUnknownTransaction = errors.New("transaction not in ledger")
	// ErrSessionChanged means the session changed while the remote call was in flight
	// and its result was discarded.
	ErrSessionChanged = errors.New("session changed during operation")
)

// Remote operations
const (
	OpLoad   = "load"
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// RemoteError wraps a Remote Store failure with the ledger operation that hit it.
// errors.Is(err, ErrRemoteOperationFailed) is true for every RemoteError.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s transaction: %s: %v", e.Op, ErrRemoteOperationFailed, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteOperationFailed }
