package xact

import (
	"context"
	"fmt"
)

// EventKind identifies a transaction boundary.
type EventKind uint8

const (
	Commit EventKind = iota
	Abort
	Prepare
	SavepointStart
	SavepointCommit
	SavepointAbort
)

func (k EventKind) String() string {
	switch k {
	case Commit:
		return "commit"
	case Abort:
		return "abort"
	case Prepare:
		return "prepare"
	case SavepointStart:
		return "savepoint-start"
	case SavepointCommit:
		return "savepoint-commit"
	case SavepointAbort:
		return "savepoint-abort"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Savepoint identifies a sub-transaction.
type Savepoint struct {
	ID   int
	Name string
}

// Event is one queued transaction boundary. Savepoint is only meaningful for
// the savepoint kinds.
type Event struct {
	Kind      EventKind
	Savepoint Savepoint
}

func (e Event) isSavepoint() bool {
	return e.Kind == SavepointStart || e.Kind == SavepointCommit || e.Kind == SavepointAbort
}

// TransactionListener receives top-level transaction events.
type TransactionListener interface {
	OnCommit(ctx context.Context) error
	OnAbort(ctx context.Context) error
	OnPrepare(ctx context.Context) error
}

// SavepointListener receives sub-transaction events.
type SavepointListener interface {
	OnSavepointStart(ctx context.Context, sp Savepoint) error
	OnSavepointCommit(ctx context.Context, sp Savepoint) error
	OnSavepointAbort(ctx context.Context, sp Savepoint) error
}
