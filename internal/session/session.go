// Package session implements the per-session attribute store.
//
// Attributes written during a transaction are buffered in an overlay over the
// session's committed attributes. The session listens for transaction events:
// a commit flushes the buffer, while an abort or a savepoint rollback discards it.
//
// Every exported method takes the session lock, which is the only
// synchronisation around the overlay. Callers sharing the committed base
// between sessions must also serialise commits across those sessions.
package session

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shadowkv/internal/common"
	"shadowkv/internal/overlay"
	"shadowkv/internal/xact"
)

// Session holds one session's attributes.
type Session struct {
	mu    sync.Mutex
	id    string
	attrs *overlay.Overlay[string, any]
	log   zerolog.Logger
}

// PendingChange is one uncommitted attribute write.
type PendingChange struct {
	Name  string
	Type  common.EntryType
	Value any
}

func New(optFns ...Option) *Session {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.Base == nil {
		opts.Base = overlay.NewMapBase[string, any]()
	}
	log := *common.Logger()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Session{
		id:    opts.ID,
		attrs: overlay.New(opts.Base),
		log:   log.With().Str("session", opts.ID).Logger(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// GetAttribute returns the attribute's value as seen by the current
// transaction.
func (s *Session) GetAttribute(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attrs.Get(name)
}

// SetAttribute sets name for the current transaction. A nil value is stored
// as a present attribute, not a removal.
func (s *Session) SetAttribute(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs.Put(name, value)
}

func (s *Session) RemoveAttribute(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs.Remove(name)
}

// AttributeNames returns the visible attribute names in sorted order.
func (s *Session) AttributeNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(s.attrs.Keys())
}

// Attributes returns a copy of the visible attributes.
func (s *Session) Attributes() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Collect(s.attrs.All())
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attrs.Len()
}

// PendingChanges returns the uncommitted writes sorted by name.
func (s *Session) PendingChanges() []PendingChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PendingChange, 0, s.attrs.Pending())
	for name, c := range s.attrs.Changes() {
		out = append(out, PendingChange{Name: name, Type: c.Type, Value: c.Value})
	}
	slices.SortFunc(out, func(a, b PendingChange) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Commit flushes pending writes into the committed attributes.
func (s *Session) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitLocked()
}

// Abort discards pending writes.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortLocked()
}

func (s *Session) commitLocked() {
	start := time.Now()
	n := s.attrs.Pending()
	s.attrs.Commit()
	s.log.Debug().
		Int("changes", n).
		Dur("elapsed", time.Since(start)).
		Msg("committed attributes")
}

func (s *Session) abortLocked() {
	n := s.attrs.Pending()
	s.attrs.Abort()
	s.log.Debug().Int("changes", n).Msg("discarded attributes")
}

// Attach registers s for transaction and savepoint events on d. The returned
// func unregisters it.
func (s *Session) Attach(d *xact.Dispatcher) (detach func()) {
	txID := d.AddTransactionListener(s)
	spID := d.AddSavepointListener(s)
	return func() {
		d.RemoveListener(txID)
		d.RemoveListener(spID)
	}
}

func (s *Session) OnCommit(context.Context) error {
	s.Commit()
	return nil
}

func (s *Session) OnAbort(context.Context) error {
	s.Abort()
	return nil
}

func (s *Session) OnPrepare(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().Int("changes", s.attrs.Pending()).Msg("prepared")
	return nil
}

func (s *Session) OnSavepointStart(_ context.Context, sp xact.Savepoint) error {
	s.log.Debug().Int("savepoint", sp.ID).Str("name", sp.Name).Msg("savepoint started")
	return nil
}

func (s *Session) OnSavepointCommit(_ context.Context, sp xact.Savepoint) error {
	s.log.Debug().Int("savepoint", sp.ID).Str("name", sp.Name).Msg("savepoint released")
	return nil
}

// OnSavepointAbort discards every pending write, not only those made since
// the savepoint: the overlay keeps a single delta per transaction.
func (s *Session) OnSavepointAbort(_ context.Context, sp xact.Savepoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().Int("savepoint", sp.ID).Str("name", sp.Name).Msg("savepoint rolled back")
	s.abortLocked()
	return nil
}
