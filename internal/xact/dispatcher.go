// Package xact queues transaction boundary events and delivers them to
// registered listeners.
package xact

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/eapache/queue"

	"shadowkv/internal/common"
)

// ErrUnknownKind is returned by Fire for an event kind it cannot deliver.
var ErrUnknownKind = errors.New("xact: unknown event kind")

// Dispatcher holds listener registrations and a FIFO of pending events.
// It is safe for concurrent use. Listeners run outside the dispatcher lock
// and may Fire further events; those are delivered by the same Drain.
type Dispatcher struct {
	mu         sync.Mutex
	nextID     int
	nextSP     int
	txs        map[int]TransactionListener
	savepoints map[int]SavepointListener
	pending    *queue.Queue
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		txs:        make(map[int]TransactionListener),
		savepoints: make(map[int]SavepointListener),
		pending:    queue.New(),
	}
}

// AddTransactionListener registers l and returns its ID. Registering the same
// listener again returns the existing ID. A listener whose value cannot be
// compared with == (a slice or map type, say) is never treated as a
// duplicate; keep the returned ID to remove it.
func (d *Dispatcher) AddTransactionListener(l TransactionListener) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, existing := range d.txs {
		if sameListener(existing, l) {
			return id
		}
	}
	d.nextID++
	d.txs[d.nextID] = l
	return d.nextID
}

// AddSavepointListener registers l and returns its ID. Duplicates are
// detected as in AddTransactionListener.
func (d *Dispatcher) AddSavepointListener(l SavepointListener) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, existing := range d.savepoints {
		if sameListener(existing, l) {
			return id
		}
	}
	d.nextID++
	d.savepoints[d.nextID] = l
	return d.nextID
}

// sameListener reports whether a and b are the same registration. Values of
// the same dynamic type are compared with == only when both are comparable.
func sameListener(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// RemoveListener unregisters the listener with the given ID, if any.
func (d *Dispatcher) RemoveListener(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.txs, id)
	delete(d.savepoints, id)
}

// NewSavepoint allocates a savepoint with a fresh ID.
func (d *Dispatcher) NewSavepoint(name string) Savepoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSP++
	return Savepoint{ID: d.nextSP, Name: name}
}

// Fire enqueues ev for the next Drain.
func (d *Dispatcher) Fire(ev Event) error {
	if ev.Kind > SavepointAbort {
		return fmt.Errorf("%w: %s", ErrUnknownKind, ev.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending.Add(ev)
	return nil
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pending.Length()
}

// Drain delivers queued events in FIFO order until the queue is empty.
// Every listener sees every event even if an earlier one failed; failures
// are joined into the returned error. Cancellation is checked between
// events and leaves the remainder queued.
func (d *Dispatcher) Drain(ctx context.Context) error {
	var errs []error

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		req, ok := d.next()
		if !ok {
			return errors.Join(errs...)
		}
		errs = append(errs, d.deliver(ctx, req)...)
	}
}

// delivery is one event paired with the listeners registered when it was
// dequeued.
type delivery struct {
	event      Event
	txs        []registered[TransactionListener]
	savepoints []registered[SavepointListener]
}

type registered[L any] struct {
	id       int
	listener L
}

// next dequeues the next event together with a snapshot of its listeners.
func (d *Dispatcher) next() (delivery, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending.Length() == 0 {
		return delivery{}, false
	}

	ev := d.pending.Remove().(Event)
	req := delivery{event: ev}
	if ev.isSavepoint() {
		req.savepoints = snapshot(d.savepoints)
	} else {
		req.txs = snapshot(d.txs)
	}
	return req, true
}

func snapshot[L any](m map[int]L) []registered[L] {
	out := make([]registered[L], 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		out = append(out, registered[L]{id: id, listener: m[id]})
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, req delivery) []error {
	ev := req.event
	common.Logger().Debug().
		Str("event", ev.Kind.String()).
		Int("listeners", len(req.txs)+len(req.savepoints)).
		Msg("delivering transaction event")

	var errs []error
	fail := func(id int, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s listener %d: %w", ev.Kind, id, err))
		}
	}

	for _, r := range req.txs {
		switch ev.Kind {
		case Commit:
			fail(r.id, r.listener.OnCommit(ctx))
		case Abort:
			fail(r.id, r.listener.OnAbort(ctx))
		case Prepare:
			fail(r.id, r.listener.OnPrepare(ctx))
		}
	}

	for _, r := range req.savepoints {
		switch ev.Kind {
		case SavepointStart:
			fail(r.id, r.listener.OnSavepointStart(ctx, ev.Savepoint))
		case SavepointCommit:
			fail(r.id, r.listener.OnSavepointCommit(ctx, ev.Savepoint))
		case SavepointAbort:
			fail(r.id, r.listener.OnSavepointAbort(ctx, ev.Savepoint))
		}
	}

	return errs
}
