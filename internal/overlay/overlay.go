// Package overlay implements a transactional write buffer over a shared
// backing map.
//
// An Overlay records puts, removes and clears as a delta relative to its Base.
// Reads observe the delta first and fall through to the base, so pending
// mutations are fully visible without copying the base. Commit flushes the
// delta into the base; Abort discards it. Either way the overlay is empty and
// transparent again afterwards and can be reused.
//
// An Overlay is not safe for concurrent use. Callers that share it, or share
// its base between overlays, must serialise every call themselves; Commit is
// the only operation that writes to the base.
package overlay

import (
	"errors"
	"iter"

	"shadowkv/internal/common"
)

// ErrConcurrentModification is the panic value raised when the overlay's
// delta is structurally modified while one of its views is being iterated.
var ErrConcurrentModification = errors.New("overlay: concurrent modification during iteration")

// slot is one delta entry: either a present value or a tombstone. A key with
// no slot defers to the base.
type slot[V any] struct {
	typ   common.EntryType
	value V
}

func (s slot[V]) tombstone() bool {
	return s.typ == common.EntryTypeDelete
}

// Overlay is a transactional view over a Base.
//
// Tombstones are only ever recorded for keys the base contains (or contained
// at Clear time); removing a key the base lacks deletes its slot outright.
type Overlay[K comparable, V any] struct {
	base  Base[K, V]
	delta map[K]slot[V]
	// mods counts structural changes to delta (slots added or dropped).
	mods uint64
}

// New returns an empty overlay bound to base. It panics if base is nil.
func New[K comparable, V any](base Base[K, V]) *Overlay[K, V] {
	if base == nil {
		panic("overlay: nil base")
	}
	return &Overlay[K, V]{
		base:  base,
		delta: make(map[K]slot[V]),
	}
}

// Base returns the backing map the overlay is bound to.
func (o *Overlay[K, V]) Base() Base[K, V] {
	return o.base
}

// Get returns the apparent value for key. The second result reports whether
// the key is present; a present zero value is distinct from absence.
func (o *Overlay[K, V]) Get(key K) (V, bool) {
	if s, ok := o.delta[key]; ok {
		if s.tombstone() {
			var zero V
			return zero, false
		}
		return s.value, true
	}
	return o.base.Get(key)
}

// Contains reports whether key is apparently present.
func (o *Overlay[K, V]) Contains(key K) bool {
	if s, ok := o.delta[key]; ok {
		return !s.tombstone()
	}
	return o.base.Contains(key)
}

// ContainsValueFunc reports whether any apparent value satisfies match.
// It walks the whole merged view, so it costs O(Len()).
func (o *Overlay[K, V]) ContainsValueFunc(match func(V) bool) bool {
	for v := range o.Values() {
		if match(v) {
			return true
		}
	}
	return false
}

// ContainsValue reports whether value is among the apparent values of o,
// compared with ==. It costs O(o.Len()).
func ContainsValue[K comparable, V comparable](o *Overlay[K, V], value V) bool {
	return o.ContainsValueFunc(func(v V) bool { return v == value })
}

// Put records value for key and returns the previous apparent value.
func (o *Overlay[K, V]) Put(key K, value V) (V, bool) {
	prev, had := o.Get(key)
	if _, ok := o.delta[key]; !ok {
		o.mods++
	}
	o.delta[key] = slot[V]{typ: common.EntryTypePut, value: value}
	return prev, had
}

// PutAll puts every pair from pairs in order.
func (o *Overlay[K, V]) PutAll(pairs iter.Seq2[K, V]) {
	for k, v := range pairs {
		o.Put(k, v)
	}
}

// Remove hides key and returns the previous apparent value.
//
// Keys the base contains are tombstoned. Keys the base lacks only ever lived
// in the delta, so their slot is dropped and nothing is left behind.
func (o *Overlay[K, V]) Remove(key K) (V, bool) {
	var zero V

	s, inDelta := o.delta[key]
	if inDelta && s.tombstone() {
		return zero, false
	}

	if !o.base.Contains(key) {
		if !inDelta {
			return zero, false
		}
		delete(o.delta, key)
		o.mods++
		return s.value, true
	}

	prev := s.value
	if !inDelta {
		prev, _ = o.base.Get(key)
		o.mods++
	}
	o.delta[key] = slot[V]{typ: common.EntryTypeDelete}
	return prev, true
}

// Clear makes the overlay apparently empty by tombstoning every base key.
// The base itself is untouched until Commit.
func (o *Overlay[K, V]) Clear() {
	clear(o.delta)
	for k := range o.base.Keys() {
		o.delta[k] = slot[V]{typ: common.EntryTypeDelete}
	}
	o.mods++
}

// Len returns the number of apparently present keys without materialising
// the merged view. It costs O(Pending()).
func (o *Overlay[K, V]) Len() int {
	n := o.base.Len()
	for k, s := range o.delta {
		switch {
		case s.tombstone():
			n--
		case !o.base.Contains(k):
			n++
		}
	}
	return n
}

// IsEmpty reports whether Len() == 0.
func (o *Overlay[K, V]) IsEmpty() bool {
	return o.Len() == 0
}

// Pending returns the number of slots in the delta, tombstones included.
func (o *Overlay[K, V]) Pending() int {
	return len(o.delta)
}

// Dirty reports whether the overlay holds any pending change.
func (o *Overlay[K, V]) Dirty() bool {
	return len(o.delta) > 0
}

// Changes yields the pending delta. Order is unspecified.
func (o *Overlay[K, V]) Changes() iter.Seq2[K, Change[V]] {
	return func(yield func(K, Change[V]) bool) {
		for k, s := range o.delta {
			if !yield(k, Change[V]{Type: s.typ, Value: s.value}) {
				return
			}
		}
	}
}

// Commit applies the delta to the base and empties the overlay. It is the
// only operation that writes to the base.
func (o *Overlay[K, V]) Commit() {
	for k, s := range o.delta {
		if s.tombstone() {
			o.base.Delete(k)
		} else {
			o.base.Put(k, s.value)
		}
	}
	o.reset()
}

// Abort discards the delta. The base is never touched.
func (o *Overlay[K, V]) Abort() {
	o.reset()
}

func (o *Overlay[K, V]) reset() {
	if len(o.delta) == 0 {
		return
	}
	clear(o.delta)
	o.mods++
}
