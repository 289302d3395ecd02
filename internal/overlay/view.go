package overlay

import "iter"

// Keys returns the apparently present keys. The sequence is lazy and
// restartable: every range over it walks the delta first, then the base,
// without building a combined set.
//
// A key present in both the delta and the base is yielded once, from the
// delta phase. Structurally modifying the overlay (adding or dropping a slot)
// during iteration panics with ErrConcurrentModification in either phase. The
// one exception is putting a new value for the key just yielded, which never
// changes the set of visible keys. Modifying the base during iteration is
// undefined.
func (o *Overlay[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		mods := o.mods
		for k, s := range o.delta {
			if s.tombstone() {
				continue
			}
			if !yield(k) {
				return
			}
			if o.mods != mods {
				panic(ErrConcurrentModification)
			}
		}

		for k := range o.base.Keys() {
			// Tombstoned keys are hidden; overridden ones were already yielded.
			if _, shadowed := o.delta[k]; shadowed {
				continue
			}
			if !yield(k) {
				return
			}
			if o.mods != mods {
				// Overriding k adds exactly one Put slot, for a key already yielded.
				if s, ok := o.delta[k]; ok && !s.tombstone() && o.mods == mods+1 {
					mods = o.mods
					continue
				}
				panic(ErrConcurrentModification)
			}
		}
	}
}

// Values returns the apparent values in Keys order. Each value is looked up
// when its key is reached.
func (o *Overlay[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for k := range o.Keys() {
			v, _ := o.Get(k)
			if !yield(v) {
				return
			}
		}
	}
}

// All returns the apparent key/value pairs in Keys order.
func (o *Overlay[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for k := range o.Keys() {
			v, _ := o.Get(k)
			if !yield(k, v) {
				return
			}
		}
	}
}

// Entries returns live entries in Keys order. See Entry.
func (o *Overlay[K, V]) Entries() iter.Seq[*Entry[K, V]] {
	return func(yield func(*Entry[K, V]) bool) {
		for k := range o.Keys() {
			if !yield(&Entry[K, V]{overlay: o, key: k}) {
				return
			}
		}
	}
}

// Entry is a key bound to its overlay. Value reads through the overlay on
// every call and SetValue writes through Put, so an entry always reflects
// the overlay's current state.
type Entry[K comparable, V any] struct {
	overlay *Overlay[K, V]
	key     K
}

func (e *Entry[K, V]) Key() K {
	return e.key
}

func (e *Entry[K, V]) Value() V {
	v, _ := e.overlay.Get(e.key)
	return v
}

// SetValue puts value for the entry's key and returns the previous value.
func (e *Entry[K, V]) SetValue(value V) V {
	prev, _ := e.overlay.Put(e.key, value)
	return prev
}

// KeyIterator is a pull-style cursor over Keys. Callers that stop before
// exhaustion must call Stop.
type KeyIterator[K comparable] struct {
	next func() (K, bool)
	stop func()
}

// Iterator returns a new cursor over the apparently present keys.
func (o *Overlay[K, V]) Iterator() *KeyIterator[K] {
	next, stop := iter.Pull(o.Keys())
	return &KeyIterator[K]{next: next, stop: stop}
}

// Next returns the next key. The second result is false once the cursor is
// exhausted or stopped.
func (it *KeyIterator[K]) Next() (K, bool) {
	return it.next()
}

// Stop releases the cursor. It is safe to call more than once.
func (it *KeyIterator[K]) Stop() {
	it.stop()
}
