package overlay

import (
	"iter"

	"shadowkv/internal/common"
)

// Base is the backing map an Overlay shadows. The overlay borrows it: it is
// never copied, replaced, or released, and must outlive the overlay.
//
// Key order is unspecified.
type Base[K comparable, V any] interface {
	Get(key K) (V, bool)
	Contains(key K) bool
	Put(key K, value V)
	// Delete does not panic if the key is missing.
	Delete(key K)
	Len() int
	Keys() iter.Seq[K]
}

// Change is one pending overlay slot as reported by Overlay.Changes.
// Value is the zero value for EntryTypeDelete.
type Change[V any] struct {
	Type  common.EntryType
	Value V
}
