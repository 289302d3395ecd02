package overlay

import (
	"iter"
	"maps"
)

// MapBase is the default Base, a plain Go map.
type MapBase[K comparable, V any] map[K]V

// NewMapBase returns an empty map-backed Base.
func NewMapBase[K comparable, V any]() MapBase[K, V] {
	return make(MapBase[K, V])
}

func (m MapBase[K, V]) Get(key K) (V, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapBase[K, V]) Contains(key K) bool {
	_, ok := m[key]
	return ok
}

func (m MapBase[K, V]) Put(key K, value V) {
	m[key] = value
}

func (m MapBase[K, V]) Delete(key K) {
	delete(m, key)
}

func (m MapBase[K, V]) Len() int {
	return len(m)
}

func (m MapBase[K, V]) Keys() iter.Seq[K] {
	return maps.Keys(m)
}
