package overlay_test

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"shadowkv/internal/common"
	"shadowkv/internal/overlay"
)

var sortStrings = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func TestKeysMergesDeltaAndBase(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2, "c": 3})

	ov.Remove("a")
	ov.Put("d", 4)

	common.RequireNoDiff(t, []string{"b", "c", "d"}, slices.Collect(ov.Keys()), sortStrings)
}

func TestKeysYieldsOverriddenKeyOnce(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2})

	ov.Put("a", 100)

	keys := slices.Collect(ov.Keys())
	common.RequireNoDiff(t, []string{"a", "b"}, keys, sortStrings)
	require.Len(t, keys, ov.Len())

	values := slices.Collect(ov.Values())
	common.RequireNoDiff(t, []int{2, 100}, values, cmpopts.SortSlices(func(a, b int) bool { return a < b }))
}

func TestKeysIsRestartable(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1})
	ov.Put("b", 2)

	keys := ov.Keys()
	first := slices.Collect(keys)
	second := slices.Collect(keys)
	common.RequireNoDiff(t, first, second, sortStrings)

	// A view taken earlier reflects later mutations.
	ov.Put("c", 3)
	common.RequireNoDiff(t, []string{"a", "b", "c"}, slices.Collect(keys), sortStrings)
}

func TestKeysAfterClearIsEmpty(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2})

	ov.Clear()
	require.Empty(t, slices.Collect(ov.Keys()))

	ov.Put("a", 5)
	common.RequireNoDiff(t, map[string]int{"a": 5}, maps.Collect(ov.All()))
}

func TestKeysEarlyBreak(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2, "c": 3})
	ov.Put("d", 4)

	count := 0
	for range ov.Keys() {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}

func TestEntriesWriteThrough(t *testing.T) {
	ov, base := newOverlay(t, map[string]int{"a": 1, "b": 2})

	for e := range ov.Entries() {
		prev := e.SetValue(e.Value() * 10)
		require.Equal(t, prev*10, e.Value())
	}

	common.RequireNoDiff(t, map[string]int{"a": 10, "b": 20}, maps.Collect(ov.All()))
	common.RequireNoDiff(t, overlay.MapBase[string, int]{"a": 1, "b": 2}, base)
}

func TestEntryValueIsLive(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1})

	var entry *overlay.Entry[string, int]
	for e := range ov.Entries() {
		entry = e
	}
	require.NotNil(t, entry)
	require.Equal(t, "a", entry.Key())

	ov.Put("a", 42)
	require.Equal(t, 42, entry.Value())
}

func TestIteratorPull(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1})
	ov.Put("b", 2)

	it := ov.Iterator()
	defer it.Stop()

	var keys []string
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, k)
	}
	common.RequireNoDiff(t, []string{"a", "b"}, keys, sortStrings)

	_, ok := it.Next()
	require.False(t, ok)
}

func TestIteratorStopEarly(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2})

	it := ov.Iterator()
	_, ok := it.Next()
	require.True(t, ok)
	it.Stop()
	it.Stop()

	_, ok = it.Next()
	require.False(t, ok)
}

func TestStructuralModificationDuringIterationPanics(t *testing.T) {
	ov, _ := newOverlay(t, nil)
	ov.Put("a", 1)
	ov.Put("b", 2)

	require.PanicsWithValue(t, overlay.ErrConcurrentModification, func() {
		for k := range ov.Keys() {
			ov.Remove(k)
		}
	})
}

func TestStructuralModificationDuringBasePhasePanics(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ov *overlay.Overlay[string, int], k string)
	}{
		{"put net-new key", func(ov *overlay.Overlay[string, int], _ string) { ov.Put("new", 0) }},
		{"remove current key", func(ov *overlay.Overlay[string, int], k string) { ov.Remove(k) }},
		{"override other base key", func(ov *overlay.Overlay[string, int], k string) {
			other := "a"
			if k == "a" {
				other = "b"
			}
			ov.Put(other, 9)
		}},
		{"clear", func(ov *overlay.Overlay[string, int], _ string) { ov.Clear() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2})

			require.PanicsWithValue(t, overlay.ErrConcurrentModification, func() {
				for k := range ov.Keys() {
					tt.mutate(ov, k)
				}
			})
		})
	}
}

func TestOverrideCurrentBaseKeyDuringIteration(t *testing.T) {
	ov, _ := newOverlay(t, map[string]int{"a": 1, "b": 2, "c": 3})

	var seen []string
	require.NotPanics(t, func() {
		for k, v := range ov.All() {
			seen = append(seen, k)
			ov.Put(k, v*10)
		}
	})
	require.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	common.RequireNoDiff(t, map[string]int{"a": 10, "b": 20, "c": 30}, maps.Collect(ov.All()))
}

func TestValueUpdateDuringIterationIsAllowed(t *testing.T) {
	ov, _ := newOverlay(t, nil)
	ov.Put("a", 1)
	ov.Put("b", 2)

	require.NotPanics(t, func() {
		for k, v := range ov.All() {
			ov.Put(k, v+1)
		}
	})
	common.RequireNoDiff(t, map[string]int{"a": 2, "b": 3}, maps.Collect(ov.All()))
}

// TestMatchesModel drives random operations against the overlay and a plain
// map model of the apparent state, then checks commit and abort against the
// model and the pre-transaction base.
func TestMatchesModel(t *testing.T) {
	const (
		rounds  = 200
		opsEach = 40
		keys    = 12
	)

	rng := rand.New(rand.NewSource(1))
	key := func() string { return fmt.Sprintf("k%02d", rng.Intn(keys)) }

	base := overlay.NewMapBase[string, int]()
	ov := overlay.New[string, int](base)

	for round := range rounds {
		before := maps.Clone(map[string]int(base))
		model := maps.Clone(before)

		for range opsEach {
			switch op := rng.Intn(10); {
			case op < 5:
				k, v := key(), rng.Intn(100)
				wantPrev, wantOK := model[k]
				prev, ok := ov.Put(k, v)
				require.Equal(t, wantOK, ok)
				require.Equal(t, wantPrev, prev)
				model[k] = v
			case op < 9:
				k := key()
				wantPrev, wantOK := model[k]
				prev, ok := ov.Remove(k)
				require.Equal(t, wantOK, ok)
				require.Equal(t, wantPrev, prev)
				delete(model, k)
			default:
				ov.Clear()
				clear(model)
			}

			require.Equal(t, len(model), ov.Len())
			for k := range ov.Changes() {
				if !base.Contains(k) {
					_, live := model[k]
					require.True(t, live, "stale slot for net-new key %q", k)
				}
			}
		}

		common.RequireNoDiff(t, model, maps.Collect(ov.All()))
		require.Len(t, slices.Collect(ov.Keys()), len(model))

		if round%3 == 0 {
			ov.Abort()
			common.RequireNoDiff(t, before, map[string]int(base))
			common.RequireNoDiff(t, before, maps.Collect(ov.All()))
		} else {
			ov.Commit()
			common.RequireNoDiff(t, model, map[string]int(base))
			require.Equal(t, base.Len(), ov.Len())
		}
		require.False(t, ov.Dirty())
	}
}
