package session_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shadowkv/internal/common"
	"shadowkv/internal/overlay"
	"shadowkv/internal/session"
	"shadowkv/internal/xact"
)

func newSession(t *testing.T, committed map[string]any) (*session.Session, overlay.MapBase[string, any]) {
	t.Helper()

	base := overlay.NewMapBase[string, any]()
	for k, v := range committed {
		base.Put(k, v)
	}
	var logs bytes.Buffer
	s := session.New(
		session.WithBase(base),
		session.WithLogger(common.NewLogger(common.LogConfig{Level: "debug", Out: &logs})),
	)
	return s, base
}

func TestNewGeneratesID(t *testing.T) {
	s := session.New()
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	fixed := session.New(session.WithID("fixed"))
	require.Equal(t, "fixed", fixed.ID())
}

func TestAttributesPassThrough(t *testing.T) {
	s, base := newSession(t, map[string]any{"user": "alice"})

	v, ok := s.GetAttribute("user")
	require.True(t, ok)
	require.Equal(t, "alice", v)

	s.SetAttribute("role", "admin")
	s.SetAttribute("nothing", nil)
	s.RemoveAttribute("user")

	common.RequireNoDiff(t, []string{"nothing", "role"}, s.AttributeNames())
	common.RequireNoDiff(t, map[string]any{"nothing": nil, "role": "admin"}, s.Attributes())
	require.Equal(t, 2, s.Len())

	// Still uncommitted.
	common.RequireNoDiff(t, overlay.MapBase[string, any]{"user": "alice"}, base)
}

func TestPendingChanges(t *testing.T) {
	s, _ := newSession(t, map[string]any{"a": 1, "b": 2})

	s.SetAttribute("c", 3)
	s.RemoveAttribute("a")

	common.RequireNoDiff(t, []session.PendingChange{
		{Name: "a", Type: common.EntryTypeDelete},
		{Name: "c", Type: common.EntryTypePut, Value: 3},
	}, s.PendingChanges())
}

func TestTransactionEvents(t *testing.T) {
	ctx := context.Background()
	d := xact.NewDispatcher()
	s, base := newSession(t, map[string]any{"x": 1})
	detach := s.Attach(d)

	s.SetAttribute("y", 2)
	s.RemoveAttribute("x")
	require.NoError(t, d.Fire(xact.Event{Kind: xact.Prepare}))
	require.NoError(t, d.Fire(xact.Event{Kind: xact.Commit}))
	require.NoError(t, d.Drain(ctx))

	common.RequireNoDiff(t, overlay.MapBase[string, any]{"y": 2}, base)
	require.Empty(t, s.PendingChanges())
	require.Equal(t, 1, s.Len())

	s.SetAttribute("z", 3)
	require.NoError(t, d.Fire(xact.Event{Kind: xact.Abort}))
	require.NoError(t, d.Drain(ctx))
	_, ok := s.GetAttribute("z")
	require.False(t, ok)

	detach()
	s.SetAttribute("w", 4)
	require.NoError(t, d.Fire(xact.Event{Kind: xact.Commit}))
	require.NoError(t, d.Drain(ctx))
	require.False(t, base.Contains("w"))
	require.Len(t, s.PendingChanges(), 1)
}

func TestSavepointRollbackDiscardsPending(t *testing.T) {
	ctx := context.Background()
	d := xact.NewDispatcher()
	s, base := newSession(t, map[string]any{"x": 1})
	s.Attach(d)

	sp := d.NewSavepoint("sp1")
	require.NoError(t, d.Fire(xact.Event{Kind: xact.SavepointStart, Savepoint: sp}))
	s.SetAttribute("x", 10)
	require.NoError(t, d.Fire(xact.Event{Kind: xact.SavepointCommit, Savepoint: sp}))
	require.NoError(t, d.Drain(ctx))

	v, _ := s.GetAttribute("x")
	require.Equal(t, 10, v)

	require.NoError(t, d.Fire(xact.Event{Kind: xact.SavepointAbort, Savepoint: sp}))
	require.NoError(t, d.Drain(ctx))

	v, _ = s.GetAttribute("x")
	require.Equal(t, 1, v)
	common.RequireNoDiff(t, overlay.MapBase[string, any]{"x": 1}, base)
}

func TestClearThenAbortRestores(t *testing.T) {
	s, _ := newSession(t, map[string]any{"x": 1, "y": 2})

	for _, name := range s.AttributeNames() {
		s.RemoveAttribute(name)
	}
	require.Zero(t, s.Len())

	s.Abort()
	common.RequireNoDiff(t, map[string]any{"x": 1, "y": 2}, s.Attributes())
}

func TestConcurrentAccessUnderSessionLock(t *testing.T) {
	s, base := newSession(t, nil)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				s.SetAttribute(string(rune('a'+w)), i)
				s.GetAttribute("a")
				_ = s.Len()
			}
		}()
	}
	wg.Wait()

	s.Commit()
	require.Equal(t, 8, base.Len())
	v, _ := base.Get("a")
	require.Equal(t, 99, v)
}

func TestDumpYAML(t *testing.T) {
	s, _ := newSession(t, map[string]any{"b": 2, "a": "one"})
	s.SetAttribute("c", []string{"p", "q"})

	out, err := s.DumpYAML()
	require.NoError(t, err)
	require.Equal(t, "a: one\nb: 2\nc:\n    - p\n    - q\n", string(out))
}

func TestDumpYAMLQuotesBooleanLikeStrings(t *testing.T) {
	s, _ := newSession(t, map[string]any{"flag": "y"})

	out, err := s.DumpYAML()
	require.NoError(t, err)
	require.Equal(t, "flag: \"y\"\n", string(out))
}

func TestDumpYAMLEmpty(t *testing.T) {
	s, _ := newSession(t, nil)

	out, err := s.DumpYAML()
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(out))
}
