package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

func snap(ids ...string) graph.Snapshot {
	s := graph.Snapshot{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	for _, id := range ids {
		s.Nodes = append(s.Nodes, graph.Node{ID: id, Data: map[string]interface{}{"label": id}})
	}
	return s
}

func nodeIDs(s graph.Snapshot) []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestEditorService_OpenAndState(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)

	st := svc.Open(ctx, "flow-1", snap("a"))
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "flow-1", st.FlowID)
	assert.False(t, st.CanUndo)
	assert.False(t, st.CanRedo)
	assert.Equal(t, 1, svc.Count())

	got, err := svc.State(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nodeIDs(got.Graph))

	generated := svc.Open(ctx, "", graph.Snapshot{})
	assert.NotEmpty(t, generated.FlowID)
	assert.NotEqual(t, st.ID, generated.ID)
}

func TestEditorService_UndoRedoWalk(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)
	id := svc.Open(ctx, "flow", snap("a")).ID

	_, err := svc.Apply(ctx, id, snap("a", "b"))
	require.NoError(t, err)
	st, err := svc.Apply(ctx, id, snap("a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, st.CanUndo)
	assert.Equal(t, 2, st.PastDepth)

	st, changed, err := svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b"}, nodeIDs(st.Graph))
	assert.True(t, st.CanRedo)

	st, changed, err = svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a"}, nodeIDs(st.Graph))
	assert.False(t, st.CanUndo)

	st, changed, err = svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"a"}, nodeIDs(st.Graph))

	st, changed, err = svc.Redo(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b"}, nodeIDs(st.Graph))

	st, changed, err = svc.Redo(ctx, id)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "b", "c"}, nodeIDs(st.Graph))
	assert.False(t, st.CanRedo)
	assert.Equal(t, 2, st.PastDepth)

	_, changed, err = svc.Redo(ctx, id)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestEditorService_ApplyDropsRedoBranch(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)
	id := svc.Open(ctx, "flow", snap("a")).ID

	_, err := svc.Apply(ctx, id, snap("a", "b"))
	require.NoError(t, err)
	_, _, err = svc.Undo(ctx, id)
	require.NoError(t, err)

	st, err := svc.Apply(ctx, id, snap("x"))
	require.NoError(t, err)
	assert.False(t, st.CanRedo)
	assert.Equal(t, 0, st.FutureDepth)

	st, _, err = svc.Undo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, nodeIDs(st.Graph))

	st, _, err = svc.Redo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, nodeIDs(st.Graph))
}

func TestEditorService_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)

	initial := snap("a")
	id := svc.Open(ctx, "flow", initial).ID
	initial.Nodes[0].Data["label"] = "mutated"

	st, err := svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", st.Graph.Nodes[0].Label())

	st.Graph.Nodes[0].ID = "changed"
	again, err := svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Graph.Nodes[0].ID)
}

func TestEditorService_ClearAndClose(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)
	id := svc.Open(ctx, "flow", snap("a")).ID

	_, err := svc.Apply(ctx, id, snap("b"))
	require.NoError(t, err)
	_, _, err = svc.Undo(ctx, id)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, id, snap("c"))
	require.NoError(t, err)

	st, err := svc.Clear(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.CanUndo)
	assert.False(t, st.CanRedo)
	assert.Equal(t, []string{"c"}, nodeIDs(st.Graph))

	require.NoError(t, svc.Close(ctx, id))
	assert.ErrorIs(t, svc.Close(ctx, id), ErrSessionNotFound)

	_, err = svc.State(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Apply(ctx, id, snap())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = svc.Undo(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = svc.Redo(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Clear(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEditorService_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil, WithHistoryLimit(2))
	id := svc.Open(ctx, "flow", snap("0")).ID

	for _, n := range []string{"1", "2", "3", "4"} {
		_, err := svc.Apply(ctx, id, snap(n))
		require.NoError(t, err)
	}

	st, err := svc.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, st.PastDepth)

	st, _, _ = svc.Undo(ctx, id)
	assert.Equal(t, []string{"3"}, nodeIDs(st.Graph))
	st, _, _ = svc.Undo(ctx, id)
	assert.Equal(t, []string{"2"}, nodeIDs(st.Graph))
	_, changed, _ := svc.Undo(ctx, id)
	assert.False(t, changed)
}

func TestEditorService_ChangeHooks(t *testing.T) {
	ctx := context.Background()

	var ops []string
	svc := NewEditorService(nil, WithChangeHook(func(_, op string, _ graph.Snapshot) {
		ops = append(ops, op)
	}))

	id := svc.Open(ctx, "flow", snap("a")).ID
	_, _ = svc.Apply(ctx, id, snap("b"))
	_, _, _ = svc.Undo(ctx, id)
	_, _, _ = svc.Undo(ctx, id) // no-op, not reported
	_, _, _ = svc.Redo(ctx, id)
	_, _ = svc.Clear(ctx, id)

	assert.Equal(t, []string{OpOpen, OpApply, OpUndo, OpRedo, OpClear}, ops)
}

func TestEditorService_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := svc.Open(ctx, "", snap("a")).ID
			for j := 0; j < 10; j++ {
				_, err := svc.Apply(ctx, id, snap("a", "b"))
				assert.NoError(t, err)
				_, _, err = svc.Undo(ctx, id)
				assert.NoError(t, err)
			}
			assert.NoError(t, svc.Close(ctx, id))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, svc.Count())
}

func TestEditorService_ExpireIdle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewEditorService(nil, WithIdleTimeout(time.Hour, 0))
	svc.now = func() time.Time { return clock }
	defer svc.Stop()

	idle := svc.Open(ctx, "flow", snap("a")).ID
	busy := svc.Open(ctx, "flow", snap("b")).ID

	clock = clock.Add(40 * time.Minute)
	_, err := svc.State(ctx, busy)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.ExpireIdle())

	clock = clock.Add(30 * time.Minute)
	assert.Equal(t, 1, svc.ExpireIdle())
	assert.Equal(t, 1, svc.Count())

	_, err = svc.State(ctx, idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	st, err := svc.State(ctx, busy)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, nodeIDs(st.Graph))
}

func TestEditorService_ExpireIdleWithoutTimeout(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewEditorService(nil)
	svc.now = func() time.Time { return clock }

	svc.Open(ctx, "flow", snap("a"))
	clock = clock.Add(24 * 365 * time.Hour)
	assert.Equal(t, 0, svc.ExpireIdle())
	assert.Equal(t, 1, svc.Count())
}

func TestEditorService_IdleSweep(t *testing.T) {
	ctx := context.Background()
	svc := NewEditorService(nil, WithIdleTimeout(20*time.Millisecond, 5*time.Millisecond))
	defer svc.Stop()

	svc.Open(ctx, "flow", snap("a"))
	assert.Eventually(t, func() bool { return svc.Count() == 0 }, time.Second, 5*time.Millisecond)

	svc.Stop()
	svc.Stop()
}
