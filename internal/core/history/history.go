// Package history provides linear undo/redo over flow graph snapshots.
//
// A Manager owns two stacks: past (oldest to newest) and future (nearest to
// furthest). Push records the graph as it was just before a change and drops
// the redo branch. Undo and Redo move single entries between the stacks and
// hand back the moved snapshot for the caller to apply. Nothing here knows
// about rendering or reactivity; callers wrap a Manager in whatever adapter
// they need.
//
// A Manager is not safe for concurrent use. It belongs to one editor.
package history

import (
	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// Manager keeps the undo/redo stacks of one editor
// PRINCIPLES:
// - KISS: Two slices and plain methods
// - SRP: Stack bookkeeping only, the live graph belongs to the caller
type Manager struct {
	past   []graph.Snapshot
	future []graph.Snapshot
	limit  int
}

// Option configures a Manager
type Option func(*Manager)

// WithLimit caps the past stack. When more than n entries are recorded the
// oldest ones are dropped. n <= 0 means unbounded.
func WithLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

// New creates an empty history manager
func New(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push records a deep copy of the given graph at the end of the past stack and
// clears the future stack. Call it before mutating the live graph.
func (m *Manager) Push(nodes []graph.Node, edges []graph.Edge) {
	m.PushSnapshot(graph.Snapshot{Nodes: nodes, Edges: edges})
}

// PushSnapshot is Push for a snapshot value
func (m *Manager) PushSnapshot(s graph.Snapshot) {
	m.past = append(m.past, s.Clone())
	if m.limit > 0 && len(m.past) > m.limit {
		drop := len(m.past) - m.limit
		// Zero the dropped prefix so the backing array does not pin old graphs.
		for i := 0; i < drop; i++ {
			m.past[i] = graph.Snapshot{}
		}
		m.past = m.past[drop:]
	}
	m.future = nil
	metrics.HistoryOp("push")
}

// Undo moves the newest past entry to the front of the future stack and
// returns it. ok is false, and nothing changes, when there is nothing to undo.
func (m *Manager) Undo() (s graph.Snapshot, ok bool) {
	if len(m.past) == 0 {
		metrics.HistoryOp("noop")
		return graph.Snapshot{}, false
	}
	last := len(m.past) - 1
	entry := m.past[last]
	m.past[last] = graph.Snapshot{}
	m.past = m.past[:last]

	m.future = append(m.future, graph.Snapshot{})
	copy(m.future[1:], m.future)
	m.future[0] = entry

	metrics.HistoryOp("undo")
	return entry.Clone(), true
}

// Redo moves the first future entry to the end of the past stack and returns
// it. ok is false, and nothing changes, when there is nothing to redo.
func (m *Manager) Redo() (s graph.Snapshot, ok bool) {
	if len(m.future) == 0 {
		metrics.HistoryOp("noop")
		return graph.Snapshot{}, false
	}
	entry := m.future[0]
	m.future[0] = graph.Snapshot{}
	m.future = m.future[1:]
	m.past = append(m.past, entry)

	metrics.HistoryOp("redo")
	return entry.Clone(), true
}

// CanUndo reports whether the past stack is non-empty
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether the future stack is non-empty
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Clear empties both stacks
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
	metrics.HistoryOp("clear")
}

// Depth returns the sizes of the past and future stacks
func (m *Manager) Depth() (past, future int) {
	return len(m.past), len(m.future)
}

// Past returns copies of the past entries, oldest first
func (m *Manager) Past() []graph.Snapshot { return cloneAll(m.past) }

// Future returns copies of the future entries, nearest first
func (m *Manager) Future() []graph.Snapshot { return cloneAll(m.future) }

func cloneAll(in []graph.Snapshot) []graph.Snapshot {
	out := make([]graph.Snapshot, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
