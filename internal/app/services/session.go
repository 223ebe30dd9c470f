package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/core/history"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// Change operations reported to hooks
const (
	OpOpen  = "open"
	OpApply = "apply"
	OpUndo  = "undo"
	OpRedo  = "redo"
	OpClear = "clear"
)

// ChangeHook is called after a session's live graph or history changed
type ChangeHook func(sessionID, op string, live graph.Snapshot)

// SessionState is the observable state of one editor session
type SessionState struct {
	ID          string         `json:"id"`
	FlowID      string         `json:"flowId"`
	Graph       graph.Snapshot `json:"graph"`
	CanUndo     bool           `json:"canUndo"`
	CanRedo     bool           `json:"canRedo"`
	PastDepth   int            `json:"pastDepth"`
	FutureDepth int            `json:"futureDepth"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// session couples one history.Manager with the live graph it edits.
//
// The manager's future stack holds the graphs that undo restored from; redo
// hands the same entry back. To let redo restore the graph as it was before
// the undo, redoLive keeps the replaced live graphs in the same order as the
// manager's future stack.
type session struct {
	mu        sync.Mutex
	id        string
	flowID    string
	history   *history.Manager
	live      graph.Snapshot
	redoLive  []graph.Snapshot
	updatedAt time.Time

	// unix nanos of the last lookup, read by the idle sweep without mu
	accessedAt atomic.Int64
}

func (s *session) state() SessionState {
	past, future := s.history.Depth()
	return SessionState{
		ID:          s.id,
		FlowID:      s.flowID,
		Graph:       s.live.Clone(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
		PastDepth:   past,
		FutureDepth: future,
		UpdatedAt:   s.updatedAt,
	}
}

// EditorService keeps one undo/redo history per open editor session
// PRINCIPLES:
// - SRP: Session lifecycle and history bookkeeping
// - DIP: Callers see SessionState values, never the manager
type EditorService struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	historyLimit int
	hooks        []ChangeHook
	logger       *zap.Logger
	now          func() time.Time

	idleTimeout   time.Duration
	sweepInterval time.Duration
	stopSweep     chan struct{}
	sweepOnce     sync.Once
}

// EditorOption configures an EditorService
type EditorOption func(*EditorService)

// WithHistoryLimit caps each session's undo depth. n <= 0 means unbounded.
func WithHistoryLimit(n int) EditorOption {
	return func(s *EditorService) { s.historyLimit = n }
}

// WithChangeHook registers a hook called after every change
func WithChangeHook(h ChangeHook) EditorOption {
	return func(s *EditorService) { s.hooks = append(s.hooks, h) }
}

// WithIdleTimeout closes sessions not touched for ttl. A sweep runs every
// interval; with interval <= 0 only explicit ExpireIdle calls expire sessions.
func WithIdleTimeout(ttl, interval time.Duration) EditorOption {
	return func(s *EditorService) {
		s.idleTimeout = ttl
		s.sweepInterval = interval
	}
}

// NewEditorService creates an editor service
func NewEditorService(logger *zap.Logger, opts ...EditorOption) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EditorService{
		sessions:  make(map[string]*session),
		logger:    logger,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.idleTimeout > 0 && s.sweepInterval > 0 {
		go s.sweepLoop(s.sweepInterval)
	}
	return s
}

// Open starts a session on a copy of initial. An empty flowID gets a fresh one.
func (s *EditorService) Open(_ context.Context, flowID string, initial graph.Snapshot) SessionState {
	if flowID == "" {
		flowID = uuid.NewString()
	}
	sess := &session{
		id:        uuid.NewString(),
		flowID:    flowID,
		history:   history.New(history.WithLimit(s.historyLimit)),
		live:      initial.Clone(),
		updatedAt: s.now(),
	}
	sess.accessedAt.Store(sess.updatedAt.UnixNano())

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	metrics.SessionOpened()
	s.logger.Info("editor session opened",
		zap.String("session_id", sess.id),
		zap.String("flow_id", flowID),
		zap.Int("nodes", len(initial.Nodes)),
		zap.Int("edges", len(initial.Edges)))

	st := sess.state()
	s.notify(sess.id, OpOpen, st.Graph)
	return st
}

// State returns the session's live graph and history flags
func (s *EditorService) State(_ context.Context, sessionID string) (SessionState, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state(), nil
}

// Apply records the current live graph in history and replaces it with next
func (s *EditorService) Apply(_ context.Context, sessionID string, next graph.Snapshot) (SessionState, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionState{}, err
	}

	sess.mu.Lock()
	sess.history.PushSnapshot(sess.live)
	sess.live = next.Clone()
	sess.redoLive = nil
	sess.updatedAt = s.now()
	st := sess.state()
	sess.mu.Unlock()

	s.notify(sessionID, OpApply, st.Graph)
	return st, nil
}

// Undo restores the previous graph. changed is false when there was nothing
// to undo; the state is then returned unchanged.
func (s *EditorService) Undo(_ context.Context, sessionID string) (st SessionState, changed bool, err error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionState{}, false, err
	}

	sess.mu.Lock()
	prev, ok := sess.history.Undo()
	if ok {
		sess.redoLive = append(sess.redoLive, graph.Snapshot{})
		copy(sess.redoLive[1:], sess.redoLive)
		sess.redoLive[0] = sess.live
		sess.live = prev
		sess.updatedAt = s.now()
	}
	st = sess.state()
	sess.mu.Unlock()

	if ok {
		s.notify(sessionID, OpUndo, st.Graph)
	}
	return st, ok, nil
}

// Redo re-applies the most recently undone change. changed is false when there
// was nothing to redo.
func (s *EditorService) Redo(_ context.Context, sessionID string) (st SessionState, changed bool, err error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionState{}, false, err
	}

	sess.mu.Lock()
	_, ok := sess.history.Redo()
	if ok {
		sess.live = sess.redoLive[0]
		sess.redoLive[0] = graph.Snapshot{}
		sess.redoLive = sess.redoLive[1:]
		sess.updatedAt = s.now()
	}
	st = sess.state()
	sess.mu.Unlock()

	if ok {
		s.notify(sessionID, OpRedo, st.Graph)
	}
	return st, ok, nil
}

// Clear drops the session's history and keeps its live graph
func (s *EditorService) Clear(_ context.Context, sessionID string) (SessionState, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionState{}, err
	}

	sess.mu.Lock()
	sess.history.Clear()
	sess.redoLive = nil
	sess.updatedAt = s.now()
	st := sess.state()
	sess.mu.Unlock()

	s.notify(sessionID, OpClear, st.Graph)
	return st, nil
}

// Close discards the session and its history
func (s *EditorService) Close(_ context.Context, sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	metrics.SessionClosed()
	s.logger.Info("editor session closed", zap.String("session_id", sessionID))
	return nil
}

// Count returns the number of open sessions
func (s *EditorService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle closes every session idle for longer than the idle timeout and
// returns how many were closed. It does nothing without an idle timeout.
func (s *EditorService) ExpireIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout).UnixNano()

	var expired []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.accessedAt.Load() < cutoff {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		metrics.SessionClosed()
		s.logger.Info("editor session expired",
			zap.String("session_id", id),
			zap.Duration("idle_timeout", s.idleTimeout))
	}
	return len(expired)
}

// Stop ends the idle sweep. Open sessions are kept.
func (s *EditorService) Stop() {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
}

func (s *EditorService) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ExpireIdle()
		case <-s.stopSweep:
			return
		}
	}
}

func (s *EditorService) get(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.accessedAt.Store(s.now().UnixNano())
	return sess, nil
}

func (s *EditorService) notify(sessionID, op string, live graph.Snapshot) {
	for _, h := range s.hooks {
		h(sessionID, op, live)
	}
	s.logger.Debug("editor session changed",
		zap.String("session_id", sessionID),
		zap.String("op", op),
		zap.Int("nodes", len(live.Nodes)),
		zap.Int("edges", len(live.Edges)))
}
