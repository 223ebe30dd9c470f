package flow

import (
	"context"

	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/adapters/repository/memory"
	"github.com/avatarflowx/avatarflowx/internal/app/services"
	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/internal/core/extract"
	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/core/history"
)

// Re-export core types for convenience
type (
	Node         = graph.Node
	Edge         = graph.Edge
	Position     = graph.Position
	Snapshot     = graph.Snapshot
	FlowData     = graph.FlowData
	History      = history.Manager
	SessionState = services.SessionState
	Checkpoint   = checkpoint.Checkpoint
)

// NewHistory creates an undo/redo manager. A limit of zero keeps every entry.
func NewHistory(limit int) *History {
	return history.New(history.WithLimit(limit))
}

// Extract finds the first flow graph in text. Decode failures are logged
// through zap's global logger.
func Extract(text string) (FlowData, bool) {
	return extract.ExtractFlowData(text)
}

// Editor runs editing sessions with in-memory checkpoints. Nothing outlives
// the process.
type Editor struct {
	editor      *services.EditorService
	checkpoints *services.CheckpointService
	saver       *memory.CheckpointSaver
	extractor   *extract.Extractor
}

// NewEditor constructs an editor. A nil logger disables logging.
func NewEditor(logger *zap.Logger, historyLimit int) *Editor {
	saver := memory.DefaultCheckpointSaver()
	editor := services.NewEditorService(logger, services.WithHistoryLimit(historyLimit))
	return &Editor{
		editor:      editor,
		checkpoints: services.NewCheckpointService(saver, editor, logger),
		saver:       saver,
		extractor:   extract.NewExtractor(logger),
	}
}

// Extract finds the first flow graph in text, logging decode failures
// through the editor's logger
func (e *Editor) Extract(text string) (FlowData, bool) {
	return e.extractor.Extract(text)
}

// Open starts a session on initial
func (e *Editor) Open(ctx context.Context, flowID string, initial Snapshot) SessionState {
	return e.editor.Open(ctx, flowID, initial)
}

// Apply replaces the live graph, recording the old one for undo
func (e *Editor) Apply(ctx context.Context, sessionID string, next Snapshot) (SessionState, error) {
	return e.editor.Apply(ctx, sessionID, next)
}

// ApplyFlow converts extracted flow data and applies it. Values that cannot
// become nodes or edges leave the session unchanged.
func (e *Editor) ApplyFlow(ctx context.Context, sessionID string, data FlowData) (SessionState, error) {
	next, err := data.Snapshot()
	if err != nil {
		return SessionState{}, err
	}
	return e.editor.Apply(ctx, sessionID, next)
}

// Undo steps back. changed is false when there was nothing to undo.
func (e *Editor) Undo(ctx context.Context, sessionID string) (SessionState, bool, error) {
	return e.editor.Undo(ctx, sessionID)
}

// Redo steps forward. changed is false when there was nothing to redo.
func (e *Editor) Redo(ctx context.Context, sessionID string) (SessionState, bool, error) {
	return e.editor.Redo(ctx, sessionID)
}

// Save stores the live graph as a named checkpoint
func (e *Editor) Save(ctx context.Context, sessionID, label string) (*Checkpoint, error) {
	return e.checkpoints.Save(ctx, sessionID, label, nil)
}

// Restore makes a checkpoint the live graph
func (e *Editor) Restore(ctx context.Context, sessionID, checkpointID string) (SessionState, error) {
	return e.checkpoints.Restore(ctx, sessionID, checkpointID)
}

// Close releases the editor's checkpoint store
func (e *Editor) Close() error {
	return e.saver.Close()
}
