package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// DefaultCheckpointListLimit bounds List when the caller passes no limit
const DefaultCheckpointListLimit = 100

// CheckpointService persists named versions of the flows edited in sessions
// PRINCIPLES:
// - SRP: Manages checkpoint operations for editor sessions
// - DIP: Depends on checkpoint.Saver abstraction
type CheckpointService struct {
	saver  checkpoint.Saver
	editor *EditorService
	logger *zap.Logger
}

// NewCheckpointService creates a new checkpoint service
func NewCheckpointService(saver checkpoint.Saver, editor *EditorService, logger *zap.Logger) *CheckpointService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointService{
		saver:  saver,
		editor: editor,
		logger: logger,
	}
}

// Save stores the session's live graph under label
func (s *CheckpointService) Save(ctx context.Context, sessionID, label string, tags []string) (*checkpoint.Checkpoint, error) {
	st, err := s.editor.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cp := &checkpoint.Checkpoint{
		ID:        uuid.NewString(),
		FlowID:    st.FlowID,
		SessionID: sessionID,
		Label:     label,
		Snapshot:  st.Graph,
		Metadata: checkpoint.Metadata{
			NodeCount: len(st.Graph.Nodes),
			EdgeCount: len(st.Graph.Edges),
			Source:    "editor",
			CreatedBy: "avatarflowx",
			Tags:      tags,
		},
		Timestamp: s.editor.now().UTC(),
		Version:   checkpoint.CurrentVersion,
	}

	if err := s.saver.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	metrics.CheckpointSaved()
	s.logger.Info("checkpoint saved",
		zap.String("checkpoint_id", cp.ID),
		zap.String("flow_id", cp.FlowID),
		zap.String("label", label))
	return cp, nil
}

// List returns checkpoint summaries for the session's flow, newest first
func (s *CheckpointService) List(ctx context.Context, sessionID string, limit int) ([]checkpoint.Checkpoint, error) {
	st, err := s.editor.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultCheckpointListLimit
	}

	cps, err := s.saver.List(ctx, checkpoint.Filter{FlowID: st.FlowID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	out := make([]checkpoint.Checkpoint, 0, len(cps))
	for _, cp := range cps {
		out = append(out, cp.Summary())
	}
	return out, nil
}

// Restore makes a checkpoint's graph the session's live graph. It goes through
// Apply, so the restore itself can be undone.
func (s *CheckpointService) Restore(ctx context.Context, sessionID, checkpointID string) (SessionState, error) {
	st, err := s.editor.State(ctx, sessionID)
	if err != nil {
		return SessionState{}, err
	}

	cp, err := s.saver.Load(ctx, checkpointID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
			return SessionState{}, err
		}
		return SessionState{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp.FlowID != st.FlowID {
		return SessionState{}, ErrCheckpointMismatch
	}

	s.logger.Info("checkpoint restored",
		zap.String("checkpoint_id", cp.ID),
		zap.String("session_id", sessionID))
	return s.editor.Apply(ctx, sessionID, cp.Snapshot)
}

// Delete removes a checkpoint of the session's flow
func (s *CheckpointService) Delete(ctx context.Context, sessionID, checkpointID string) error {
	st, err := s.editor.State(ctx, sessionID)
	if err != nil {
		return err
	}
	cp, err := s.saver.Load(ctx, checkpointID)
	if err != nil {
		return err
	}
	if cp.FlowID != st.FlowID {
		return ErrCheckpointMismatch
	}
	return s.saver.Delete(ctx, checkpointID)
}
