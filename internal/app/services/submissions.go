package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/core/record"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// SubmissionService stores data posted by the forms of generated apps.
// Each form is one record collection.
type SubmissionService struct {
	store  record.Store
	logger *zap.Logger
}

// NewSubmissionService creates a submission service
func NewSubmissionService(store record.Store, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{store: store, logger: logger}
}

// Submit stores one submission of formID
func (s *SubmissionService) Submit(ctx context.Context, formID string, fields map[string]interface{}) (*record.Record, error) {
	rec, err := s.store.Insert(ctx, formID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	metrics.FormSubmitted()
	s.logger.Info("form submission stored",
		zap.String("form_id", formID),
		zap.String("record_id", rec.ID),
		zap.Int("fields", len(fields)))
	return rec, nil
}

// List returns the submissions of formID, oldest first
func (s *SubmissionService) List(ctx context.Context, formID string, limit int) ([]*record.Record, error) {
	recs, err := s.store.Query(ctx, formID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return recs, nil
}
