// Package checkpoint provides checkpoint persistence interfaces
package checkpoint

import (
	"context"
	"time"
)

// Saver interface for checkpoint persistence (DIP - Dependency Inversion)
// PRINCIPLES:
// - ISP: Interface segregation with ≤5 methods
// - DIP: Core domain depends on interface, not implementations
type Saver interface {
	// Save persists a checkpoint, replacing one with the same ID
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, id string) (*Checkpoint, error)

	// List returns checkpoints matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Checkpoint, error)

	// Delete removes a checkpoint by ID
	Delete(ctx context.Context, id string) error
}

// Filter for checkpoint queries
type Filter struct {
	FlowID    string     `json:"flow_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether cp passes the filter's predicates. Paging is not
// applied here.
func (f *Filter) Matches(cp *Checkpoint) bool {
	if f.FlowID != "" && cp.FlowID != f.FlowID {
		return false
	}
	if f.SessionID != "" && cp.SessionID != f.SessionID {
		return false
	}
	if f.Since != nil && !cp.Timestamp.After(*f.Since) {
		return false
	}
	if f.Before != nil && !cp.Timestamp.Before(*f.Before) {
		return false
	}
	return cp.HasTags(f.Tags)
}

// Page applies Offset and Limit to an already ordered result set
func (f *Filter) Page(cps []*Checkpoint) []*Checkpoint {
	if f.Offset > 0 {
		if f.Offset >= len(cps) {
			return nil
		}
		cps = cps[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(cps) {
		cps = cps[:f.Limit]
	}
	return cps
}
