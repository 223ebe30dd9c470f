// Package checkpoint provides named, persisted versions of a flow graph and
// the persistence port their savers implement. It has no external dependencies.
package checkpoint

import (
	"time"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

// CurrentVersion is the payload version written by this build
const CurrentVersion = "1"

// Checkpoint is a saved version of one flow
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only responsible for checkpoint data structure
type Checkpoint struct {
	ID        string         `json:"id"`
	FlowID    string         `json:"flow_id"`
	SessionID string         `json:"session_id,omitempty"`
	Label     string         `json:"label"`
	Snapshot  graph.Snapshot `json:"snapshot"`
	Metadata  Metadata       `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
}

// Metadata contains additional information about a checkpoint
type Metadata struct {
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
	Source    string   `json:"source,omitempty"` // editor, generated, import
	CreatedBy string   `json:"created_by,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Validate ensures checkpoint integrity
func (c *Checkpoint) Validate() error {
	if c.ID == "" {
		return ErrInvalidCheckpointID
	}
	if c.FlowID == "" {
		return ErrInvalidFlowID
	}
	return nil
}

// Summary returns the checkpoint without its snapshot payload
func (c *Checkpoint) Summary() Checkpoint {
	out := *c
	out.Snapshot = graph.Snapshot{}
	out.Metadata.Tags = append([]string(nil), c.Metadata.Tags...)
	return out
}

// HasTags reports whether the checkpoint carries every tag in tags
func (c *Checkpoint) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range c.Metadata.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
