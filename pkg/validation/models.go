package validation

import (
	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

// ExtractRequest asks the API to pull a flow graph out of generated text
type ExtractRequest struct {
	Text     string `json:"text" validate:"required,max=200000"`
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=balanced lazy"`
}

// GraphPayload carries a full editor graph
type GraphPayload struct {
	Nodes []graph.Node `json:"nodes" validate:"max=5000"`
	Edges []graph.Edge `json:"edges" validate:"max=20000"`
}

// Snapshot returns the payload as a snapshot value
func (p *GraphPayload) Snapshot() graph.Snapshot {
	return graph.Snapshot{Nodes: p.Nodes, Edges: p.Edges}
}

// Validate checks the graph structure and node identifiers
func (p *GraphPayload) Validate() error {
	return ValidateFlow(p.Snapshot())
}

// OpenSessionRequest opens an editor session, optionally seeded with a graph
type OpenSessionRequest struct {
	FlowID string        `json:"flow_id,omitempty" validate:"omitempty,max=100"`
	Graph  *GraphPayload `json:"graph,omitempty"`
}

// Validate checks the seed graph when present
func (r *OpenSessionRequest) Validate() error {
	if r.Graph == nil {
		return nil
	}
	if err := ValidateStruct(r.Graph); err != nil {
		return err
	}
	return nil
}

// GenerateRequest asks the AI to produce a flow for a session
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3,max=4000"`
}

// CheckpointRequest names a saved flow version
type CheckpointRequest struct {
	Label string   `json:"label" validate:"required,max=200"`
	Tags  []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
}

// SubmissionRequest is a form submission from a generated app
type SubmissionRequest struct {
	FormID string                 `json:"-" validate:"required,form_id"`
	Fields map[string]interface{} `json:"fields" validate:"required,min=1,max=100"`
}
