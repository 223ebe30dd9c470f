// Package graph provides edge definitions
package graph

// Edge represents a connection between two nodes on the canvas
// PRINCIPLES:
// - KISS: Simple edge representation
// - SRP: Only responsible for edge data
type Edge struct {
	ID           string                 `json:"id" msgpack:"id"`
	Source       string                 `json:"source" msgpack:"source"`
	Target       string                 `json:"target" msgpack:"target"`
	SourceHandle string                 `json:"sourceHandle,omitempty" msgpack:"sourceHandle,omitempty"`
	TargetHandle string                 `json:"targetHandle,omitempty" msgpack:"targetHandle,omitempty"`
	Type         string                 `json:"type,omitempty" msgpack:"type,omitempty"`
	Label        string                 `json:"label,omitempty" msgpack:"label,omitempty"`
	Animated     bool                   `json:"animated,omitempty" msgpack:"animated,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty" msgpack:"data,omitempty"`
}

// Validate ensures edge integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation, <10 lines
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Clone returns a deep copy of the edge
func (e Edge) Clone() Edge {
	e.Data = cloneMap(e.Data)
	return e
}
