// Package graph provides node definitions
package graph

// Well-known node types emitted by the flow editor palette. The editor accepts
// any type string; these are the ones the builder ships with.
const (
	NodeTypeDefault = "default"
	NodeTypeInput   = "input"
	NodeTypeOutput  = "output"
	NodeTypePage    = "page"
	NodeTypeForm    = "form"
	NodeTypeAction  = "action"
)

// Position is a node's location on the editor canvas
type Position struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Node represents a vertex on the flow editor canvas
// PRINCIPLES:
// - KISS: Mirrors the editor wire shape, nothing more
// - SRP: Only responsible for node data
type Node struct {
	ID       string                 `json:"id" msgpack:"id"`
	Type     string                 `json:"type,omitempty" msgpack:"type,omitempty"`
	Position Position               `json:"position" msgpack:"position"`
	Data     map[string]interface{} `json:"data,omitempty" msgpack:"data,omitempty"`
	Width    float64                `json:"width,omitempty" msgpack:"width,omitempty"`
	Height   float64                `json:"height,omitempty" msgpack:"height,omitempty"`
	ParentID string                 `json:"parentId,omitempty" msgpack:"parentId,omitempty"`
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	return nil
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	n.Data = cloneMap(n.Data)
	return n
}

// Label returns the display label stored in the node data, if any
func (n *Node) Label() string {
	if l, ok := n.Data["label"].(string); ok {
		return l
	}
	return ""
}
