// Package graph provides the flow-editor graph entities: nodes, edges and the
// snapshot value that the history and persistence layers pass around.
// It has zero external dependencies.
package graph

// Snapshot is the editor graph captured at one point in time
// PRINCIPLES:
// - KISS: Two ordered sequences, no derived indexes
// - Value semantics: Clone before handing a snapshot to another owner
type Snapshot struct {
	Nodes []Node `json:"nodes" msgpack:"nodes"`
	Edges []Edge `json:"edges" msgpack:"edges"`
}

// NewSnapshot builds a snapshot from deep copies of the given nodes and edges
func NewSnapshot(nodes []Node, edges []Edge) Snapshot {
	return Snapshot{Nodes: nodes, Edges: edges}.Clone()
}

// Clone returns a deep copy that shares no memory with the receiver.
// Nil sequences stay nil so round trips compare equal.
func (s Snapshot) Clone() Snapshot {
	var out Snapshot
	if s.Nodes != nil {
		out.Nodes = make([]Node, len(s.Nodes))
		for i, n := range s.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if s.Edges != nil {
		out.Edges = make([]Edge, len(s.Edges))
		for i, e := range s.Edges {
			out.Edges[i] = e.Clone()
		}
	}
	return out
}

// IsEmpty reports whether the snapshot has neither nodes nor edges
func (s Snapshot) IsEmpty() bool {
	return len(s.Nodes) == 0 && len(s.Edges) == 0
}

// Node looks up a node by ID
func (s Snapshot) Node(id string) (*Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// Validate performs structural validation: node IDs are present and unique,
// edge IDs are unique when set, and every edge points at existing nodes.
// The history manager never calls this; it is for graphs coming from outside.
func (s Snapshot) Validate() error {
	nodeIDs := make(map[string]struct{}, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if err := n.Validate(); err != nil {
			return err
		}
		if _, dup := nodeIDs[n.ID]; dup {
			return ErrDuplicateNode
		}
		nodeIDs[n.ID] = struct{}{}
	}

	edgeIDs := make(map[string]struct{}, len(s.Edges))
	for i := range s.Edges {
		e := &s.Edges[i]
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := nodeIDs[e.Source]; !ok {
			return ErrSourceNodeNotFound
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return ErrTargetNodeNotFound
		}
		if e.ID == "" {
			continue
		}
		if _, dup := edgeIDs[e.ID]; dup {
			return ErrDuplicateEdge
		}
		edgeIDs[e.ID] = struct{}{}
	}
	return nil
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by the JSON and msgpack
// decoders. Scalars are immutable and returned as-is.
func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		if t == nil {
			return t
		}
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string(nil), t...)
	default:
		return v
	}
}
