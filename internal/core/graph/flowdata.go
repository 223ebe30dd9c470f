package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlowData is a graph object found in generated text. Both keys were present
// in the source; their values are kept exactly as written until Snapshot
// interprets them.
type FlowData struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

// Snapshot converts the raw node and edge values into editor entities.
// IDs and handles may be strings or numbers, coordinates may be numbers or
// numeric strings, and keys the entities do not model are kept in Data.
// Missing keys take zero values; a value of the wrong kind is an error
// wrapping ErrInvalidFlowData.
func (f FlowData) Snapshot() (Snapshot, error) {
	nodes, err := objectList(f.Nodes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: nodes: %v", ErrInvalidFlowData, err)
	}
	edges, err := objectList(f.Edges)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: edges: %v", ErrInvalidFlowData, err)
	}

	out := Snapshot{Nodes: make([]Node, 0, len(nodes)), Edges: make([]Edge, 0, len(edges))}
	for i, m := range nodes {
		n, err := nodeFromObject(m)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: nodes[%d]: %v", ErrInvalidFlowData, i, err)
		}
		out.Nodes = append(out.Nodes, n)
	}
	for i, m := range edges {
		e, err := edgeFromObject(m)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: edges[%d]: %v", ErrInvalidFlowData, i, err)
		}
		out.Edges = append(out.Edges, e)
	}
	return out, nil
}

func objectList(raw json.RawMessage) ([]map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("not an array of objects")
	}
	return list, nil
}

func nodeFromObject(m map[string]interface{}) (Node, error) {
	var (
		n   Node
		err error
	)
	for k, v := range m {
		if v == nil {
			continue
		}
		switch k {
		case "id":
			n.ID, err = textValue(k, v)
		case "type":
			n.Type, err = textValue(k, v)
		case "parentId":
			n.ParentID, err = textValue(k, v)
		case "width":
			n.Width, err = numberValue(k, v)
		case "height":
			n.Height, err = numberValue(k, v)
		case "position":
			n.Position, err = positionValue(v)
		case "data":
			n.Data, err = mergeData(n.Data, v)
		default:
			n.Data = keepExtra(n.Data, k, v)
		}
		if err != nil {
			return Node{}, err
		}
	}
	return n, nil
}

func edgeFromObject(m map[string]interface{}) (Edge, error) {
	var (
		e   Edge
		err error
	)
	for k, v := range m {
		if v == nil {
			continue
		}
		switch k {
		case "id":
			e.ID, err = textValue(k, v)
		case "source":
			e.Source, err = textValue(k, v)
		case "target":
			e.Target, err = textValue(k, v)
		case "sourceHandle":
			e.SourceHandle, err = textValue(k, v)
		case "targetHandle":
			e.TargetHandle, err = textValue(k, v)
		case "type":
			e.Type, err = textValue(k, v)
		case "label":
			e.Label, err = textValue(k, v)
		case "animated":
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("animated: want bool, got %T", v)
			}
			e.Animated = b
		case "data":
			e.Data, err = mergeData(e.Data, v)
		default:
			e.Data = keepExtra(e.Data, k, v)
		}
		if err != nil {
			return Edge{}, err
		}
	}
	return e, nil
}

func textValue(key string, v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%s: want string or number, got %T", key, v)
	}
}

func numberValue(key string, v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", key, t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: want number, got %T", key, v)
	}
}

func positionValue(v interface{}) (Position, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return Position{}, fmt.Errorf("position: want object, got %T", v)
	}
	var (
		p   Position
		err error
	)
	if x, ok := m["x"]; ok && x != nil {
		if p.X, err = numberValue("position.x", x); err != nil {
			return Position{}, err
		}
	}
	if y, ok := m["y"]; ok && y != nil {
		if p.Y, err = numberValue("position.y", y); err != nil {
			return Position{}, err
		}
	}
	return p, nil
}

// mergeData installs the data object, keeping extras already collected
// unless data names them too.
func mergeData(dst map[string]interface{}, v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("data: want object, got %T", v)
	}
	for k, x := range dst {
		if _, taken := m[k]; !taken {
			m[k] = x
		}
	}
	return m, nil
}

func keepExtra(data map[string]interface{}, k string, v interface{}) map[string]interface{} {
	if data == nil {
		data = make(map[string]interface{})
	}
	if _, taken := data[k]; !taken {
		data[k] = v
	}
	return data
}
