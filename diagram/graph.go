package diagram

import "encoding/json"

// NodeKind is the closed set of node types a job diagram may contain.
type NodeKind string

const (
	NodeMainBox   NodeKind = "main-box"
	NodeSatellite NodeKind = "satellite"
	NodeComputer  NodeKind = "computer"
	NodeGauge     NodeKind = "gauge"
	NodeAdapter   NodeKind = "adapter"
	NodeWell      NodeKind = "well"
)

func (k NodeKind) Valid() bool {
	switch k {
	case NodeMainBox, NodeSatellite, NodeComputer, NodeGauge, NodeAdapter, NodeWell:
		return true
	}
	return false
}

// RequiresEquipment reports whether nodes of this kind demand a serialized
// item. Wells are drawn for context only.
func (k NodeKind) RequiresEquipment() bool {
	return k != NodeWell
}

// Category maps a node kind onto the equipment category it consumes.
func (k NodeKind) Category() string {
	switch k {
	case NodeMainBox:
		return "box"
	case NodeSatellite:
		return "communication"
	case NodeComputer:
		return "computer"
	case NodeGauge:
		return "gauge"
	case NodeAdapter:
		return "adapter"
	}
	return ""
}

type ConnectionType string

const (
	ConnectionDirect ConnectionType = "direct"
	ConnectionCable  ConnectionType = "cable"
)

type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Label       string   `json:"label,omitempty"`
	EquipmentID string   `json:"equipment_id,omitempty"`
	Assigned    bool     `json:"assigned,omitempty"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
}

type Edge struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Target      string         `json:"target"`
	Connection  ConnectionType `json:"connection"`
	CableTypeID int64          `json:"cable_type_id,omitempty"`
	EquipmentID string         `json:"equipment_id,omitempty"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

func (g *Graph) Edge(id string) *Edge {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i]
		}
	}
	return nil
}

// Binding locates where a serial is bound in the graph. Exactly one of
// NodeID/EdgeID is set.
type Binding struct {
	Serial string `json:"serial"`
	NodeID string `json:"node_id,omitempty"`
	EdgeID string `json:"edge_id,omitempty"`
}

// Bindings lists every equipment serial currently bound in the graph.
func (g *Graph) Bindings() []Binding {
	var out []Binding
	for i := range g.Nodes {
		if g.Nodes[i].EquipmentID != "" {
			out = append(out, Binding{Serial: g.Nodes[i].EquipmentID, NodeID: g.Nodes[i].ID})
		}
	}
	for i := range g.Edges {
		if g.Edges[i].EquipmentID != "" {
			out = append(out, Binding{Serial: g.Edges[i].EquipmentID, EdgeID: g.Edges[i].ID})
		}
	}
	return out
}

// FindBinding returns where a serial is bound, or nil.
func (g *Graph) FindBinding(serial string) *Binding {
	for i := range g.Nodes {
		if g.Nodes[i].EquipmentID == serial {
			return &Binding{Serial: serial, NodeID: g.Nodes[i].ID}
		}
	}
	for i := range g.Edges {
		if g.Edges[i].EquipmentID == serial {
			return &Binding{Serial: serial, EdgeID: g.Edges[i].ID}
		}
	}
	return nil
}

// ClearBinding removes every binding of a serial, returning true if any was cleared.
func (g *Graph) ClearBinding(serial string) bool {
	cleared := false
	for i := range g.Nodes {
		if g.Nodes[i].EquipmentID == serial {
			g.Nodes[i].EquipmentID = ""
			g.Nodes[i].Assigned = false
			cleared = true
		}
	}
	for i := range g.Edges {
		if g.Edges[i].EquipmentID == serial {
			g.Edges[i].EquipmentID = ""
			cleared = true
		}
	}
	return cleared
}

func (g *Graph) Snapshot() ([]byte, error) {
	return json.Marshal(g)
}

func FromSnapshot(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
