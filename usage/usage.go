// Package usage derives equipment demand from a job diagram. Analyze is a
// pure function: it reads the graph and the type table passed to it, and
// nothing else. Output is recomputed on every graph edit, never cached.
package usage

import (
	"regexp"
	"strconv"
	"strings"

	"fieldcore/diagram"
)

// CableDemand is the bulk requirement for one cable type.
type CableDemand struct {
	TypeID   int64  `json:"type_id"`
	TypeName string `json:"type_name"`
	Quantity int    `json:"quantity"`
	LengthFt int    `json:"length_ft,omitempty"`
	Version  string `json:"version,omitempty"`
}

type Usage struct {
	// Cables is bulk demand keyed by cable type id.
	Cables map[int64]*CableDemand `json:"cables"`
	// Categories counts nodes per equipment category.
	Categories map[string]int `json:"categories"`
	// Individual maps a bound serial to its node/edge.
	Individual map[string]diagram.Binding `json:"individual"`
	// DirectConnections counts edges needing no equipment.
	DirectConnections int `json:"direct_connections"`
}

// Analyze folds a graph into its equipment demand. typeNames maps cable type
// id to display name (length and version are parsed from the name);
// defaultCableTypeID covers edges with no explicit cable type.
func Analyze(g *diagram.Graph, typeNames map[int64]string, defaultCableTypeID int64) *Usage {
	u := &Usage{
		Cables:     make(map[int64]*CableDemand),
		Categories: make(map[string]int),
		Individual: make(map[string]diagram.Binding),
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.Connection == diagram.ConnectionDirect {
			u.DirectConnections++
			continue
		}
		typeID := e.CableTypeID
		if typeID == 0 {
			typeID = defaultCableTypeID
		}
		d, ok := u.Cables[typeID]
		if !ok {
			name := typeNames[typeID]
			length, version := parseCableName(name)
			d = &CableDemand{TypeID: typeID, TypeName: name, LengthFt: length, Version: version}
			u.Cables[typeID] = d
		}
		d.Quantity++
		if e.EquipmentID != "" {
			u.Individual[e.EquipmentID] = diagram.Binding{Serial: e.EquipmentID, EdgeID: e.ID}
		}
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !n.Kind.RequiresEquipment() {
			continue
		}
		u.Categories[n.Kind.Category()]++
		if n.EquipmentID != "" {
			u.Individual[n.EquipmentID] = diagram.Binding{Serial: n.EquipmentID, NodeID: n.ID}
		}
	}

	return u
}

var cableNameRe = regexp.MustCompile(`(?i)(\d+)\s*ft`)

// parseCableName pulls length ("200ft ...") and version ("... (New)") out of
// a cable type display name.
func parseCableName(name string) (lengthFt int, version string) {
	if m := cableNameRe.FindStringSubmatch(name); m != nil {
		lengthFt, _ = strconv.Atoi(m[1])
	}
	if open := strings.LastIndex(name, "("); open >= 0 {
		if end := strings.LastIndex(name, ")"); end > open {
			version = name[open+1 : end]
		}
	}
	return lengthFt, version
}
