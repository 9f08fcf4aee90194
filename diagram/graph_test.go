package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKind(t *testing.T) {
	assert.True(t, NodeMainBox.Valid())
	assert.True(t, NodeWell.Valid())
	assert.False(t, NodeKind("pump").Valid())

	assert.False(t, NodeWell.RequiresEquipment())
	assert.True(t, NodeGauge.RequiresEquipment())

	assert.Equal(t, "box", NodeMainBox.Category())
	assert.Equal(t, "communication", NodeSatellite.Category())
	assert.Empty(t, NodeWell.Category())
}

func TestBindings(t *testing.T) {
	g := &Graph{
		Nodes: []Node{
			{ID: "n1", Kind: NodeSatellite, EquipmentID: "SS-0007"},
			{ID: "n2", Kind: NodeSatellite},
		},
		Edges: []Edge{
			{ID: "e1", Connection: ConnectionCable, EquipmentID: "CB-0042"},
			{ID: "e2", Connection: ConnectionDirect},
		},
	}

	bindings := g.Bindings()
	require.Len(t, bindings, 2)
	require.Equal(t, Binding{Serial: "SS-0007", NodeID: "n1"}, bindings[0])
	require.Equal(t, Binding{Serial: "CB-0042", EdgeID: "e1"}, bindings[1])

	b := g.FindBinding("CB-0042")
	require.NotNil(t, b)
	require.Equal(t, "e1", b.EdgeID)
	require.Nil(t, g.FindBinding("NOPE"))
}

func TestClearBinding(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "n1", Kind: NodeSatellite, EquipmentID: "SS-0007", Assigned: true}},
		Edges: []Edge{{ID: "e1", Connection: ConnectionCable, EquipmentID: "SS-0007"}},
	}

	require.True(t, g.ClearBinding("SS-0007"))
	require.Empty(t, g.Nodes[0].EquipmentID)
	require.False(t, g.Nodes[0].Assigned)
	require.Empty(t, g.Edges[0].EquipmentID)

	require.False(t, g.ClearBinding("SS-0007"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "n1", Kind: NodeMainBox, Label: "Main", X: 10, Y: 20}},
		Edges: []Edge{{ID: "e1", Source: "n1", Target: "n1", Connection: ConnectionCable, CableTypeID: 3}},
	}
	data, err := g.Snapshot()
	require.NoError(t, err)

	got, err := FromSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, g, got)

	_, err = FromSnapshot([]byte("{bad"))
	require.Error(t, err)
}
