package validate

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/diagram"
	"fieldcore/store"
	"fieldcore/usage"
)

// fakeLedger is an in-memory LedgerReader: items by serial, bulk stock by
// (typeID, locationID).
type fakeLedger struct {
	items map[string]*store.Equipment
	stock map[int64]map[int64]float64
}

func (f *fakeLedger) GetBySerial(displayID string) (*store.Equipment, error) {
	e, ok := f.items[displayID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeLedger) AvailableQuantity(typeID, locationID int64) (float64, error) {
	return f.stock[typeID][locationID], nil
}

func (f *fakeLedger) AvailableQuantityElsewhere(typeID, excludeLocationID int64) (float64, error) {
	var total float64
	for loc, qty := range f.stock[typeID] {
		if loc != excludeLocationID {
			total += qty
		}
	}
	return total, nil
}

func usageWith(serials map[string]diagram.Binding, cables map[int64]*usage.CableDemand) *usage.Usage {
	if serials == nil {
		serials = map[string]diagram.Binding{}
	}
	if cables == nil {
		cables = map[int64]*usage.CableDemand{}
	}
	return &usage.Usage{
		Cables:     cables,
		Categories: map[string]int{},
		Individual: serials,
	}
}

func TestCheckAllGood(t *testing.T) {
	lr := &fakeLedger{
		items: map[string]*store.Equipment{
			"SS-0007": {DisplayID: "SS-0007", Status: "available", LocationID: 1},
		},
		stock: map[int64]map[int64]float64{10: {1: 5}},
	}
	u := usageWith(
		map[string]diagram.Binding{"SS-0007": {Serial: "SS-0007", NodeID: "n1"}},
		map[int64]*usage.CableDemand{10: {TypeID: 10, TypeName: "200ft Cable", Quantity: 3}},
	)

	r := Check(u, lr, 1)
	require.True(t, r.IsValid)
	require.True(t, r.CanProceed)
	require.Empty(t, r.Issues)
}

func TestCheckMissingSerialBlocks(t *testing.T) {
	lr := &fakeLedger{items: map[string]*store.Equipment{}}
	u := usageWith(map[string]diagram.Binding{"GHOST-1": {Serial: "GHOST-1", NodeID: "n1"}}, nil)

	r := Check(u, lr, 1)
	require.False(t, r.IsValid)
	require.False(t, r.CanProceed)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueError, r.Issues[0].Type)
	assert.Equal(t, CategoryMissing, r.Issues[0].Category)
	assert.Equal(t, "GHOST-1", r.Issues[0].EquipmentID)
}

func TestCheckWrongLocationWarns(t *testing.T) {
	lr := &fakeLedger{
		items: map[string]*store.Equipment{
			"SS-0007": {DisplayID: "SS-0007", Status: "available", LocationID: 2},
		},
	}
	u := usageWith(map[string]diagram.Binding{"SS-0007": {Serial: "SS-0007", NodeID: "n1"}}, nil)

	r := Check(u, lr, 1)
	require.True(t, r.CanProceed)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueWarning, r.Issues[0].Type)
	assert.Equal(t, CategoryLocation, r.Issues[0].Category)
}

func TestCheckStatusGrading(t *testing.T) {
	lr := &fakeLedger{
		items: map[string]*store.Equipment{
			"MAINT-1": {DisplayID: "MAINT-1", Status: "maintenance", LocationID: 1},
			"RED-1":   {DisplayID: "RED-1", Status: "red-tagged", LocationID: 1},
			"DEP-1":   {DisplayID: "DEP-1", Status: "deployed", LocationID: 1},
		},
	}
	u := usageWith(map[string]diagram.Binding{
		"MAINT-1": {Serial: "MAINT-1", NodeID: "n1"},
		"RED-1":   {Serial: "RED-1", NodeID: "n2"},
		"DEP-1":   {Serial: "DEP-1", NodeID: "n3"},
	}, nil)

	r := Check(u, lr, 1)
	require.Len(t, r.Issues, 3)
	// Red-tagged blocks; maintenance and deployed only warn.
	require.False(t, r.CanProceed)

	byID := map[string]Issue{}
	for _, issue := range r.Issues {
		byID[issue.EquipmentID] = issue
	}
	assert.Equal(t, IssueWarning, byID["MAINT-1"].Type)
	assert.Equal(t, IssueWarning, byID["DEP-1"].Type)
	assert.Equal(t, IssueError, byID["RED-1"].Type)
	assert.Equal(t, CategoryStatus, byID["RED-1"].Category)
}

func TestCheckBulkShortfallCoveredElsewhere(t *testing.T) {
	// Need 5 at L1: 3 on hand, 4 at L2. Covered overall, so it warns.
	lr := &fakeLedger{stock: map[int64]map[int64]float64{10: {1: 3, 2: 4}}}
	u := usageWith(nil, map[int64]*usage.CableDemand{
		10: {TypeID: 10, TypeName: "200ft Cable", Quantity: 5},
	})

	r := Check(u, lr, 1)
	require.True(t, r.CanProceed)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueWarning, r.Issues[0].Type)
	assert.Equal(t, CategoryQuantity, r.Issues[0].Category)
}

func TestCheckBulkShortfallEverywhere(t *testing.T) {
	lr := &fakeLedger{stock: map[int64]map[int64]float64{10: {1: 1, 2: 1}}}
	u := usageWith(nil, map[int64]*usage.CableDemand{
		10: {TypeID: 10, TypeName: "200ft Cable", Quantity: 5},
	})

	r := Check(u, lr, 1)
	require.False(t, r.CanProceed)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueError, r.Issues[0].Type)
	assert.Equal(t, CategoryQuantity, r.Issues[0].Category)
}

func TestCheckAccumulatesAllIssues(t *testing.T) {
	lr := &fakeLedger{
		items: map[string]*store.Equipment{
			"RED-1": {DisplayID: "RED-1", Status: "red-tagged", LocationID: 2},
		},
		stock: map[int64]map[int64]float64{10: {}},
	}
	u := usageWith(
		map[string]diagram.Binding{
			"RED-1":   {Serial: "RED-1", NodeID: "n1"},
			"GHOST-1": {Serial: "GHOST-1", NodeID: "n2"},
		},
		map[int64]*usage.CableDemand{10: {TypeID: 10, TypeName: "200ft Cable", Quantity: 2}},
	)

	r := Check(u, lr, 1)
	// Wrong location + bad status for RED-1, missing GHOST-1, cable shortfall.
	require.Len(t, r.Issues, 4)
	require.False(t, r.IsValid)
}
