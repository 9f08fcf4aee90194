package reconcile

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fieldcore/alloc"
	"fieldcore/diagram"
	"fieldcore/ledger"
	"fieldcore/messaging"
	"fieldcore/store"
)

type recordingEmitter struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    int
	cleared   []string
	conflicts []*store.Conflict
	resolved  []string
}

func (r *recordingEmitter) EmitSyncStarted(int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingEmitter) EmitSyncCompleted(int64, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingEmitter) EmitSyncFailed(int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func (r *recordingEmitter) EmitConflictDetected(c *store.Conflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, c)
}

func (r *recordingEmitter) EmitConflictResolved(_ *store.Conflict, resolution string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, resolution)
}

func (r *recordingEmitter) EmitBindingCleared(_ int64, serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, serial)
}

// lockedGraph is the minimal GraphAccess used by tests.
type lockedGraph struct {
	mu sync.Mutex
	g  *diagram.Graph
}

func (l *lockedGraph) WithGraph(fn func(g *diagram.Graph)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.g)
}

type fixture struct {
	db      *store.DB
	ledger  *ledger.Manager
	emitter *recordingEmitter
	jobA    *store.Job
	jobB    *store.Job
	item    *store.Equipment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, ledger: ledger.NewManager(db, nil), emitter: &recordingEmitter{}}
	et := &store.EquipmentType{Name: "Satellite Box", Category: "communication"}
	require.NoError(t, db.CreateEquipmentType(et))
	loc := &store.Location{Name: "Yard", Enabled: true}
	require.NoError(t, db.CreateLocation(loc))
	f.jobA = &store.Job{Name: "Job A", Client: "Acme"}
	require.NoError(t, db.CreateJob(f.jobA))
	f.jobB = &store.Job{Name: "Job B", Client: "Acme"}
	require.NoError(t, db.CreateJob(f.jobB))
	f.item = &store.Equipment{DisplayID: "SS-0007", TypeID: et.ID, LocationID: loc.ID, Serialized: true}
	require.NoError(t, db.CreateEquipment(f.item))
	return f
}

func (f *fixture) coordinatorFor(t *testing.T, jobID int64, g *diagram.Graph) (*Coordinator, *lockedGraph) {
	t.Helper()
	lg := &lockedGraph{g: g}
	c := NewCoordinator(jobID, lg, f.ledger, f.db, f.emitter, time.Hour)
	return c, lg
}

func boundGraph(serial string) *diagram.Graph {
	return &diagram.Graph{Nodes: []diagram.Node{
		{ID: "n1", Kind: diagram.NodeSatellite, EquipmentID: serial, Assigned: true},
	}}
}

func TestSyncOnceInAgreement(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.ClaimEquipment(f.item.ID, f.jobA.ID))
	c, lg := f.coordinatorFor(t, f.jobA.ID, boundGraph("SS-0007"))

	c.SyncOnce()

	require.Equal(t, SyncIdle, c.Status())
	require.False(t, c.LastSyncTime().IsZero())
	require.Equal(t, 1, f.emitter.started)
	require.Equal(t, 1, f.emitter.completed)
	lg.WithGraph(func(g *diagram.Graph) {
		require.Equal(t, "SS-0007", g.Node("n1").EquipmentID)
	})
}

func TestSyncOnceClearsStaleBinding(t *testing.T) {
	f := newFixture(t)
	// Bound locally but available in the ledger: the binding is stale.
	c, lg := f.coordinatorFor(t, f.jobA.ID, boundGraph("SS-0007"))

	c.SyncOnce()

	lg.WithGraph(func(g *diagram.Graph) {
		require.Empty(t, g.Node("n1").EquipmentID)
		require.False(t, g.Node("n1").Assigned)
	})
	require.Equal(t, []string{"SS-0007"}, f.emitter.cleared)
}

func TestSyncOnceClearsUnknownSerial(t *testing.T) {
	f := newFixture(t)
	c, lg := f.coordinatorFor(t, f.jobA.ID, boundGraph("GONE-1"))

	c.SyncOnce()

	lg.WithGraph(func(g *diagram.Graph) {
		require.Empty(t, g.Node("n1").EquipmentID)
	})
	require.Equal(t, SyncIdle, c.Status())
}

// vanishingGraph serves a bound graph on the first access and an empty graph
// afterwards, mimicking a binding removed mid-pass.
type vanishingGraph struct {
	mu    sync.Mutex
	calls int
	bound *diagram.Graph
	empty *diagram.Graph
}

func (v *vanishingGraph) WithGraph(fn func(g *diagram.Graph)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.calls == 1 {
		fn(v.bound)
		return
	}
	fn(v.empty)
}

func TestSyncOnceSkipsVanishedBinding(t *testing.T) {
	f := newFixture(t)
	vg := &vanishingGraph{bound: boundGraph("SS-0007"), empty: &diagram.Graph{}}
	c := NewCoordinator(f.jobA.ID, vg, f.ledger, f.db, f.emitter, time.Hour)

	// The serial is unclaimed in the ledger so the pass wants to clear it,
	// but the binding is gone by the time the clear runs. No cleared
	// notification should fire for a binding that was never dropped.
	c.SyncOnce()

	require.Empty(t, f.emitter.cleared)
	require.Equal(t, 1, f.emitter.completed)
	require.Equal(t, SyncIdle, c.Status())
}

func TestSyncOnceFilesConflict(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.ClaimEquipment(f.item.ID, f.jobB.ID))
	c, lg := f.coordinatorFor(t, f.jobA.ID, boundGraph("SS-0007"))

	c.SyncOnce()

	// Binding stays while the conflict is open.
	lg.WithGraph(func(g *diagram.Graph) {
		require.Equal(t, "SS-0007", g.Node("n1").EquipmentID)
	})
	require.Len(t, f.emitter.conflicts, 1)
	require.Equal(t, f.jobB.ID, f.emitter.conflicts[0].CurrentJobID)
	require.Equal(t, f.jobA.ID, f.emitter.conflicts[0].RequestedJobID)

	open, err := c.Conflicts()
	require.NoError(t, err)
	require.Len(t, open, 1)

	// A second pass dedupes against the open conflict.
	c.SyncOnce()
	open, err = c.Conflicts()
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestStartStopAndSyncNow(t *testing.T) {
	f := newFixture(t)
	c, _ := f.coordinatorFor(t, f.jobA.ID, &diagram.Graph{})
	c.Start()
	c.SyncNow()
	require.Eventually(t, func() bool {
		f.emitter.mu.Lock()
		defer f.emitter.mu.Unlock()
		return f.emitter.completed >= 1
	}, 2*time.Second, 10*time.Millisecond)
	c.Stop()
}

func newReconciler(f *fixture, jobID int64) *Reconciler {
	a := alloc.NewAllocator(f.db, f.ledger, nil, jobID, "test")
	return NewReconciler(f.db, a, f.emitter, "site-1", "fieldcore.updates")
}

func fileConflict(t *testing.T, f *fixture) *store.Conflict {
	t.Helper()
	c := &store.Conflict{
		ID:             "c-1",
		EquipmentID:    f.item.ID,
		DisplayID:      f.item.DisplayID,
		CurrentJobID:   f.jobA.ID,
		RequestedJobID: f.jobB.ID,
	}
	require.NoError(t, f.db.CreateConflict(c))
	return c
}

func TestResolveKeepCurrent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.ClaimEquipment(f.item.ID, f.jobA.ID))
	c := fileConflict(t, f)
	r := newReconciler(f, f.jobB.ID)

	// The requesting session's graph still shows the contested binding.
	g := boundGraph("SS-0007")
	require.NoError(t, r.Resolve(g, c.ID, KeepCurrent))

	// Requesting graph dropped it; the ledger claim is untouched.
	require.Empty(t, g.Node("n1").EquipmentID)
	got, err := f.db.GetEquipment(f.item.ID)
	require.NoError(t, err)
	require.Equal(t, f.jobA.ID, *got.JobID)

	resolved, err := f.db.GetConflict(c.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.Equal(t, string(KeepCurrent), resolved.Resolution)
	require.Equal(t, []string{string(KeepCurrent)}, f.emitter.resolved)

	// Resolving twice is refused.
	require.Error(t, r.Resolve(g, c.ID, KeepCurrent))
}

func TestResolveMoveToRequested(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.ClaimEquipment(f.item.ID, f.jobA.ID))

	// Persist the losing job's diagram with the contested binding.
	losing, err := boundGraph("SS-0007").Snapshot()
	require.NoError(t, err)
	require.NoError(t, f.db.SaveDiagram(f.jobA.ID, losing))

	c := fileConflict(t, f)
	r := newReconciler(f, f.jobB.ID)

	g := boundGraph("SS-0007")
	require.NoError(t, r.Resolve(g, c.ID, MoveToRequested))

	// Claim moved to the requesting job.
	got, err := f.db.GetEquipment(f.item.ID)
	require.NoError(t, err)
	require.Equal(t, f.jobB.ID, *got.JobID)
	require.Equal(t, "deployed", got.Status)

	// Losing job's stored diagram no longer advertises the claim.
	rec, err := f.db.GetDiagram(f.jobA.ID)
	require.NoError(t, err)
	stored, err := diagram.FromSnapshot(rec.Snapshot)
	require.NoError(t, err)
	require.Nil(t, stored.FindBinding("SS-0007"))

	// Loser notification is queued for the drainer.
	pending, err := f.db.ListPendingOutbox(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, fmt.Sprintf("fieldcore.updates.job-%d", f.jobA.ID), pending[0].Topic)
	env, err := messaging.Decode(pending[0].Payload)
	require.NoError(t, err)
	require.Equal(t, messaging.KindEquipmentReleased, env.Kind)
	require.Equal(t, "site-1", env.SiteID)
}

func TestResolveRejectsUnknownResolution(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.ClaimEquipment(f.item.ID, f.jobA.ID))
	c := fileConflict(t, f)
	r := newReconciler(f, f.jobB.ID)

	require.Error(t, r.Resolve(&diagram.Graph{}, c.ID, Resolution("split")))
	require.Error(t, r.Resolve(&diagram.Graph{}, "missing-id", KeepCurrent))
}
