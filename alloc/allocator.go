// Package alloc is the only place that mutates ledger status and job-claim
// fields. Every transition writes one history entry; failures come back as
// false results, never panics or escaped errors.
package alloc

import (
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"

	"fieldcore/diagram"
	"fieldcore/ledger"
	"fieldcore/store"
)

const (
	ActionDeployed   = "Deployed"
	ActionReturned   = "Returned"
	ActionReassigned = "Reassigned"
)

// Outcome reports an allocation attempt. A nil Conflict with OK=false means
// the operation failed for a non-conflict reason (already logged/emitted).
type Outcome struct {
	OK       bool
	Conflict *store.Conflict
}

// Allocator binds serialized equipment to diagram nodes and edges for one
// job. Construct one per job session.
type Allocator struct {
	db      *store.DB
	ledger  *ledger.Manager
	emitter Emitter
	jobID   int64
	actor   string
	logFn   func(format string, args ...any)
}

func NewAllocator(db *store.DB, lm *ledger.Manager, emitter Emitter, jobID int64, actor string) *Allocator {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Allocator{
		db:      db,
		ledger:  lm,
		emitter: emitter,
		jobID:   jobID,
		actor:   actor,
		logFn:   log.Printf,
	}
}

func (a *Allocator) JobID() int64 { return a.jobID }

// AllocateToNode claims a serial for this job and binds it to a node.
// Re-running the same binding is a no-op success; a foreign claim produces a
// Conflict instead of a silent overwrite.
func (a *Allocator) AllocateToNode(g *diagram.Graph, nodeID, serial string) Outcome {
	node := g.Node(nodeID)
	if node == nil {
		a.logFn("alloc: node %s not in graph", nodeID)
		return Outcome{}
	}
	out := a.allocate(g, serial, nodeID)
	if out.OK {
		node.EquipmentID = serial
		node.Assigned = true
	}
	return out
}

// AllocateCableToEdge is the edge variant of AllocateToNode.
func (a *Allocator) AllocateCableToEdge(g *diagram.Graph, edgeID, serial string) Outcome {
	edge := g.Edge(edgeID)
	if edge == nil {
		a.logFn("alloc: edge %s not in graph", edgeID)
		return Outcome{}
	}
	if edge.Connection == diagram.ConnectionDirect {
		a.logFn("alloc: edge %s is a direct connection, no cable needed", edgeID)
		return Outcome{}
	}
	out := a.allocate(g, serial, edgeID)
	if out.OK {
		edge.EquipmentID = serial
	}
	return out
}

func (a *Allocator) allocate(g *diagram.Graph, serial, targetID string) Outcome {
	item, err := a.ledger.GetBySerialFresh(serial)
	if err != nil {
		a.logFn("alloc: lookup %s: %v", serial, err)
		a.emitter.EmitLedgerError("allocate", serial, err)
		return Outcome{}
	}

	// Idempotency guard: already bound somewhere in this graph.
	if b := g.FindBinding(serial); b != nil {
		if b.NodeID == targetID || b.EdgeID == targetID {
			if item.JobID != nil && *item.JobID == a.jobID {
				return Outcome{OK: true}
			}
		} else {
			a.logFn("alloc: %s already bound elsewhere in this diagram", serial)
			return Outcome{}
		}
	}

	if item.JobID != nil && *item.JobID != a.jobID {
		return Outcome{Conflict: a.fileConflict(item)}
	}

	prev := *item
	if err := a.ledger.Claim(item.ID, a.jobID); err != nil {
		// The optimistic claim lost a race: re-read and report the winner.
		fresh, ferr := a.ledger.GetBySerialFresh(serial)
		if ferr == nil && fresh.JobID != nil && *fresh.JobID != a.jobID {
			return Outcome{Conflict: a.fileConflict(fresh)}
		}
		a.logFn("alloc: claim %s: %v", serial, err)
		a.emitter.EmitLedgerError("allocate", serial, err)
		return Outcome{}
	}

	a.appendHistory(&store.HistoryEntry{
		EquipmentID: item.ID,
		Action:      ActionDeployed,
		FromStatus:  prev.Status,
		ToStatus:    string(ledger.StatusDeployed),
		FromJobID:   prev.JobID,
		ToJobID:     &a.jobID,
		Actor:       a.actor,
	})
	a.emitter.EmitEquipmentAllocated(item.ID, serial, targetID, a.jobID)
	return Outcome{OK: true}
}

// DeallocateFromNode releases whatever the node holds. Calling it on an
// unbound node is a no-op returning false.
func (a *Allocator) DeallocateFromNode(g *diagram.Graph, nodeID string) bool {
	node := g.Node(nodeID)
	if node == nil || node.EquipmentID == "" {
		return false
	}
	serial := node.EquipmentID
	if !a.release(serial, nodeID) {
		return false
	}
	node.EquipmentID = ""
	node.Assigned = false
	return true
}

// DeallocateCableFromEdge is the edge variant of DeallocateFromNode.
func (a *Allocator) DeallocateCableFromEdge(g *diagram.Graph, edgeID string) bool {
	edge := g.Edge(edgeID)
	if edge == nil || edge.EquipmentID == "" {
		return false
	}
	serial := edge.EquipmentID
	if !a.release(serial, edgeID) {
		return false
	}
	edge.EquipmentID = ""
	return true
}

func (a *Allocator) release(serial, targetID string) bool {
	item, err := a.ledger.GetBySerialFresh(serial)
	if errors.Is(err, sql.ErrNoRows) {
		// Stale local reference; clearing the binding is all there is to do.
		a.logFn("alloc: release %s: not in ledger, clearing binding", serial)
		return true
	}
	if err != nil {
		a.logFn("alloc: release lookup %s: %v", serial, err)
		a.emitter.EmitLedgerError("deallocate", serial, err)
		return false
	}
	prev := *item
	if err := a.ledger.Release(item.ID); err != nil {
		a.logFn("alloc: release %s: %v", serial, err)
		a.emitter.EmitLedgerError("deallocate", serial, err)
		return false
	}
	a.appendHistory(&store.HistoryEntry{
		EquipmentID: item.ID,
		Action:      ActionReturned,
		FromStatus:  prev.Status,
		ToStatus:    string(ledger.StatusAvailable),
		FromJobID:   prev.JobID,
		Actor:       a.actor,
	})
	a.emitter.EmitEquipmentReleased(item.ID, serial, targetID, a.jobID)
	return true
}

// Reassign moves a claim to another job. Reserved for the conflict
// reconciler's move-to-requested resolution.
func (a *Allocator) Reassign(serial string, toJobID int64) bool {
	item, err := a.ledger.GetBySerialFresh(serial)
	if err != nil {
		a.logFn("alloc: reassign lookup %s: %v", serial, err)
		a.emitter.EmitLedgerError("reassign", serial, err)
		return false
	}
	prev := *item
	if err := a.ledger.Reassign(item.ID, toJobID); err != nil {
		a.logFn("alloc: reassign %s: %v", serial, err)
		a.emitter.EmitLedgerError("reassign", serial, err)
		return false
	}
	a.appendHistory(&store.HistoryEntry{
		EquipmentID: item.ID,
		Action:      ActionReassigned,
		FromStatus:  prev.Status,
		ToStatus:    string(ledger.StatusDeployed),
		FromJobID:   prev.JobID,
		ToJobID:     &toJobID,
		Actor:       a.actor,
	})
	return true
}

func (a *Allocator) fileConflict(item *store.Equipment) *store.Conflict {
	c := &store.Conflict{
		ID:             uuid.New().String(),
		EquipmentID:    item.ID,
		DisplayID:      item.DisplayID,
		CurrentJobID:   *item.JobID,
		RequestedJobID: a.jobID,
	}
	// Reuse an open conflict for the same pair rather than filing duplicates.
	if existing, err := a.db.GetOpenConflict(item.ID, c.CurrentJobID, c.RequestedJobID); err == nil {
		return existing
	}
	if err := a.db.CreateConflict(c); err != nil {
		a.logFn("alloc: record conflict for %s: %v", item.DisplayID, err)
	}
	if cur, err := a.db.GetJob(c.CurrentJobID); err == nil {
		c.CurrentJobName = cur.Name
	}
	if req, err := a.db.GetJob(c.RequestedJobID); err == nil {
		c.RequestedJobName = req.Name
	}
	a.emitter.EmitConflictDetected(c)
	return c
}

// appendHistory is fire-and-forget: the allocation path never blocks on, or
// fails because of, the history store.
func (a *Allocator) appendHistory(h *store.HistoryEntry) {
	go func() {
		if err := a.db.AppendHistory(h); err != nil {
			a.logFn("alloc: history for equipment %d: %v", h.EquipmentID, err)
		}
	}()
}
