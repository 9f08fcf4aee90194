// Package reconcile keeps a job session's diagram consistent with the
// equipment ledger: the sync coordinator detects divergence, and the
// reconciler resolves double-claim conflicts.
package reconcile

import (
	"fmt"
	"log"

	"fieldcore/alloc"
	"fieldcore/diagram"
	"fieldcore/messaging"
	"fieldcore/store"
)

type Resolution string

const (
	// KeepCurrent leaves the ledger alone; the requesting diagram drops its binding.
	KeepCurrent Resolution = "keep-current"
	// MoveToRequested reassigns the claim and strips the losing diagram's binding.
	MoveToRequested Resolution = "move-to-requested"
)

func (r Resolution) Valid() bool {
	return r == KeepCurrent || r == MoveToRequested
}

// Reconciler resolves equipment conflicts for one job session. The session's
// allocator performs the ledger mutation so history stays centralized.
type Reconciler struct {
	db          *store.DB
	alloc       *alloc.Allocator
	emitter     Emitter
	siteID      string
	topicPrefix string
	logFn       func(format string, args ...any)
}

func NewReconciler(db *store.DB, allocator *alloc.Allocator, emitter Emitter, siteID, topicPrefix string) *Reconciler {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Reconciler{
		db:          db,
		alloc:       allocator,
		emitter:     emitter,
		siteID:      siteID,
		topicPrefix: topicPrefix,
		logFn:       log.Printf,
	}
}

// Resolve applies one of the two terminal resolutions to an open conflict.
// g is the requesting session's live graph.
func (r *Reconciler) Resolve(g *diagram.Graph, conflictID string, res Resolution) error {
	if !res.Valid() {
		return fmt.Errorf("unknown resolution: %s", res)
	}
	c, err := r.db.GetConflict(conflictID)
	if err != nil {
		return fmt.Errorf("load conflict: %w", err)
	}
	if c.ResolvedAt != nil {
		return fmt.Errorf("conflict %s already resolved (%s)", conflictID, c.Resolution)
	}

	switch res {
	case KeepCurrent:
		if g.ClearBinding(c.DisplayID) {
			r.emitter.EmitBindingCleared(c.RequestedJobID, c.DisplayID)
		}
	case MoveToRequested:
		if !r.alloc.Reassign(c.DisplayID, c.RequestedJobID) {
			return fmt.Errorf("reassign %s to job %d failed", c.DisplayID, c.RequestedJobID)
		}
		if err := r.clearLosingBinding(c); err != nil {
			r.logFn("reconcile: clear losing binding for %s: %v", c.DisplayID, err)
		}
		r.notifyLoser(c)
	}

	if err := r.db.MarkConflictResolved(c.ID, string(res)); err != nil {
		return fmt.Errorf("mark resolved: %w", err)
	}
	r.emitter.EmitConflictResolved(c, string(res))
	return nil
}

// clearLosingBinding strips the serial from the losing job's persisted
// diagram. That session also discovers the loss on its next sync pass; this
// just keeps the stored snapshot from advertising a claim it no longer has.
func (r *Reconciler) clearLosingBinding(c *store.Conflict) error {
	rec, err := r.db.GetDiagram(c.CurrentJobID)
	if err != nil {
		return err
	}
	g, err := diagram.FromSnapshot(rec.Snapshot)
	if err != nil {
		return err
	}
	if !g.ClearBinding(c.DisplayID) {
		return nil
	}
	snapshot, err := g.Snapshot()
	if err != nil {
		return err
	}
	if err := r.db.SaveDiagram(c.CurrentJobID, snapshot); err != nil {
		return err
	}
	r.emitter.EmitBindingCleared(c.CurrentJobID, c.DisplayID)
	return nil
}

// notifyLoser queues an equipment.released envelope on the losing job's
// update topic. Delivery is best effort; the loser's sync pass is the
// authoritative discovery path.
func (r *Reconciler) notifyLoser(c *store.Conflict) {
	jobKey := fmt.Sprintf("job-%d", c.CurrentJobID)
	env := messaging.NewEnvelope(messaging.KindEquipmentReleased, jobKey, r.siteID, messaging.EquipmentReleased{
		Serial:    c.DisplayID,
		FromJobID: c.CurrentJobID,
		ToJobID:   c.RequestedJobID,
		Reason:    "conflict resolved: move-to-requested",
	})
	data, err := env.Encode()
	if err != nil {
		r.logFn("reconcile: encode release notice: %v", err)
		return
	}
	topic := messaging.UpdatesTopic(r.topicPrefix, jobKey)
	if err := r.db.EnqueueOutbox(topic, data, messaging.KindEquipmentReleased, jobKey); err != nil {
		r.logFn("reconcile: enqueue release notice: %v", err)
	}
}
