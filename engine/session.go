package engine

import (
	"fmt"
	"sync"
	"time"

	"fieldcore/alloc"
	"fieldcore/diagram"
	"fieldcore/reconcile"
	"fieldcore/saver"
	"fieldcore/store"
	"fieldcore/usage"
	"fieldcore/validate"
)

// Session is one job's editing context: the live graph plus its own
// allocator, reconciler and sync coordinator. The save coordinator is shared
// engine-wide and injected.
type Session struct {
	jobID  int64
	job    *store.Job
	engine *Engine

	mu    sync.Mutex
	graph *diagram.Graph

	allocator  *alloc.Allocator
	reconciler *reconcile.Reconciler
	syncer     *reconcile.Coordinator
}

// WithGraph runs fn with the graph lock held.
func (s *Session) WithGraph(fn func(g *diagram.Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
}

func (s *Session) JobID() int64    { return s.jobID }
func (s *Session) Job() *store.Job { return s.job }

// Snapshot returns the current graph serialized, taken under the lock.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot()
}

// UpdateGraph replaces the whole graph (the editor pushes full snapshots on
// structural edits) and schedules a save.
func (s *Session) UpdateGraph(snapshot []byte) error {
	g, err := diagram.FromSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("parse graph: %w", err)
	}
	for _, n := range g.Nodes {
		if !n.Kind.Valid() {
			return fmt.Errorf("unknown node kind: %s", n.Kind)
		}
	}
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
	s.RequestSave("graph edit", saver.PriorityNormal)
	return nil
}

// AllocateToNode binds a serial to a node and, on success, schedules a save
// and a sync pass.
func (s *Session) AllocateToNode(nodeID, serial string) alloc.Outcome {
	s.mu.Lock()
	out := s.allocator.AllocateToNode(s.graph, nodeID, serial)
	s.mu.Unlock()
	if out.OK {
		s.RequestSave("allocate "+serial, saver.PriorityHigh)
		s.syncer.SyncNow()
	}
	return out
}

func (s *Session) DeallocateFromNode(nodeID string) bool {
	s.mu.Lock()
	ok := s.allocator.DeallocateFromNode(s.graph, nodeID)
	s.mu.Unlock()
	if ok {
		s.RequestSave("deallocate node "+nodeID, saver.PriorityHigh)
		s.syncer.SyncNow()
	}
	return ok
}

func (s *Session) AllocateCableToEdge(edgeID, serial string) alloc.Outcome {
	s.mu.Lock()
	out := s.allocator.AllocateCableToEdge(s.graph, edgeID, serial)
	s.mu.Unlock()
	if out.OK {
		s.RequestSave("allocate cable "+serial, saver.PriorityHigh)
		s.syncer.SyncNow()
	}
	return out
}

func (s *Session) DeallocateCableFromEdge(edgeID string) bool {
	s.mu.Lock()
	ok := s.allocator.DeallocateCableFromEdge(s.graph, edgeID)
	s.mu.Unlock()
	if ok {
		s.RequestSave("deallocate edge "+edgeID, saver.PriorityHigh)
		s.syncer.SyncNow()
	}
	return ok
}

// Usage derives the diagram's current equipment demand.
func (s *Session) Usage() (*usage.Usage, error) {
	types, err := s.engine.db.ListEquipmentTypes()
	if err != nil {
		return nil, err
	}
	typeNames := make(map[int64]string, len(types))
	defaultCable := int64(0)
	for _, t := range types {
		typeNames[t.ID] = t.Name
		if defaultCable == 0 && t.Category == "cable" {
			defaultCable = t.ID
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return usage.Analyze(s.graph, typeNames, defaultCable), nil
}

// Validate checks current demand against the ledger for a target location.
func (s *Session) Validate(targetLocationID int64) (*validate.Result, error) {
	u, err := s.Usage()
	if err != nil {
		return nil, err
	}
	return validate.Check(u, s.engine.ledger, targetLocationID), nil
}

// ResolveConflict applies a resolution and persists the outcome.
func (s *Session) ResolveConflict(conflictID string, res reconcile.Resolution) error {
	s.mu.Lock()
	err := s.reconciler.Resolve(s.graph, conflictID, res)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.RequestSave("conflict "+conflictID, saver.PriorityHigh)
	s.syncer.SyncNow()
	return nil
}

func (s *Session) Conflicts() ([]*store.Conflict, error) {
	return s.syncer.Conflicts()
}

func (s *Session) SyncStatus() reconcile.SyncStatus { return s.syncer.Status() }
func (s *Session) LastSyncTime() time.Time          { return s.syncer.LastSyncTime() }
func (s *Session) SyncNow()                         { s.syncer.SyncNow() }

// RequestSave snapshots the graph and hands it to the save coordinator.
func (s *Session) RequestSave(reason string, priority saver.Priority) {
	snapshot, err := s.Snapshot()
	if err != nil {
		s.engine.logFn("engine: snapshot job %d: %v", s.jobID, err)
		return
	}
	s.engine.saver.RequestSave(s.jobID, snapshot, reason, priority)
}

// dropBinding removes a serial whose claim moved to another job, then
// persists the graph and re-verifies against the ledger on the next sync pass.
func (s *Session) dropBinding(serial string) bool {
	s.mu.Lock()
	cleared := s.graph.ClearBinding(serial)
	s.mu.Unlock()
	if !cleared {
		return false
	}
	s.RequestSave("release "+serial, saver.PriorityHigh)
	s.syncer.SyncNow()
	return true
}

func (s *Session) close() {
	s.syncer.Stop()
	s.engine.saver.Flush(s.jobID)
}
