package reconcile

import "fieldcore/store"

// Emitter bridges sync and resolution events to the engine.
type Emitter interface {
	EmitSyncStarted(jobID int64)
	EmitSyncCompleted(jobID int64, cleared, conflicts int)
	EmitSyncFailed(jobID int64, err error)
	EmitConflictDetected(conflict *store.Conflict)
	EmitConflictResolved(conflict *store.Conflict, resolution string)
	EmitBindingCleared(jobID int64, serial string)
}

type noopEmitter struct{}

func (noopEmitter) EmitSyncStarted(int64)                    {}
func (noopEmitter) EmitSyncCompleted(int64, int, int)        {}
func (noopEmitter) EmitSyncFailed(int64, error)              {}
func (noopEmitter) EmitConflictDetected(*store.Conflict)     {}
func (noopEmitter) EmitConflictResolved(*store.Conflict, string) {}
func (noopEmitter) EmitBindingCleared(int64, string)         {}
