package engine

import "fieldcore/store"

// allocEmitter bridges the alloc package's emitter interface to the EventBus.
type allocEmitter struct {
	bus *EventBus
}

func (e *allocEmitter) EmitEquipmentAllocated(equipmentID int64, serial, targetID string, jobID int64) {
	e.bus.Emit(Event{Type: EventEquipmentAllocated, Payload: EquipmentAllocatedEvent{
		EquipmentID: equipmentID,
		Serial:      serial,
		TargetID:    targetID,
		JobID:       jobID,
	}})
}

func (e *allocEmitter) EmitEquipmentReleased(equipmentID int64, serial, targetID string, jobID int64) {
	e.bus.Emit(Event{Type: EventEquipmentReleased, Payload: EquipmentReleasedEvent{
		EquipmentID: equipmentID,
		Serial:      serial,
		TargetID:    targetID,
		JobID:       jobID,
	}})
}

func (e *allocEmitter) EmitConflictDetected(conflict *store.Conflict) {
	e.bus.Emit(Event{Type: EventConflictDetected, Payload: ConflictDetectedEvent{Conflict: conflict}})
}

func (e *allocEmitter) EmitLedgerError(op, serial string, err error) {
	e.bus.Emit(Event{Type: EventLedgerError, Payload: LedgerErrorEvent{Op: op, Serial: serial, Detail: err.Error()}})
}

// syncEmitter bridges the reconcile package's emitter interface to the EventBus.
type syncEmitter struct {
	bus *EventBus
}

func (e *syncEmitter) EmitSyncStarted(jobID int64) {
	e.bus.Emit(Event{Type: EventSyncStarted, Payload: SyncStartedEvent{JobID: jobID}})
}

func (e *syncEmitter) EmitSyncCompleted(jobID int64, cleared, conflicts int) {
	e.bus.Emit(Event{Type: EventSyncCompleted, Payload: SyncCompletedEvent{JobID: jobID, Cleared: cleared, Conflicts: conflicts}})
}

func (e *syncEmitter) EmitSyncFailed(jobID int64, err error) {
	e.bus.Emit(Event{Type: EventSyncFailed, Payload: SyncFailedEvent{JobID: jobID, Detail: err.Error()}})
}

func (e *syncEmitter) EmitConflictDetected(conflict *store.Conflict) {
	e.bus.Emit(Event{Type: EventConflictDetected, Payload: ConflictDetectedEvent{Conflict: conflict}})
}

func (e *syncEmitter) EmitConflictResolved(conflict *store.Conflict, resolution string) {
	e.bus.Emit(Event{Type: EventConflictResolved, Payload: ConflictResolvedEvent{Conflict: conflict, Resolution: resolution}})
}

func (e *syncEmitter) EmitBindingCleared(jobID int64, serial string) {
	e.bus.Emit(Event{Type: EventBindingCleared, Payload: BindingClearedEvent{JobID: jobID, Serial: serial}})
}
