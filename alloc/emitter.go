package alloc

import "fieldcore/store"

// Emitter is the interface adapters must satisfy to bridge allocation events
// to the engine.
type Emitter interface {
	EmitEquipmentAllocated(equipmentID int64, serial, targetID string, jobID int64)
	EmitEquipmentReleased(equipmentID int64, serial, targetID string, jobID int64)
	EmitConflictDetected(conflict *store.Conflict)
	EmitLedgerError(op, serial string, err error)
}

type noopEmitter struct{}

func (noopEmitter) EmitEquipmentAllocated(int64, string, string, int64) {}
func (noopEmitter) EmitEquipmentReleased(int64, string, string, int64)  {}
func (noopEmitter) EmitConflictDetected(*store.Conflict)                {}
func (noopEmitter) EmitLedgerError(string, string, error)               {}
