package engine

import "fieldcore/store"

const (
	EventEquipmentAllocated EventType = iota + 1
	EventEquipmentReleased
	EventConflictDetected
	EventConflictResolved
	EventBindingCleared
	EventSyncStarted
	EventSyncCompleted
	EventSyncFailed
	EventDiagramSaved
	EventNotification
	EventLedgerError
)

// --- Event payloads ---

type EquipmentAllocatedEvent struct {
	EquipmentID int64
	Serial      string
	TargetID    string
	JobID       int64
}

type EquipmentReleasedEvent struct {
	EquipmentID int64
	Serial      string
	TargetID    string
	JobID       int64
}

type ConflictDetectedEvent struct {
	Conflict *store.Conflict
}

type ConflictResolvedEvent struct {
	Conflict   *store.Conflict
	Resolution string
}

type BindingClearedEvent struct {
	JobID  int64
	Serial string
}

type SyncStartedEvent struct {
	JobID int64
}

type SyncCompletedEvent struct {
	JobID     int64
	Cleared   int
	Conflicts int
}

type SyncFailedEvent struct {
	JobID  int64
	Detail string
}

type DiagramSavedEvent struct {
	JobID  int64
	Reason string
}

// NotificationEvent feeds the toast channel. Severity is "info", "warning"
// or "error".
type NotificationEvent struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type LedgerErrorEvent struct {
	Op     string
	Serial string
	Detail string
}
