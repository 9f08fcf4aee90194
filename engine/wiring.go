package engine

import (
	"fmt"

	"fieldcore/messaging"
	"fieldcore/reconcile"
)

func (e *Engine) wireEventHandlers() {
	// When a conflict is filed, queue a cross-session notice and raise a toast.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConflictDetectedEvent)
		c := ev.Conflict
		e.logFn("engine: conflict on %s: job %d holds, job %d wants", c.DisplayID, c.CurrentJobID, c.RequestedJobID)

		jobKey := fmt.Sprintf("job-%d", c.CurrentJobID)
		env := messaging.NewEnvelope(messaging.KindConflictDetected, jobKey, e.cfg.SiteID, messaging.ConflictDetected{
			ConflictID:     c.ID,
			Serial:         c.DisplayID,
			CurrentJobID:   c.CurrentJobID,
			RequestedJobID: c.RequestedJobID,
		})
		data, err := env.Encode()
		if err != nil {
			e.logFn("engine: encode conflict notice: %v", err)
		} else {
			topic := messaging.UpdatesTopic(e.cfg.Messaging.UpdatesTopicPrefix, jobKey)
			if err := e.db.EnqueueOutbox(topic, data, messaging.KindConflictDetected, jobKey); err != nil {
				e.logFn("engine: enqueue conflict notice: %v", err)
			}
		}

		e.notify("warning", fmt.Sprintf("Equipment %s is claimed by %s and requested by %s", c.DisplayID, c.CurrentJobName, c.RequestedJobName))
	}, EventConflictDetected)

	// Resolved conflicts: when the claim moved, the losing session (if open)
	// must drop the binding from its live graph too, or its next sync pass
	// would file the mirror-image conflict instead of clearing it.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConflictResolvedEvent)
		c := ev.Conflict
		e.logFn("engine: conflict %s resolved (%s)", c.ID, ev.Resolution)
		if ev.Resolution == string(reconcile.MoveToRequested) {
			if s := e.Session(c.CurrentJobID); s != nil && s.dropBinding(c.DisplayID) {
				e.Events.Emit(Event{Type: EventBindingCleared, Payload: BindingClearedEvent{
					JobID:  c.CurrentJobID,
					Serial: c.DisplayID,
				}})
			}
		}
		e.notify("info", fmt.Sprintf("Conflict on %s resolved: %s", c.DisplayID, ev.Resolution))
	}, EventConflictResolved)

	// Stale bindings cleared during sync are worth telling the user about.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(BindingClearedEvent)
		e.logFn("engine: job %d binding for %s cleared", ev.JobID, ev.Serial)
		e.notify("info", fmt.Sprintf("Equipment %s was released elsewhere; its assignment was cleared", ev.Serial))
	}, EventBindingCleared)

	// Sync failures surface as non-blocking toasts; the coordinator retries
	// on its own schedule.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SyncFailedEvent)
		e.logFn("engine: sync failed for job %d: %s", ev.JobID, ev.Detail)
		e.notify("error", "Equipment sync failed; will retry")
	}, EventSyncFailed)

	// Ledger write failures already returned false to the caller; the toast
	// is the user-facing half of that contract.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(LedgerErrorEvent)
		e.logFn("engine: ledger %s for %s: %s", ev.Op, ev.Serial, ev.Detail)
		e.notify("error", fmt.Sprintf("Could not %s %s; no changes were made", ev.Op, ev.Serial))
	}, EventLedgerError)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(EquipmentAllocatedEvent)
		e.logFn("engine: %s deployed to job %d (%s)", ev.Serial, ev.JobID, ev.TargetID)
	}, EventEquipmentAllocated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(EquipmentReleasedEvent)
		e.logFn("engine: %s returned from job %d", ev.Serial, ev.JobID)
	}, EventEquipmentReleased)
}

func (e *Engine) notify(severity, message string) {
	e.Events.Emit(Event{Type: EventNotification, Payload: NotificationEvent{Severity: severity, Message: message}})
}
