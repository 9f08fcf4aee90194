package reconcile

import (
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldcore/diagram"
	"fieldcore/ledger"
	"fieldcore/store"
)

type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// GraphAccess serializes access to a session's live graph.
type GraphAccess interface {
	WithGraph(fn func(g *diagram.Graph))
}

// Coordinator reconciles one job session's graph against the ledger on a
// fixed interval, on demand, and after allocator mutations. A failed pass
// keeps the prior local state and retries on the next tick; there is no
// backoff.
type Coordinator struct {
	jobID   int64
	graph   GraphAccess
	ledger  *ledger.Manager
	db      *store.DB
	emitter Emitter
	logFn   func(format string, args ...any)

	interval time.Duration
	stopChan chan struct{}
	kickChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	status   SyncStatus
	lastSync time.Time
}

func NewCoordinator(jobID int64, graph GraphAccess, lm *ledger.Manager, db *store.DB, emitter Emitter, interval time.Duration) *Coordinator {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Coordinator{
		jobID:    jobID,
		graph:    graph,
		ledger:   lm,
		db:       db,
		emitter:  emitter,
		logFn:    log.Printf,
		interval: interval,
		stopChan: make(chan struct{}),
		kickChan: make(chan struct{}, 1),
		status:   SyncIdle,
	}
}

func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.loop()
}

func (c *Coordinator) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

// SyncNow requests an immediate pass without blocking. Multiple requests
// while a pass is queued collapse into one.
func (c *Coordinator) SyncNow() {
	select {
	case c.kickChan <- struct{}{}:
	default:
	}
}

func (c *Coordinator) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) LastSyncTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Conflicts returns the open conflicts touching this job.
func (c *Coordinator) Conflicts() ([]*store.Conflict, error) {
	return c.db.ListOpenConflictsForJob(c.jobID)
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.SyncOnce()
		case <-c.kickChan:
			c.SyncOnce()
		}
	}
}

// SyncOnce runs a single reconciliation pass synchronously.
func (c *Coordinator) SyncOnce() {
	c.setStatus(SyncSyncing)
	c.emitter.EmitSyncStarted(c.jobID)

	var bindings []diagram.Binding
	c.graph.WithGraph(func(g *diagram.Graph) {
		bindings = g.Bindings()
	})

	type divergence struct {
		serial   string
		conflict *store.Equipment // set when another job holds the claim
	}
	var diverged []divergence

	for _, b := range bindings {
		item, err := c.ledger.GetBySerialFresh(b.Serial)
		if errors.Is(err, sql.ErrNoRows) {
			diverged = append(diverged, divergence{serial: b.Serial})
			continue
		}
		if err != nil {
			// Ledger unreachable: keep prior local state, flag error, retry next tick.
			c.logFn("reconcile: job %d sync fetch %s: %v", c.jobID, b.Serial, err)
			c.setStatus(SyncError)
			c.emitter.EmitSyncFailed(c.jobID, err)
			return
		}
		switch {
		case item.JobID == nil || item.Status == string(ledger.StatusAvailable):
			// Returned or unassigned in the ledger: our reference is stale.
			diverged = append(diverged, divergence{serial: b.Serial})
		case *item.JobID != c.jobID:
			diverged = append(diverged, divergence{serial: b.Serial, conflict: item})
		}
	}

	cleared, conflicts := 0, 0
	for _, d := range diverged {
		if d.conflict != nil {
			c.fileConflict(d.conflict)
			conflicts++
			continue
		}
		dropped := false
		c.graph.WithGraph(func(g *diagram.Graph) {
			dropped = g.ClearBinding(d.serial)
		})
		// The binding can vanish between collection and clearing; only a
		// real clear counts or notifies.
		if dropped {
			cleared++
			c.emitter.EmitBindingCleared(c.jobID, d.serial)
		}
	}

	c.mu.Lock()
	c.status = SyncIdle
	c.lastSync = time.Now()
	c.mu.Unlock()
	c.emitter.EmitSyncCompleted(c.jobID, cleared, conflicts)
}

func (c *Coordinator) fileConflict(item *store.Equipment) {
	if _, err := c.db.GetOpenConflict(item.ID, *item.JobID, c.jobID); err == nil {
		return
	}
	conflict := &store.Conflict{
		ID:             uuid.New().String(),
		EquipmentID:    item.ID,
		DisplayID:      item.DisplayID,
		CurrentJobID:   *item.JobID,
		RequestedJobID: c.jobID,
	}
	if err := c.db.CreateConflict(conflict); err != nil {
		c.logFn("reconcile: record conflict for %s: %v", item.DisplayID, err)
		return
	}
	if cur, err := c.db.GetJob(conflict.CurrentJobID); err == nil {
		conflict.CurrentJobName = cur.Name
	}
	if req, err := c.db.GetJob(conflict.RequestedJobID); err == nil {
		conflict.RequestedJobName = req.Name
	}
	c.emitter.EmitConflictDetected(conflict)
}

func (c *Coordinator) setStatus(s SyncStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
