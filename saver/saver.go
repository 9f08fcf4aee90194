// Package saver batches diagram persistence. Rapid edits collapse into one
// durable write per job; high-priority requests skip the debounce window but
// still honor a minimum interval between actual writes.
package saver

import (
	"log"
	"sync"
	"time"
)

type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Persister is the diagram storage contract. Each call is atomic per job.
type Persister interface {
	SaveDiagram(jobID int64, snapshot []byte) error
}

type Request struct {
	JobID    int64
	Snapshot []byte
	Reason   string
	Priority Priority
	At       time.Time
}

// Coordinator queues saves keyed by job: last write wins, a new request for
// a job replaces the pending one. A per-job lock serializes actual writes;
// different jobs save concurrently. Construct one per engine and inject it
// into sessions — never a package singleton.
type Coordinator struct {
	persister   Persister
	debounce    time.Duration
	minInterval time.Duration
	logFn       func(format string, args ...any)

	mu        sync.Mutex
	pending   map[int64]*Request
	timers    map[int64]*time.Timer
	lastWrite map[int64]time.Time
	writeLock map[int64]*sync.Mutex
	closed    bool
}

func NewCoordinator(p Persister, debounce, minInterval time.Duration) *Coordinator {
	return &Coordinator{
		persister:   p,
		debounce:    debounce,
		minInterval: minInterval,
		logFn:       log.Printf,
		pending:     make(map[int64]*Request),
		timers:      make(map[int64]*time.Timer),
		lastWrite:   make(map[int64]time.Time),
		writeLock:   make(map[int64]*sync.Mutex),
	}
}

// RequestSave queues a snapshot. Normal priority waits out the debounce
// window; high priority flushes as soon as the minimum write interval allows.
func (c *Coordinator) RequestSave(jobID int64, snapshot []byte, reason string, priority Priority) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending[jobID] = &Request{
		JobID:    jobID,
		Snapshot: snapshot,
		Reason:   reason,
		Priority: priority,
		At:       time.Now(),
	}

	delay := c.debounce
	if priority == PriorityHigh {
		delay = 0
		if since := time.Since(c.lastWrite[jobID]); since < c.minInterval {
			// Too soon after the last write: reschedule, don't drop.
			delay = c.minInterval - since
		}
	}

	if t, ok := c.timers[jobID]; ok {
		t.Stop()
	}
	c.timers[jobID] = time.AfterFunc(delay, func() { c.flush(jobID) })
	c.mu.Unlock()
}

// Flush writes any pending request for the job immediately. Used on session
// close and in tests.
func (c *Coordinator) Flush(jobID int64) {
	c.mu.Lock()
	if t, ok := c.timers[jobID]; ok {
		t.Stop()
		delete(c.timers, jobID)
	}
	c.mu.Unlock()
	c.flush(jobID)
}

// Stop cancels timers and drains every pending request.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.closed = true
	var jobs []int64
	for jobID, t := range c.timers {
		t.Stop()
		delete(c.timers, jobID)
	}
	for jobID := range c.pending {
		jobs = append(jobs, jobID)
	}
	c.mu.Unlock()
	for _, jobID := range jobs {
		c.flush(jobID)
	}
}

func (c *Coordinator) flush(jobID int64) {
	lock := c.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	req, ok := c.pending[jobID]
	if ok {
		delete(c.pending, jobID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	if err := c.persister.SaveDiagram(req.JobID, req.Snapshot); err != nil {
		// Queue keeps running; the payload is retried only if a later edit
		// requests another save.
		c.logFn("saver: save job %d (%s): %v", req.JobID, req.Reason, err)
		return
	}

	c.mu.Lock()
	c.lastWrite[jobID] = time.Now()
	c.mu.Unlock()
}

func (c *Coordinator) jobLock(jobID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.writeLock[jobID]
	if !ok {
		lock = &sync.Mutex{}
		c.writeLock[jobID] = lock
	}
	return lock
}
