package saver

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu     sync.Mutex
	writes []Request
	fail   bool
}

func (p *recordingPersister) SaveDiagram(jobID int64, snapshot []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("disk full")
	}
	p.writes = append(p.writes, Request{JobID: jobID, Snapshot: snapshot})
	return nil
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *recordingPersister) last() Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes[len(p.writes)-1]
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, 50*time.Millisecond, 10*time.Millisecond)
	defer c.Stop()

	c.RequestSave(1, []byte("v1"), "edit", PriorityNormal)
	c.RequestSave(1, []byte("v2"), "edit", PriorityNormal)
	c.RequestSave(1, []byte("v3"), "edit", PriorityNormal)

	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []byte("v3"), p.last().Snapshot)

	// Nothing else left queued.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, p.count())
}

func TestHighPrioritySkipsDebounce(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, time.Hour, time.Millisecond)
	defer c.Stop()

	c.RequestSave(1, []byte("critical"), "allocate", PriorityHigh)
	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []byte("critical"), p.last().Snapshot)
}

func TestHighPriorityHonorsMinInterval(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, time.Hour, 80*time.Millisecond)
	defer c.Stop()

	c.RequestSave(1, []byte("first"), "allocate", PriorityHigh)
	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Right on the heels of the first write: rescheduled, not dropped.
	c.RequestSave(1, []byte("second"), "allocate", PriorityHigh)
	require.Eventually(t, func() bool { return p.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []byte("second"), p.last().Snapshot)
}

func TestJobsSaveIndependently(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, 10*time.Millisecond, time.Millisecond)
	defer c.Stop()

	c.RequestSave(1, []byte("job1"), "edit", PriorityNormal)
	c.RequestSave(2, []byte("job2"), "edit", PriorityNormal)

	require.Eventually(t, func() bool { return p.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	seen := map[int64]string{}
	p.mu.Lock()
	for _, w := range p.writes {
		seen[w.JobID] = string(w.Snapshot)
	}
	p.mu.Unlock()
	require.Equal(t, "job1", seen[1])
	require.Equal(t, "job2", seen[2])
}

func TestFlushWritesImmediately(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, time.Hour, time.Millisecond)
	defer c.Stop()

	c.RequestSave(1, []byte("pending"), "edit", PriorityNormal)
	c.Flush(1)
	require.Equal(t, 1, p.count())
	require.Equal(t, []byte("pending"), p.last().Snapshot)

	// Flushing with nothing pending is a no-op.
	c.Flush(1)
	require.Equal(t, 1, p.count())
}

func TestStopDrainsPending(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(p, time.Hour, time.Millisecond)

	c.RequestSave(1, []byte("a"), "edit", PriorityNormal)
	c.RequestSave(2, []byte("b"), "edit", PriorityNormal)
	c.Stop()

	require.Equal(t, 2, p.count())

	// After Stop, new requests are dropped.
	c.RequestSave(3, []byte("late"), "edit", PriorityHigh)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, p.count())
}

func TestFailedWriteIsDropped(t *testing.T) {
	p := &recordingPersister{fail: true}
	c := NewCoordinator(p, time.Millisecond, time.Millisecond)
	c.logFn = func(string, ...any) {}
	defer c.Stop()

	c.RequestSave(1, []byte("doomed"), "edit", PriorityHigh)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, p.count())

	// A later edit writes normally once the persister recovers.
	p.mu.Lock()
	p.fail = false
	p.mu.Unlock()
	c.RequestSave(1, []byte("recovered"), "edit", PriorityHigh)
	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []byte("recovered"), p.last().Snapshot)
}
