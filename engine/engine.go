package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"fieldcore/alloc"
	"fieldcore/config"
	"fieldcore/diagram"
	"fieldcore/ledger"
	"fieldcore/messaging"
	"fieldcore/reconcile"
	"fieldcore/saver"
	"fieldcore/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	Ledger    *ledger.Manager
	MsgClient *messaging.Client
	LogFunc   LogFunc
}

// Engine owns the shared state of the allocation core and hands out per-job
// sessions.
type Engine struct {
	cfg       *config.Config
	db        *store.DB
	ledger    *ledger.Manager
	msgClient *messaging.Client
	saver     *saver.Coordinator
	Events    *EventBus
	logFn     LogFunc

	mu       sync.Mutex
	sessions map[int64]*Session
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:       c.AppConfig,
		db:        c.DB,
		ledger:    c.Ledger,
		msgClient: c.MsgClient,
		Events:    NewEventBus(),
		logFn:     logFn,
		sessions:  make(map[int64]*Session),
	}
	e.saver = saver.NewCoordinator(c.DB, c.AppConfig.Save.Debounce.Std(), c.AppConfig.Save.MinInterval.Std())
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.sessions = make(map[int64]*Session)
	e.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
	e.saver.Stop()
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                 { return e.db }
func (e *Engine) Ledger() *ledger.Manager       { return e.ledger }
func (e *Engine) MsgClient() *messaging.Client  { return e.msgClient }
func (e *Engine) Saver() *saver.Coordinator     { return e.saver }
func (e *Engine) AppConfig() *config.Config     { return e.cfg }

// OpenSession loads (or creates) a job's diagram and starts its sync
// coordinator. Opening an already-open session returns the existing one.
func (e *Engine) OpenSession(jobID int64) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[jobID]; ok {
		return s, nil
	}

	job, err := e.db.GetJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}

	var g *diagram.Graph
	rec, err := e.db.GetDiagram(jobID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		g = &diagram.Graph{}
	case err != nil:
		return nil, fmt.Errorf("load diagram %d: %w", jobID, err)
	default:
		g, err = diagram.FromSnapshot(rec.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("parse diagram %d: %w", jobID, err)
		}
	}

	s := &Session{
		jobID:  jobID,
		job:    job,
		engine: e,
		graph:  g,
	}
	ae := &allocEmitter{bus: e.Events}
	se := &syncEmitter{bus: e.Events}
	s.allocator = alloc.NewAllocator(e.db, e.ledger, ae, jobID, "session")
	s.reconciler = reconcile.NewReconciler(e.db, s.allocator, se, e.cfg.SiteID, e.cfg.Messaging.UpdatesTopicPrefix)
	s.syncer = reconcile.NewCoordinator(jobID, s, e.ledger, e.db, se, e.cfg.Sync.Interval.Std())
	s.syncer.Start()

	e.sessions[jobID] = s
	e.logFn("engine: session open for job %d (%s)", jobID, job.Name)
	return s, nil
}

// Session returns an open session or nil.
func (e *Engine) Session(jobID int64) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[jobID]
}

func (e *Engine) CloseSession(jobID int64) {
	e.mu.Lock()
	s, ok := e.sessions[jobID]
	if ok {
		delete(e.sessions, jobID)
	}
	e.mu.Unlock()
	if ok {
		s.close()
		e.logFn("engine: session closed for job %d", jobID)
	}
}

// OpenConflicts returns the global active conflict set.
func (e *Engine) OpenConflicts() ([]*store.Conflict, error) {
	return e.db.ListOpenConflicts()
}
