package messaging

import (
	"log"
	"time"

	"fieldcore/store"
)

// Publisher is what the drainer needs from a messaging client.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// OutboxDrainer ships queued outbox rows on a fixed interval. A publish
// failure leaves the row queued for the next pass.
type OutboxDrainer struct {
	db       *store.DB
	client   Publisher
	interval time.Duration
	stopChan chan struct{}
	logFn    func(format string, args ...any)
}

func NewOutboxDrainer(db *store.DB, client Publisher, interval time.Duration) *OutboxDrainer {
	return &OutboxDrainer{
		db:       db,
		client:   client,
		interval: interval,
		stopChan: make(chan struct{}),
		logFn:    log.Printf,
	}
}

func (d *OutboxDrainer) Start() {
	go d.loop()
}

func (d *OutboxDrainer) Stop() {
	close(d.stopChan)
}

func (d *OutboxDrainer) loop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Drain publishes pending rows in order, stopping at the first failure.
func (d *OutboxDrainer) Drain() {
	if !d.client.IsConnected() {
		return
	}
	rows, err := d.db.ListPendingOutbox(50)
	if err != nil {
		d.logFn("messaging: list outbox: %v", err)
		return
	}
	for _, row := range rows {
		if err := d.client.Publish(row.Topic, row.Payload); err != nil {
			d.logFn("messaging: publish outbox %d to %s: %v", row.ID, row.Topic, err)
			return
		}
		if err := d.db.MarkOutboxSent(row.ID); err != nil {
			d.logFn("messaging: mark outbox %d sent: %v", row.ID, err)
			return
		}
	}
}
