package store

import "time"

type OutboxRow struct {
	ID        int64
	Topic     string
	Kind      string
	JobKey    string
	Payload   []byte
	CreatedAt time.Time
}

// EnqueueOutbox stores a message for the drainer. Writes here commit with the
// state change that caused them, so notifications survive restarts.
func (db *DB) EnqueueOutbox(topic string, payload []byte, kind, jobKey string) error {
	_, err := db.Exec(db.Q(`INSERT INTO outbox (topic, kind, job_key, payload) VALUES (?, ?, ?, ?)`),
		topic, kind, jobKey, payload)
	return err
}

func (db *DB) ListPendingOutbox(limit int) ([]*OutboxRow, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, kind, job_key, payload, created_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pending []*OutboxRow
	for rows.Next() {
		var o OutboxRow
		var createdAt string
		if err := rows.Scan(&o.ID, &o.Topic, &o.Kind, &o.JobKey, &o.Payload, &createdAt); err != nil {
			return nil, err
		}
		o.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		pending = append(pending, &o)
	}
	return pending, rows.Err()
}

func (db *DB) MarkOutboxSent(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now') WHERE id=?`), id)
	return err
}
