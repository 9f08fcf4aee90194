package store

import (
	"database/sql"
	"errors"
	"time"
)

type DiagramRecord struct {
	JobID     int64     `json:"job_id"`
	Snapshot  []byte    `json:"snapshot"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveDiagram upserts the single snapshot row for a job, bumping version.
// Each call is one statement, so a save is atomic per job.
func (db *DB) SaveDiagram(jobID int64, snapshot []byte) error {
	_, err := db.Exec(db.Q(`INSERT INTO diagrams (job_id, snapshot, version) VALUES (?, ?, 1)
ON CONFLICT (job_id) DO UPDATE SET snapshot=excluded.snapshot, version=diagrams.version+1, updated_at=datetime('now')`),
		jobID, string(snapshot))
	return err
}

func (db *DB) GetDiagram(jobID int64) (*DiagramRecord, error) {
	var d DiagramRecord
	var snapshot string
	var updatedAt string
	err := db.QueryRow(db.Q(`SELECT job_id, snapshot, version, updated_at FROM diagrams WHERE job_id=?`), jobID).
		Scan(&d.JobID, &snapshot, &d.Version, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.Snapshot = []byte(snapshot)
	d.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	return &d, nil
}

// HasDiagram reports whether a snapshot exists without loading it.
func (db *DB) HasDiagram(jobID int64) (bool, error) {
	var one int
	err := db.QueryRow(db.Q(`SELECT 1 FROM diagrams WHERE job_id=?`), jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
