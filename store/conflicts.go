package store

import (
	"database/sql"
	"time"
)

// Conflict records two jobs claiming the same equipment serial. Rows stay
// open until a user resolves them; they never expire on their own.
type Conflict struct {
	ID               string     `json:"id"`
	EquipmentID      int64      `json:"equipment_id"`
	DisplayID        string     `json:"display_id"`
	CurrentJobID     int64      `json:"current_job_id"`
	CurrentJobName   string     `json:"current_job_name"`
	RequestedJobID   int64      `json:"requested_job_id"`
	RequestedJobName string     `json:"requested_job_name"`
	DetectedAt       time.Time  `json:"detected_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	Resolution       string     `json:"resolution,omitempty"`
}

func (db *DB) CreateConflict(c *Conflict) error {
	_, err := db.Exec(db.Q(`INSERT INTO conflicts (id, equipment_id, display_id, current_job_id, requested_job_id) VALUES (?, ?, ?, ?, ?)`),
		c.ID, c.EquipmentID, c.DisplayID, c.CurrentJobID, c.RequestedJobID)
	return err
}

func (db *DB) GetConflict(id string) (*Conflict, error) {
	row := db.QueryRow(db.Q(conflictSelect+` WHERE c.id=?`), id)
	return scanConflict(row)
}

// GetOpenConflict finds an unresolved conflict for a serial between two jobs,
// used to avoid filing duplicates on every sync pass.
func (db *DB) GetOpenConflict(equipmentID, currentJobID, requestedJobID int64) (*Conflict, error) {
	row := db.QueryRow(db.Q(conflictSelect+` WHERE c.equipment_id=? AND c.current_job_id=? AND c.requested_job_id=? AND c.resolved_at IS NULL`),
		equipmentID, currentJobID, requestedJobID)
	return scanConflict(row)
}

func (db *DB) ListOpenConflicts() ([]*Conflict, error) {
	rows, err := db.Query(db.Q(conflictSelect + ` WHERE c.resolved_at IS NULL ORDER BY c.detected_at`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conflicts []*Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (db *DB) ListOpenConflictsForJob(jobID int64) ([]*Conflict, error) {
	rows, err := db.Query(db.Q(conflictSelect+` WHERE c.resolved_at IS NULL AND (c.current_job_id=? OR c.requested_job_id=?) ORDER BY c.detected_at`), jobID, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conflicts []*Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (db *DB) MarkConflictResolved(id, resolution string) error {
	_, err := db.Exec(db.Q(`UPDATE conflicts SET resolved_at=datetime('now'), resolution=? WHERE id=?`), resolution, id)
	return err
}

const conflictSelect = `SELECT c.id, c.equipment_id, c.display_id, c.current_job_id, cj.name, c.requested_job_id, rj.name, c.detected_at, c.resolved_at, c.resolution
FROM conflicts c
JOIN jobs cj ON cj.id = c.current_job_id
JOIN jobs rj ON rj.id = c.requested_job_id`

func scanConflict(row rowScanner) (*Conflict, error) {
	var c Conflict
	var detectedAt string
	var resolvedAt sql.NullString
	if err := row.Scan(&c.ID, &c.EquipmentID, &c.DisplayID, &c.CurrentJobID, &c.CurrentJobName, &c.RequestedJobID, &c.RequestedJobName, &detectedAt, &resolvedAt, &c.Resolution); err != nil {
		return nil, err
	}
	c.DetectedAt, _ = time.Parse("2006-01-02 15:04:05", detectedAt)
	if resolvedAt.Valid {
		t, _ := time.Parse("2006-01-02 15:04:05", resolvedAt.String)
		c.ResolvedAt = &t
	}
	return &c, nil
}
