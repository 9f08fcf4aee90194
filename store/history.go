package store

import (
	"database/sql"
	"time"
)

type HistoryEntry struct {
	ID             int64     `json:"id"`
	EquipmentID    int64     `json:"equipment_id"`
	Action         string    `json:"action"`
	FromStatus     string    `json:"from_status"`
	ToStatus       string    `json:"to_status"`
	FromJobID      *int64    `json:"from_job_id,omitempty"`
	ToJobID        *int64    `json:"to_job_id,omitempty"`
	FromLocationID *int64    `json:"from_location_id,omitempty"`
	ToLocationID   *int64    `json:"to_location_id,omitempty"`
	Actor          string    `json:"actor"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (db *DB) AppendHistory(h *HistoryEntry) error {
	toArg := func(p *int64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	result, err := db.Exec(db.Q(`INSERT INTO equipment_history (equipment_id, action, from_status, to_status, from_job_id, to_job_id, from_location_id, to_location_id, actor, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		h.EquipmentID, h.Action, h.FromStatus, h.ToStatus, toArg(h.FromJobID), toArg(h.ToJobID), toArg(h.FromLocationID), toArg(h.ToLocationID), h.Actor, h.Notes)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	h.ID = id
	return nil
}

func (db *DB) ListHistory(equipmentID int64, limit int) ([]*HistoryEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, equipment_id, action, from_status, to_status, from_job_id, to_job_id, from_location_id, to_location_id, actor, notes, created_at FROM equipment_history WHERE equipment_id=? ORDER BY id DESC LIMIT ?`),
		equipmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (db *DB) ListRecentHistory(limit int) ([]*HistoryEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, equipment_id, action, from_status, to_status, from_job_id, to_job_id, from_location_id, to_location_id, actor, notes, created_at FROM equipment_history ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var fromJob, toJob, fromLoc, toLoc sql.NullInt64
		var createdAt string
		if err := rows.Scan(&h.ID, &h.EquipmentID, &h.Action, &h.FromStatus, &h.ToStatus, &fromJob, &toJob, &fromLoc, &toLoc, &h.Actor, &h.Notes, &createdAt); err != nil {
			return nil, err
		}
		if fromJob.Valid {
			h.FromJobID = &fromJob.Int64
		}
		if toJob.Valid {
			h.ToJobID = &toJob.Int64
		}
		if fromLoc.Valid {
			h.FromLocationID = &fromLoc.Int64
		}
		if toLoc.Valid {
			h.ToLocationID = &toLoc.Int64
		}
		h.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}
