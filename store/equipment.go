package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Equipment struct {
	ID           int64   `json:"id"`
	DisplayID    string  `json:"display_id"`
	TypeID       int64   `json:"type_id"`
	TypeName     string  `json:"type_name"`
	Category     string  `json:"category"`
	Status       string  `json:"status"`
	LocationID   int64   `json:"location_id"`
	LocationType string  `json:"location_type"`
	JobID        *int64  `json:"job_id,omitempty"`
	SerialNumber string  `json:"serial_number,omitempty"`
	Serialized   bool    `json:"serialized"`
	Quantity     float64 `json:"quantity"`
	Notes        string  `json:"notes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type EquipmentType struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	DefaultLengthFt int    `json:"default_length_ft"`
}

type Location struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LocationType string `json:"location_type"`
	Enabled      bool   `json:"enabled"`
}

type Job struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Client     string `json:"client"`
	Status     string `json:"status"`
	LocationID *int64 `json:"location_id,omitempty"`
}

// EquipmentFilter narrows ListEquipment. Nil fields are ignored.
type EquipmentFilter struct {
	JobID      *int64
	LocationID *int64
	Status     string
	TypeID     *int64
}

const equipmentCols = `e.id, e.display_id, e.type_id, t.name, t.category, e.status, e.location_id, e.location_type, e.job_id, e.serial_number, e.serialized, e.quantity, e.notes, e.updated_at`

func (db *DB) CreateEquipment(e *Equipment) error {
	var jobID any
	if e.JobID != nil {
		jobID = *e.JobID
	}
	if e.Quantity == 0 {
		e.Quantity = 1
	}
	if e.LocationType == "" {
		e.LocationType = "storage"
	}
	if e.Status == "" {
		e.Status = "available"
	}
	result, err := db.Exec(db.Q(`INSERT INTO equipment (display_id, type_id, status, location_id, location_type, job_id, serial_number, serialized, quantity, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.DisplayID, e.TypeID, e.Status, e.LocationID, e.LocationType, jobID, e.SerialNumber, e.Serialized, e.Quantity, e.Notes)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	e.ID = id
	return nil
}

func (db *DB) GetEquipment(id int64) (*Equipment, error) {
	row := db.QueryRow(db.Q(`SELECT `+equipmentCols+` FROM equipment e JOIN equipment_types t ON t.id = e.type_id WHERE e.id = ?`), id)
	return scanEquipment(row)
}

func (db *DB) GetEquipmentByDisplayID(displayID string) (*Equipment, error) {
	row := db.QueryRow(db.Q(`SELECT `+equipmentCols+` FROM equipment e JOIN equipment_types t ON t.id = e.type_id WHERE e.display_id = ?`), displayID)
	return scanEquipment(row)
}

func (db *DB) ListEquipment(f EquipmentFilter) ([]*Equipment, error) {
	query := `SELECT ` + equipmentCols + ` FROM equipment e JOIN equipment_types t ON t.id = e.type_id WHERE 1=1`
	var args []any
	if f.JobID != nil {
		query += ` AND e.job_id = ?`
		args = append(args, *f.JobID)
	}
	if f.LocationID != nil {
		query += ` AND e.location_id = ?`
		args = append(args, *f.LocationID)
	}
	if f.Status != "" {
		query += ` AND e.status = ?`
		args = append(args, f.Status)
	}
	if f.TypeID != nil {
		query += ` AND e.type_id = ?`
		args = append(args, *f.TypeID)
	}
	query += ` ORDER BY e.display_id`

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// UpdateEquipment writes every mutable field. Callers doing partial updates
// read-modify-write through ledger.Manager.
func (db *DB) UpdateEquipment(e *Equipment) error {
	var jobID any
	if e.JobID != nil {
		jobID = *e.JobID
	}
	_, err := db.Exec(db.Q(`UPDATE equipment SET display_id=?, type_id=?, status=?, location_id=?, location_type=?, job_id=?, serial_number=?, serialized=?, quantity=?, notes=?, updated_at=datetime('now') WHERE id=?`),
		e.DisplayID, e.TypeID, e.Status, e.LocationID, e.LocationType, jobID, e.SerialNumber, e.Serialized, e.Quantity, e.Notes, e.ID)
	return err
}

func (db *DB) DeleteEquipment(id int64) error {
	_, err := db.Exec(db.Q(`DELETE FROM equipment WHERE id=?`), id)
	return err
}

// ClaimEquipment atomically marks an item deployed to a job. The WHERE clause
// is the exclusivity guard: the claim only lands if the item is unclaimed or
// already claimed by the same job.
func (db *DB) ClaimEquipment(id, jobID int64) error {
	result, err := db.Exec(db.Q(`UPDATE equipment SET status='deployed', job_id=?, updated_at=datetime('now') WHERE id=? AND (job_id IS NULL OR job_id=?)`),
		jobID, id, jobID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("equipment %d claimed by another job", id)
	}
	return nil
}

// ReleaseEquipment clears a job claim and returns the item to available.
func (db *DB) ReleaseEquipment(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE equipment SET status='available', job_id=NULL, updated_at=datetime('now') WHERE id=?`), id)
	return err
}

// ReassignEquipment moves a claim from whichever job holds it to another.
func (db *DB) ReassignEquipment(id, toJobID int64) error {
	_, err := db.Exec(db.Q(`UPDATE equipment SET status='deployed', job_id=?, updated_at=datetime('now') WHERE id=?`), toJobID, id)
	return err
}

// SumAvailableQuantity totals allocatable stock of a type at one location.
func (db *DB) SumAvailableQuantity(typeID, locationID int64) (float64, error) {
	var total sql.NullFloat64
	err := db.QueryRow(db.Q(`SELECT SUM(quantity) FROM equipment WHERE type_id=? AND location_id=? AND status IN ('available','allocated')`),
		typeID, locationID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// SumAvailableQuantityElsewhere totals allocatable stock of a type at every other location.
func (db *DB) SumAvailableQuantityElsewhere(typeID, excludeLocationID int64) (float64, error) {
	var total sql.NullFloat64
	err := db.QueryRow(db.Q(`SELECT SUM(quantity) FROM equipment WHERE type_id=? AND location_id<>? AND status IN ('available','allocated')`),
		typeID, excludeLocationID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*Equipment, error) {
	var e Equipment
	var jobID sql.NullInt64
	var updatedAt string
	if err := row.Scan(&e.ID, &e.DisplayID, &e.TypeID, &e.TypeName, &e.Category, &e.Status, &e.LocationID, &e.LocationType, &jobID, &e.SerialNumber, &e.Serialized, &e.Quantity, &e.Notes, &updatedAt); err != nil {
		return nil, err
	}
	if jobID.Valid {
		e.JobID = &jobID.Int64
	}
	e.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	return &e, nil
}

// --- equipment types ---

func (db *DB) CreateEquipmentType(t *EquipmentType) error {
	result, err := db.Exec(db.Q(`INSERT INTO equipment_types (name, category, default_length_ft) VALUES (?, ?, ?)`),
		t.Name, t.Category, t.DefaultLengthFt)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	t.ID = id
	return nil
}

func (db *DB) GetEquipmentType(id int64) (*EquipmentType, error) {
	var t EquipmentType
	err := db.QueryRow(db.Q(`SELECT id, name, category, default_length_ft FROM equipment_types WHERE id=?`), id).
		Scan(&t.ID, &t.Name, &t.Category, &t.DefaultLengthFt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) ListEquipmentTypes() ([]*EquipmentType, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, category, default_length_ft FROM equipment_types ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []*EquipmentType
	for rows.Next() {
		var t EquipmentType
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.DefaultLengthFt); err != nil {
			return nil, err
		}
		types = append(types, &t)
	}
	return types, rows.Err()
}

// --- locations ---

func (db *DB) CreateLocation(l *Location) error {
	if l.LocationType == "" {
		l.LocationType = "storage"
	}
	result, err := db.Exec(db.Q(`INSERT INTO locations (name, location_type, enabled) VALUES (?, ?, ?)`),
		l.Name, l.LocationType, l.Enabled)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	l.ID = id
	return nil
}

func (db *DB) GetLocation(id int64) (*Location, error) {
	var l Location
	err := db.QueryRow(db.Q(`SELECT id, name, location_type, enabled FROM locations WHERE id=?`), id).
		Scan(&l.ID, &l.Name, &l.LocationType, &l.Enabled)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (db *DB) ListLocations() ([]*Location, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, location_type, enabled FROM locations ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locations []*Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.LocationType, &l.Enabled); err != nil {
			return nil, err
		}
		locations = append(locations, &l)
	}
	return locations, rows.Err()
}

// --- jobs ---

func (db *DB) CreateJob(j *Job) error {
	if j.Status == "" {
		j.Status = "active"
	}
	var locID any
	if j.LocationID != nil {
		locID = *j.LocationID
	}
	result, err := db.Exec(db.Q(`INSERT INTO jobs (name, client, status, location_id) VALUES (?, ?, ?, ?)`),
		j.Name, j.Client, j.Status, locID)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	j.ID = id
	return nil
}

func (db *DB) GetJob(id int64) (*Job, error) {
	var j Job
	var locID sql.NullInt64
	err := db.QueryRow(db.Q(`SELECT id, name, client, status, location_id FROM jobs WHERE id=?`), id).
		Scan(&j.ID, &j.Name, &j.Client, &j.Status, &locID)
	if err != nil {
		return nil, err
	}
	if locID.Valid {
		j.LocationID = &locID.Int64
	}
	return &j, nil
}

func (db *DB) GetJobByName(name string) (*Job, error) {
	var j Job
	var locID sql.NullInt64
	err := db.QueryRow(db.Q(`SELECT id, name, client, status, location_id FROM jobs WHERE name=?`), name).
		Scan(&j.ID, &j.Name, &j.Client, &j.Status, &locID)
	if err != nil {
		return nil, err
	}
	if locID.Valid {
		j.LocationID = &locID.Int64
	}
	return &j, nil
}

func (db *DB) ListJobs(status string) ([]*Job, error) {
	query := `SELECT id, name, client, status, location_id FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY name`
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		var j Job
		var locID sql.NullInt64
		if err := rows.Scan(&j.ID, &j.Name, &j.Client, &j.Status, &locID); err != nil {
			return nil, err
		}
		if locID.Valid {
			j.LocationID = &locID.Int64
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}
