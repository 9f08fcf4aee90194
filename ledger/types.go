package ledger

// Status is the closed set of equipment states. Allocated means reserved for
// a job but not physically moved; deployed means confirmed in use on site.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusAllocated   Status = "allocated"
	StatusDeployed    Status = "deployed"
	StatusMaintenance Status = "maintenance"
	StatusRedTagged   Status = "red-tagged"
	StatusRetired     Status = "retired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusAllocated, StatusDeployed, StatusMaintenance, StatusRedTagged, StatusRetired:
		return true
	}
	return false
}

// Allocatable reports whether an item in this status may be claimed.
func (s Status) Allocatable() bool {
	return s == StatusAvailable || s == StatusAllocated
}

// Blocking reports whether this status hard-blocks allocation (vs. a
// reallocatable warning state like deployed or maintenance).
func (s Status) Blocking() bool {
	return s == StatusRedTagged || s == StatusRetired
}

type LocationType string

const (
	LocationStorage LocationType = "storage"
	LocationJob     LocationType = "job"
)

// Patch is a partial equipment update. Nil fields are left unchanged.
// Clearing the job claim needs the explicit flag since nil means "no change".
type Patch struct {
	Status       *Status
	JobID        *int64
	ClearJob     bool
	LocationID   *int64
	LocationType *LocationType
	Notes        *string
	Quantity     *float64
}

// Violation is an at-rest invariant breach: deployed without a job, or
// available with one. These are detector output, not write-time rejections —
// fixing them is the reconciler's job.
type Violation struct {
	EquipmentID int64  `json:"equipment_id"`
	DisplayID   string `json:"display_id"`
	Status      string `json:"status"`
	JobID       *int64 `json:"job_id,omitempty"`
	Detail      string `json:"detail"`
}
