// Package validate cross-checks derived equipment demand against the ledger.
// It never throws: every problem comes back as a structured issue for the
// caller to render, and only error-grade issues block.
package validate

import (
	"database/sql"
	"errors"
	"fmt"

	"fieldcore/ledger"
	"fieldcore/store"
	"fieldcore/usage"
)

type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
	IssueInfo    IssueType = "info"
)

type IssueCategory string

const (
	CategoryMissing  IssueCategory = "missing"
	CategoryLocation IssueCategory = "location"
	CategoryStatus   IssueCategory = "status"
	CategoryQuantity IssueCategory = "quantity"
)

type Issue struct {
	Type        IssueType     `json:"type"`
	Category    IssueCategory `json:"category"`
	Message     string        `json:"message"`
	EquipmentID string        `json:"equipment_id,omitempty"`
	Suggestion  string        `json:"suggestion,omitempty"`
}

type Result struct {
	IsValid    bool    `json:"is_valid"`
	CanProceed bool    `json:"can_proceed"`
	Issues     []Issue `json:"issues"`
}

// LedgerReader is the slice of the ledger the validator needs.
type LedgerReader interface {
	GetBySerial(displayID string) (*store.Equipment, error)
	AvailableQuantity(typeID, locationID int64) (float64, error)
	AvailableQuantityElsewhere(typeID, excludeLocationID int64) (float64, error)
}

// Check applies the availability rules in order, accumulating every issue
// rather than stopping at the first. Warnings never block.
func Check(u *usage.Usage, lr LedgerReader, targetLocationID int64) *Result {
	r := &Result{}

	for serial := range u.Individual {
		item, err := lr.GetBySerial(serial)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				r.Issues = append(r.Issues, Issue{
					Type:        IssueError,
					Category:    CategoryMissing,
					Message:     fmt.Sprintf("equipment %s is not in the ledger", serial),
					EquipmentID: serial,
					Suggestion:  "remove the assignment or register the item",
				})
			} else {
				r.Issues = append(r.Issues, Issue{
					Type:        IssueError,
					Category:    CategoryMissing,
					Message:     fmt.Sprintf("equipment %s could not be read: %v", serial, err),
					EquipmentID: serial,
				})
			}
			continue
		}

		if item.LocationID != targetLocationID {
			r.Issues = append(r.Issues, Issue{
				Type:        IssueWarning,
				Category:    CategoryLocation,
				Message:     fmt.Sprintf("equipment %s is at another location", serial),
				EquipmentID: serial,
				Suggestion:  "transfer the item to the job location",
			})
		}

		status := ledger.Status(item.Status)
		if !status.Allocatable() {
			issueType := IssueWarning
			suggestion := "reallocate the item before deployment"
			if status.Blocking() {
				issueType = IssueError
				suggestion = "select a different item; this one cannot be deployed"
			}
			r.Issues = append(r.Issues, Issue{
				Type:        issueType,
				Category:    CategoryStatus,
				Message:     fmt.Sprintf("equipment %s is %s", serial, item.Status),
				EquipmentID: serial,
				Suggestion:  suggestion,
			})
		}
	}

	for typeID, demand := range u.Cables {
		need := float64(demand.Quantity)
		atTarget, err := lr.AvailableQuantity(typeID, targetLocationID)
		if err != nil {
			r.Issues = append(r.Issues, Issue{
				Type:     IssueError,
				Category: CategoryQuantity,
				Message:  fmt.Sprintf("stock check for %s failed: %v", demand.TypeName, err),
			})
			continue
		}
		if atTarget >= need {
			continue
		}
		elsewhere, err := lr.AvailableQuantityElsewhere(typeID, targetLocationID)
		if err == nil && atTarget+elsewhere >= need {
			r.Issues = append(r.Issues, Issue{
				Type:       IssueWarning,
				Category:   CategoryQuantity,
				Message:    fmt.Sprintf("need %.0f of %s at the job location, only %.0f on hand", need, demand.TypeName, atTarget),
				Suggestion: "transfer stock from another location",
			})
		} else {
			r.Issues = append(r.Issues, Issue{
				Type:       IssueError,
				Category:   CategoryQuantity,
				Message:    fmt.Sprintf("need %.0f of %s, only %.0f available anywhere", need, demand.TypeName, atTarget+elsewhere),
				Suggestion: "source additional stock",
			})
		}
	}

	r.IsValid = true
	for _, issue := range r.Issues {
		if issue.Type == IssueError {
			r.IsValid = false
			break
		}
	}
	r.CanProceed = r.IsValid
	return r
}
