package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	KindEquipmentReleased = "equipment.released"
	KindConflictDetected  = "conflict.detected"
	KindSyncRequested     = "sync.requested"
)

// Envelope wraps every message published between sites and sessions.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	JobKey  string          `json:"job_key"`
	SiteID  string          `json:"site_id"`
	SentAt  time.Time       `json:"sent_at"`
	Payload json.RawMessage `json:"payload"`
}

type EquipmentReleased struct {
	Serial    string `json:"serial"`
	FromJobID int64  `json:"from_job_id"`
	ToJobID   int64  `json:"to_job_id"`
	Reason    string `json:"reason,omitempty"`
}

type ConflictDetected struct {
	ConflictID     string `json:"conflict_id"`
	Serial         string `json:"serial"`
	CurrentJobID   int64  `json:"current_job_id"`
	RequestedJobID int64  `json:"requested_job_id"`
}

type SyncRequested struct {
	JobID int64 `json:"job_id"`
}

func NewEnvelope(kind, jobKey, siteID string, payload any) *Envelope {
	data, _ := json.Marshal(payload)
	return &Envelope{
		ID:      uuid.New().String(),
		Kind:    kind,
		JobKey:  jobKey,
		SiteID:  siteID,
		SentAt:  time.Now().UTC(),
		Payload: data,
	}
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}

// UpdatesTopic names the per-job update topic, e.g. "fieldcore.updates.job-7".
func UpdatesTopic(prefix, jobKey string) string {
	return prefix + "." + jobKey
}
