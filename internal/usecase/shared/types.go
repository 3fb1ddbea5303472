package shared

import (
	"encoding/json"
	"time"

	"sales-recovery/internal/domain/event"

	"github.com/google/uuid"
)

// JobPayload identifies an attempt. The business payload is deliberately
// absent; executors re-read the event when the job fires.
type JobPayload struct {
	EventID        uuid.UUID  `json:"event_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EventType      event.Type `json:"event_type"`
	AttemptNumber  int        `json:"attempt_number"`
}

func (p JobPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

type NewJob struct {
	ID       string
	Payload  JobPayload
	DueAt    time.Time
	MaxTries int
}

// Job is a claimed or listed queue row. Tries counts claims including the
// current one.
type Job struct {
	ID        string
	Payload   JobPayload
	Status    JobStatus
	DueAt     time.Time
	Tries     int
	MaxTries  int
	LastError *string
}

func (j Job) Exhausted() bool {
	return j.Tries >= j.MaxTries
}
