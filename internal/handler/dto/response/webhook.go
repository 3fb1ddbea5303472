package response

import (
	"sales-recovery/internal/usecase/commands"

	"github.com/google/uuid"
)

const (
	IngestStatusAccepted         = "accepted"
	IngestStatusAlreadyProcessed = "already_processed"
)

type IngestResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	Status    string    `json:"status"`
	Scheduled int       `json:"scheduled,omitempty"`
	Resolved  int64     `json:"resolved,omitempty"`
}

func FromIngestResult(r *commands.IngestResult) *IngestResponse {
	status := IngestStatusAccepted
	if r.Duplicate {
		status = IngestStatusAlreadyProcessed
	}
	return &IngestResponse{
		EventID:   r.EventID,
		Status:    status,
		Scheduled: r.Scheduled,
		Resolved:  r.Resolved,
	}
}

type CallbackResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

func FromCallbackResult(r *commands.CallbackResult) *CallbackResponse {
	return &CallbackResponse{Received: true, Outcome: string(r.Outcome)}
}
