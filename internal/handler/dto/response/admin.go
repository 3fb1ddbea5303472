package response

import (
	"encoding/json"
	"time"

	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type EventResponse struct {
	ID              uuid.UUID            `json:"id"`
	OrganizationID  uuid.UUID            `json:"organizationId"`
	EventType       string               `json:"eventType"`
	ExternalID      string               `json:"externalId"`
	Status          string               `json:"status"`
	Payload         json.RawMessage      `json:"payload"`
	CreatedAt       time.Time            `json:"createdAt"`
	ProcessedAt     *time.Time           `json:"processedAt,omitempty"`
	RegistryVersion string               `json:"registryVersion"`
	SendRecords     []SendRecordResponse `json:"sendRecords"`
	Jobs            []JobResponse        `json:"jobs"`
}

type SendRecordResponse struct {
	AttemptNumber     int        `json:"attemptNumber"`
	Recipient         string     `json:"recipient"`
	TemplateID        string     `json:"templateId"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	Status            string     `json:"status"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
	OpenedAt          *time.Time `json:"openedAt,omitempty"`
	ClickedAt         *time.Time `json:"clickedAt,omitempty"`
	BouncedAt         *time.Time `json:"bouncedAt,omitempty"`
	Error             *string    `json:"error,omitempty"`
}

type JobResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attemptNumber"`
	Status        string    `json:"status"`
	DueAt         time.Time `json:"dueAt"`
	Tries         int       `json:"tries"`
	MaxTries      int       `json:"maxTries"`
	LastError     *string   `json:"lastError,omitempty"`
}

func FromEventView(v *queries.EventView) (*EventResponse, error) {
	out := &EventResponse{}
	if err := copier.CopyWithOption(out, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	if out.SendRecords == nil {
		out.SendRecords = []SendRecordResponse{}
	}
	if out.Jobs == nil {
		out.Jobs = []JobResponse{}
	}
	return out, nil
}

type EventSummaryResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventType   string     `json:"eventType"`
	ExternalID  string     `json:"externalId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

type EventListResponse struct {
	Events     []EventSummaryResponse `json:"events"`
	NextCursor string                 `json:"nextCursor,omitempty"`
}

func FromEventPage(p *queries.EventPage) (*EventListResponse, error) {
	out := &EventListResponse{NextCursor: p.NextCursor}
	if err := copier.Copy(&out.Events, p.Events); err != nil {
		return nil, err
	}
	if out.Events == nil {
		out.Events = []EventSummaryResponse{}
	}
	return out, nil
}

type TenantResponse struct {
	ID            uuid.UUID `json:"id"`
	WebhookSecret string    `json:"webhookSecret"`
}

func FromRegisterTenantResult(r *commands.RegisterTenantResult) *TenantResponse {
	return &TenantResponse{ID: r.TenantID, WebhookSecret: r.WebhookSecret}
}

type InvalidateTemplatesResponse struct {
	Invalidated []string `json:"invalidated"`
}
