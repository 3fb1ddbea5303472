package event

import (
	"encoding/json"
	"strings"
	"time"

	"sales-recovery/internal/pkg/errs"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const MaxExternalIDLength = 255

var (
	ErrEmptyExternalID   = errs.New("external id cannot be empty")
	ErrExternalIDTooLong = errs.New("external id exceeds maximum length")
	ErrInvalidPayload    = errs.New("payload must be a JSON object")
	ErrMissingRecipient  = errs.New("payload has no customer email")
)

var validate = validator.New()

// Event is one stored platform webhook. Only the status and processedAt
// change after creation.
type Event struct {
	id             uuid.UUID
	organizationID uuid.UUID
	eventType      Type
	externalID     string
	payload        json.RawMessage
	status         Status
	createdAt      time.Time
	processedAt    *time.Time
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func New(organizationID uuid.UUID, eventType Type, externalID string, payload []byte, now time.Time) (*Event, error) {
	if !eventType.Valid() {
		return nil, errs.Mark(ErrUnknownType, errs.ErrValidation)
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, errs.Mark(ErrEmptyExternalID, errs.ErrValidation)
	}
	if len(externalID) > MaxExternalIDLength {
		return nil, errs.Mark(ErrExternalIDTooLong, errs.ErrValidation)
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, errs.Mark(ErrInvalidPayload, errs.ErrValidation)
	}

	return &Event{
		id:             uuid.New(),
		organizationID: organizationID,
		eventType:      eventType,
		externalID:     externalID,
		payload:        append(json.RawMessage(nil), payload...),
		status:         StatusPending,
		createdAt:      now,
	}, nil
}

func Reconstruct(id, organizationID uuid.UUID, eventType Type, externalID string, payload []byte, status Status, createdAt time.Time, processedAt *time.Time) *Event {
	return &Event{
		id:             id,
		organizationID: organizationID,
		eventType:      eventType,
		externalID:     externalID,
		payload:        payload,
		status:         status,
		createdAt:      createdAt,
		processedAt:    processedAt,
	}
}

func (e *Event) ID() uuid.UUID             { return e.id }
func (e *Event) OrganizationID() uuid.UUID { return e.organizationID }
func (e *Event) Type() Type                { return e.eventType }
func (e *Event) ExternalID() string        { return e.externalID }
func (e *Event) Payload() json.RawMessage  { return e.payload }
func (e *Event) Status() Status            { return e.status }
func (e *Event) CreatedAt() time.Time      { return e.createdAt }
func (e *Event) ProcessedAt() *time.Time   { return e.processedAt }
func (e *Event) IsResolved() bool          { return e.status.IsTerminal() }

// Recipient reads customer contact data from the current payload.
func (e *Event) Recipient() (Customer, error) {
	var doc struct {
		Customer Customer `json:"customer"`
	}
	if err := json.Unmarshal(e.payload, &doc); err != nil {
		return Customer{}, errs.Mark(ErrInvalidPayload, errs.ErrInvalidRecipient)
	}
	email := strings.TrimSpace(doc.Customer.Email)
	if email == "" {
		return Customer{}, errs.Mark(ErrMissingRecipient, errs.ErrInvalidRecipient)
	}
	if err := validate.Var(email, "email"); err != nil {
		return Customer{}, errs.Mark(errs.Wrap(err, "parse customer email"), errs.ErrInvalidRecipient)
	}
	doc.Customer.Email = email
	return doc.Customer, nil
}

// Data decodes the payload into a generic document for template rendering.
func (e *Event) Data() map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(e.payload, &out)
	return out
}
