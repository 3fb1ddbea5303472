package sendrecord

import (
	"time"

	"github.com/google/uuid"
)

// Record is the outcome of one executed attempt. It is created by the
// executor and afterwards only advanced by provider callbacks.
type Record struct {
	id                uuid.UUID
	eventID           uuid.UUID
	attemptNumber     int
	recipient         string
	templateID        string
	providerMessageID *string
	status            Status
	sentAt            *time.Time
	deliveredAt       *time.Time
	openedAt          *time.Time
	clickedAt         *time.Time
	bouncedAt         *time.Time
	lastError         *string
	createdAt         time.Time
	updatedAt         time.Time
}

// Fields carries every persisted column for Reconstruct.
type Fields struct {
	ID                uuid.UUID
	EventID           uuid.UUID
	AttemptNumber     int
	Recipient         string
	TemplateID        string
	ProviderMessageID *string
	Status            Status
	SentAt            *time.Time
	DeliveredAt       *time.Time
	OpenedAt          *time.Time
	ClickedAt         *time.Time
	BouncedAt         *time.Time
	Error             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewSent(eventID uuid.UUID, attemptNumber int, recipient, templateID, providerMessageID string, now time.Time) *Record {
	msgID := providerMessageID
	sentAt := now
	return &Record{
		id:                uuid.New(),
		eventID:           eventID,
		attemptNumber:     attemptNumber,
		recipient:         recipient,
		templateID:        templateID,
		providerMessageID: &msgID,
		status:            StatusSent,
		sentAt:            &sentAt,
		createdAt:         now,
		updatedAt:         now,
	}
}

func NewFailed(eventID uuid.UUID, attemptNumber int, recipient, templateID, reason string, now time.Time) *Record {
	msg := reason
	return &Record{
		id:            uuid.New(),
		eventID:       eventID,
		attemptNumber: attemptNumber,
		recipient:     recipient,
		templateID:    templateID,
		status:        StatusFailed,
		lastError:     &msg,
		createdAt:     now,
		updatedAt:     now,
	}
}

func Reconstruct(f Fields) *Record {
	return &Record{
		id:                f.ID,
		eventID:           f.EventID,
		attemptNumber:     f.AttemptNumber,
		recipient:         f.Recipient,
		templateID:        f.TemplateID,
		providerMessageID: f.ProviderMessageID,
		status:            f.Status,
		sentAt:            f.SentAt,
		deliveredAt:       f.DeliveredAt,
		openedAt:          f.OpenedAt,
		clickedAt:         f.ClickedAt,
		bouncedAt:         f.BouncedAt,
		lastError:         f.Error,
		createdAt:         f.CreatedAt,
		updatedAt:         f.UpdatedAt,
	}
}

func (r *Record) ID() uuid.UUID              { return r.id }
func (r *Record) EventID() uuid.UUID         { return r.eventID }
func (r *Record) AttemptNumber() int         { return r.attemptNumber }
func (r *Record) Recipient() string          { return r.recipient }
func (r *Record) TemplateID() string         { return r.templateID }
func (r *Record) ProviderMessageID() *string { return r.providerMessageID }
func (r *Record) Status() Status             { return r.status }
func (r *Record) SentAt() *time.Time         { return r.sentAt }
func (r *Record) DeliveredAt() *time.Time    { return r.deliveredAt }
func (r *Record) OpenedAt() *time.Time       { return r.openedAt }
func (r *Record) ClickedAt() *time.Time      { return r.clickedAt }
func (r *Record) BouncedAt() *time.Time      { return r.bouncedAt }
func (r *Record) Error() *string             { return r.lastError }
func (r *Record) CreatedAt() time.Time       { return r.createdAt }
func (r *Record) UpdatedAt() time.Time       { return r.updatedAt }

// Advance moves the record to status "to" at time "at". It returns false and
// leaves the record untouched when the move would regress or repeat.
func (r *Record) Advance(to Status, at time.Time) bool {
	if !CanTransition(r.status, to) {
		return false
	}
	stamp := at
	switch to {
	case StatusSent:
		r.sentAt = &stamp
	case StatusDelivered:
		r.deliveredAt = &stamp
	case StatusOpened:
		r.openedAt = &stamp
	case StatusClicked:
		r.clickedAt = &stamp
	case StatusBounced:
		r.bouncedAt = &stamp
	}
	r.status = to
	r.updatedAt = at
	return true
}

// Fields snapshots the record for persistence.
func (r *Record) Fields() Fields {
	return Fields{
		ID:                r.id,
		EventID:           r.eventID,
		AttemptNumber:     r.attemptNumber,
		Recipient:         r.recipient,
		TemplateID:        r.templateID,
		ProviderMessageID: r.providerMessageID,
		Status:            r.status,
		SentAt:            r.sentAt,
		DeliveredAt:       r.deliveredAt,
		OpenedAt:          r.openedAt,
		ClickedAt:         r.clickedAt,
		BouncedAt:         r.bouncedAt,
		Error:             r.lastError,
		CreatedAt:         r.createdAt,
		UpdatedAt:         r.updatedAt,
	}
}
