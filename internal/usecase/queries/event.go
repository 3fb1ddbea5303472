package queries

import (
	"context"
	"encoding/json"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type EventView struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	EventType       string
	ExternalID      string
	Status          string
	Payload         json.RawMessage
	CreatedAt       time.Time
	ProcessedAt     *time.Time
	RegistryVersion string
	SendRecords     []SendRecordView
	Jobs            []JobView
}

type SendRecordView struct {
	AttemptNumber     int
	Recipient         string
	TemplateID        string
	ProviderMessageID *string
	Status            string
	SentAt            *time.Time
	DeliveredAt       *time.Time
	OpenedAt          *time.Time
	ClickedAt         *time.Time
	BouncedAt         *time.Time
	Error             *string
}

type JobView struct {
	ID            string
	AttemptNumber int
	Status        string
	DueAt         time.Time
	Tries         int
	MaxTries      int
	LastError     *string
}

type EventSummary struct {
	ID          uuid.UUID
	EventType   string
	ExternalID  string
	Status      string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type ListEventsInput struct {
	OrganizationID uuid.UUID
	Status         string
	EventType      string
	After          string
	Limit          int
}

// EventPage is one page of a tenant's events, newest first. NextCursor is
// empty on the last page.
type EventPage struct {
	Events     []EventSummary
	NextCursor string
}

//go:generate mockgen -source=event.go -destination=../../../tests/mock/queries/event_mock.go -package=queriesmock

type EventQueries interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*EventView, error)
	ListEvents(ctx context.Context, in ListEventsInput) (*EventPage, error)
}

type eventQueriesImpl struct {
	uow      shared.UnitOfWork
	registry *campaign.Registry
}

func NewEventQueries(uow shared.UnitOfWork, registry *campaign.Registry) EventQueries {
	return &eventQueriesImpl{uow: uow, registry: registry}
}

func (q *eventQueriesImpl) GetEvent(ctx context.Context, id uuid.UUID) (*EventView, error) {
	var view *EventView
	err := q.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		ev, err := tx.Events().FindByID(ctx, tx.DB(), id)
		if err != nil {
			return err
		}
		records, err := tx.SendRecords().ListByEvent(ctx, tx.DB(), id)
		if err != nil {
			return err
		}
		jobs, err := tx.Jobs().ListByEvent(ctx, tx.DB(), id)
		if err != nil {
			return err
		}

		view = &EventView{
			ID:              ev.ID(),
			OrganizationID:  ev.OrganizationID(),
			EventType:       ev.Type().String(),
			ExternalID:      ev.ExternalID(),
			Status:          ev.Status().String(),
			Payload:         ev.Payload(),
			CreatedAt:       ev.CreatedAt(),
			ProcessedAt:     ev.ProcessedAt(),
			RegistryVersion: q.registry.Version(),
			SendRecords:     make([]SendRecordView, 0, len(records)),
			Jobs:            make([]JobView, 0, len(jobs)),
		}
		for _, rec := range records {
			view.SendRecords = append(view.SendRecords, toSendRecordView(rec))
		}
		for _, j := range jobs {
			view.Jobs = append(view.Jobs, JobView{
				ID:            j.ID,
				AttemptNumber: j.Payload.AttemptNumber,
				Status:        string(j.Status),
				DueAt:         j.DueAt,
				Tries:         j.Tries,
				MaxTries:      j.MaxTries,
				LastError:     j.LastError,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (q *eventQueriesImpl) ListEvents(ctx context.Context, in ListEventsInput) (*EventPage, error) {
	filter := shared.EventFilter{
		OrganizationID: in.OrganizationID,
		Limit:          ValidateLimit(in.Limit) + 1,
	}
	if in.Status != "" {
		st, err := event.ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	if in.EventType != "" {
		t, err := event.ParseType(in.EventType)
		if err != nil {
			return nil, err
		}
		filter.Type = &t
	}
	if in.After != "" {
		key, err := DecodeAfterCursor(in.After)
		if err != nil {
			return nil, err
		}
		filter.After = &key
	}

	var events []*event.Event
	err := q.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		events, err = tx.Events().ListByOrganization(ctx, tx.DB(), filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	// one extra row tells whether another page exists
	page := &EventPage{Events: make([]EventSummary, 0, len(events))}
	if len(events) == filter.Limit {
		events = events[:len(events)-1]
		last := events[len(events)-1]
		page.NextCursor = EncodeAfterCursor(shared.EventKey{CreatedAt: last.CreatedAt(), ID: last.ID()})
	}
	for _, ev := range events {
		page.Events = append(page.Events, EventSummary{
			ID:          ev.ID(),
			EventType:   ev.Type().String(),
			ExternalID:  ev.ExternalID(),
			Status:      ev.Status().String(),
			CreatedAt:   ev.CreatedAt(),
			ProcessedAt: ev.ProcessedAt(),
		})
	}
	return page, nil
}

func toSendRecordView(rec *sendrecord.Record) SendRecordView {
	return SendRecordView{
		AttemptNumber:     rec.AttemptNumber(),
		Recipient:         rec.Recipient(),
		TemplateID:        rec.TemplateID(),
		ProviderMessageID: rec.ProviderMessageID(),
		Status:            rec.Status().String(),
		SentAt:            rec.SentAt(),
		DeliveredAt:       rec.DeliveredAt(),
		OpenedAt:          rec.OpenedAt(),
		ClickedAt:         rec.ClickedAt(),
		BouncedAt:         rec.BouncedAt(),
		Error:             rec.Error(),
	}
}
