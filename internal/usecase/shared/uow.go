package shared

import (
	"context"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/domain/tenant"
	"sales-recovery/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single statements using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Events() EventRepository
	SendRecords() SendRecordRepository
	Jobs() JobRepository
	Tenants() TenantRepository
	DB() db.DBTX
}

type EventRepository interface {
	// InsertIfAbsent stores ev unless its natural key already exists, in which
	// case the stored event is returned with wasNew=false.
	InsertIfAbsent(ctx context.Context, tx db.DBTX, ev *event.Event) (stored *event.Event, wasNew bool, err error)
	FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error)
	// LockByID is FindByID with a row lock; only meaningful inside Within.
	LockByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error)
	// MarkProcessed and MarkFailed only move PENDING events.
	MarkProcessed(ctx context.Context, tx db.DBTX, id uuid.UUID, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx db.DBTX, id uuid.UUID, at time.Time) (bool, error)
	ResolvePending(ctx context.Context, tx db.DBTX, organizationID uuid.UUID, externalID string, types []event.Type, at time.Time) (int64, error)
	// ListByOrganization pages newest first.
	ListByOrganization(ctx context.Context, tx db.DBTX, filter EventFilter) ([]*event.Event, error)
}

// EventFilter selects one organization's events. When After is set only
// events strictly older than (After.CreatedAt, After.ID) are returned.
type EventFilter struct {
	OrganizationID uuid.UUID
	Status         *event.Status
	Type           *event.Type
	After          *EventKey
	Limit          int
}

type EventKey struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type SendRecordRepository interface {
	// Create returns false when a record for the same (event, attempt) exists.
	Create(ctx context.Context, tx db.DBTX, rec *sendrecord.Record) (bool, error)
	FindByAttempt(ctx context.Context, tx db.DBTX, eventID uuid.UUID, attemptNumber int) (*sendrecord.Record, error)
	FindByProviderMessageIDForUpdate(ctx context.Context, tx db.DBTX, providerMessageID string) (*sendrecord.Record, error)
	ListByEvent(ctx context.Context, tx db.DBTX, eventID uuid.UUID) ([]*sendrecord.Record, error)
	UpdateStatus(ctx context.Context, tx db.DBTX, rec *sendrecord.Record) error
}

type JobRepository interface {
	// Enqueue is a no-op returning false when the job id already exists.
	Enqueue(ctx context.Context, tx db.DBTX, job NewJob) (bool, error)
	// ClaimDue leases up to limit due jobs until leaseUntil and increments
	// their try counter.
	ClaimDue(ctx context.Context, tx db.DBTX, now, leaseUntil time.Time, limit int) ([]Job, error)
	Complete(ctx context.Context, tx db.DBTX, id string, at time.Time) error
	Retry(ctx context.Context, tx db.DBTX, id string, dueAt time.Time, lastErr string) error
	Fail(ctx context.Context, tx db.DBTX, id string, lastErr string) error
	ListByEvent(ctx context.Context, tx db.DBTX, eventID uuid.UUID) ([]Job, error)
}

type TenantRepository interface {
	FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*tenant.Tenant, error)
	SealedSecret(ctx context.Context, tx db.DBTX, id uuid.UUID) ([]byte, error)
	Create(ctx context.Context, tx db.DBTX, t *tenant.Tenant, sealedSecret []byte) error
}
