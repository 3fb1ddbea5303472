package repository

import (
	"context"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/infra"
	"sales-recovery/internal/infra/db"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/pgconv"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const eventColumns = `id, organization_id, event_type, external_id, payload, status, created_at, processed_at`

const insertEventIfAbsentSQL = `
INSERT INTO events (id, organization_id, event_type, external_id, payload, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (organization_id, event_type, external_id) DO NOTHING
RETURNING ` + eventColumns

const selectEventByNaturalKeySQL = `
SELECT ` + eventColumns + `
FROM events
WHERE organization_id = $1 AND event_type = $2 AND external_id = $3`

const selectEventByIDSQL = `
SELECT ` + eventColumns + `
FROM events
WHERE id = $1`

const selectEventForUpdateSQL = `
SELECT ` + eventColumns + `
FROM events
WHERE id = $1
FOR UPDATE`

const markEventSQL = `
UPDATE events
SET status = $2, processed_at = $3
WHERE id = $1 AND status = 'PENDING'`

const resolvePendingSQL = `
UPDATE events
SET status = 'PROCESSED', processed_at = $4
WHERE organization_id = $1
  AND external_id = $2
  AND event_type = ANY($3)
  AND status = 'PENDING'`

const listEventsByOrganizationSQL = `
SELECT ` + eventColumns + `
FROM events
WHERE organization_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR event_type = $3)
  AND ($4::timestamptz IS NULL OR (created_at, id) < ($4, $5))
ORDER BY created_at DESC, id DESC
LIMIT $6`

type EventRepository struct{}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func (r *EventRepository) InsertIfAbsent(ctx context.Context, tx db.DBTX, ev *event.Event) (*event.Event, bool, error) {
	row := tx.QueryRow(ctx, insertEventIfAbsentSQL,
		ev.ID(),
		ev.OrganizationID(),
		string(ev.Type()),
		ev.ExternalID(),
		[]byte(ev.Payload()),
		string(ev.Status()),
		pgconv.TimeToPgtype(ev.CreatedAt()),
	)
	stored, err := scanEvent(row)
	if err == nil {
		return stored, true, nil
	}
	if !pgconv.IsNoRows(err) {
		return nil, false, infra.WrapRepoErr("failed to insert event", err)
	}

	// Conflict: the natural key is already stored.
	existing, err := scanEvent(tx.QueryRow(ctx, selectEventByNaturalKeySQL,
		ev.OrganizationID(), string(ev.Type()), ev.ExternalID()))
	if err != nil {
		return nil, false, infra.WrapRepoErr("failed to load existing event", err)
	}
	return existing, false, nil
}

func (r *EventRepository) FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error) {
	ev, err := scanEvent(tx.QueryRow(ctx, selectEventByIDSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("event not found", errs.ErrEventNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find event", err)
	}
	return ev, nil
}

// LockByID reads the event and holds its row lock until the transaction ends.
func (r *EventRepository) LockByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error) {
	ev, err := scanEvent(tx.QueryRow(ctx, selectEventForUpdateSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("event not found", errs.ErrEventNotFound)
		}
		return nil, infra.WrapRepoErr("failed to lock event", err)
	}
	return ev, nil
}

func (r *EventRepository) MarkProcessed(ctx context.Context, tx db.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	return r.mark(ctx, tx, id, event.StatusProcessed, at)
}

func (r *EventRepository) MarkFailed(ctx context.Context, tx db.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	return r.mark(ctx, tx, id, event.StatusFailed, at)
}

func (r *EventRepository) mark(ctx context.Context, tx db.DBTX, id uuid.UUID, status event.Status, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, markEventSQL, id, string(status), pgconv.TimeToPgtype(at))
	if err != nil {
		return false, infra.WrapRepoErr("failed to update event status", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *EventRepository) ResolvePending(ctx context.Context, tx db.DBTX, organizationID uuid.UUID, externalID string, types []event.Type, at time.Time) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	tag, err := tx.Exec(ctx, resolvePendingSQL, organizationID, externalID, names, pgconv.TimeToPgtype(at))
	if err != nil {
		return 0, infra.WrapRepoErr("failed to resolve pending events", err)
	}
	return tag.RowsAffected(), nil
}

func (r *EventRepository) ListByOrganization(ctx context.Context, tx db.DBTX, f shared.EventFilter) ([]*event.Event, error) {
	var status, eventType pgtype.Text
	if f.Status != nil {
		status = pgconv.StringToPgtype(f.Status.String())
	}
	if f.Type != nil {
		eventType = pgconv.StringToPgtype(f.Type.String())
	}
	var afterAt pgtype.Timestamptz
	afterID := uuid.Nil
	if f.After != nil {
		afterAt = pgconv.TimeToPgtype(f.After.CreatedAt)
		afterID = f.After.ID
	}

	rows, err := tx.Query(ctx, listEventsByOrganizationSQL, f.OrganizationID, status, eventType, afterAt, afterID, f.Limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list events", err)
	}
	defer rows.Close()

	out := make([]*event.Event, 0, f.Limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan event", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate events", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	var (
		id, orgID          uuid.UUID
		eventType          string
		externalID, status string
		payload            []byte
		createdAt, procAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &orgID, &eventType, &externalID, &payload, &status, &createdAt, &procAt); err != nil {
		return nil, err
	}
	return event.Reconstruct(
		id, orgID, event.Type(eventType), externalID, payload,
		event.Status(status), createdAt.Time, pgconv.TimePtrFromPgtype(procAt),
	), nil
}
