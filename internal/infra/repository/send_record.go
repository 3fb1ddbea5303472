package repository

import (
	"context"

	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/infra"
	"sales-recovery/internal/infra/db"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sendRecordColumns = `id, event_id, attempt_number, recipient, template_id, provider_message_id, status,
       sent_at, delivered_at, opened_at, clicked_at, bounced_at, error, created_at, updated_at`

const insertSendRecordSQL = `
INSERT INTO send_records (id, event_id, attempt_number, recipient, template_id, provider_message_id, status,
                          sent_at, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (event_id, attempt_number) DO NOTHING`

const selectSendRecordByAttemptSQL = `
SELECT ` + sendRecordColumns + `
FROM send_records
WHERE event_id = $1 AND attempt_number = $2`

const selectSendRecordByMessageIDForUpdateSQL = `
SELECT ` + sendRecordColumns + `
FROM send_records
WHERE provider_message_id = $1
FOR UPDATE`

const selectSendRecordsByEventSQL = `
SELECT ` + sendRecordColumns + `
FROM send_records
WHERE event_id = $1
ORDER BY attempt_number`

const updateSendRecordStatusSQL = `
UPDATE send_records
SET status = $2,
    delivered_at = $3,
    opened_at = $4,
    clicked_at = $5,
    bounced_at = $6,
    error = $7,
    updated_at = $8
WHERE id = $1`

type SendRecordRepository struct{}

func NewSendRecordRepository() *SendRecordRepository {
	return &SendRecordRepository{}
}

func (r *SendRecordRepository) Create(ctx context.Context, tx db.DBTX, rec *sendrecord.Record) (bool, error) {
	f := rec.Fields()
	tag, err := tx.Exec(ctx, insertSendRecordSQL,
		f.ID,
		f.EventID,
		f.AttemptNumber,
		f.Recipient,
		f.TemplateID,
		pgconv.StringPtrToPgtype(f.ProviderMessageID),
		string(f.Status),
		pgconv.TimePtrToPgtype(f.SentAt),
		pgconv.StringPtrToPgtype(f.Error),
		pgconv.TimeToPgtype(f.CreatedAt),
		pgconv.TimeToPgtype(f.UpdatedAt),
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to create send record", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SendRecordRepository) FindByAttempt(ctx context.Context, tx db.DBTX, eventID uuid.UUID, attemptNumber int) (*sendrecord.Record, error) {
	rec, err := scanSendRecord(tx.QueryRow(ctx, selectSendRecordByAttemptSQL, eventID, attemptNumber))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find send record", err)
	}
	return rec, nil
}

// FindByProviderMessageIDForUpdate locks the row until the surrounding
// transaction ends.
func (r *SendRecordRepository) FindByProviderMessageIDForUpdate(ctx context.Context, tx db.DBTX, providerMessageID string) (*sendrecord.Record, error) {
	rec, err := scanSendRecord(tx.QueryRow(ctx, selectSendRecordByMessageIDForUpdateSQL, providerMessageID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find send record by message id", err)
	}
	return rec, nil
}

func (r *SendRecordRepository) ListByEvent(ctx context.Context, tx db.DBTX, eventID uuid.UUID) ([]*sendrecord.Record, error) {
	rows, err := tx.Query(ctx, selectSendRecordsByEventSQL, eventID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list send records", err)
	}
	defer rows.Close()

	var out []*sendrecord.Record
	for rows.Next() {
		rec, scanErr := scanSendRecord(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan send record", scanErr)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate send records", err)
	}
	return out, nil
}

func (r *SendRecordRepository) UpdateStatus(ctx context.Context, tx db.DBTX, rec *sendrecord.Record) error {
	f := rec.Fields()
	tag, err := tx.Exec(ctx, updateSendRecordStatusSQL,
		f.ID,
		string(f.Status),
		pgconv.TimePtrToPgtype(f.DeliveredAt),
		pgconv.TimePtrToPgtype(f.OpenedAt),
		pgconv.TimePtrToPgtype(f.ClickedAt),
		pgconv.TimePtrToPgtype(f.BouncedAt),
		pgconv.StringPtrToPgtype(f.Error),
		pgconv.TimeToPgtype(f.UpdatedAt),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update send record status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
	}
	return nil
}

func scanSendRecord(row pgx.Row) (*sendrecord.Record, error) {
	var (
		f                                        sendrecord.Fields
		status                                   string
		providerMessageID, lastError             pgtype.Text
		sentAt, deliveredAt, openedAt, clickedAt pgtype.Timestamptz
		bouncedAt, createdAt, updatedAt          pgtype.Timestamptz
	)
	err := row.Scan(
		&f.ID, &f.EventID, &f.AttemptNumber, &f.Recipient, &f.TemplateID, &providerMessageID, &status,
		&sentAt, &deliveredAt, &openedAt, &clickedAt, &bouncedAt, &lastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = sendrecord.Status(status)
	f.ProviderMessageID = pgconv.StringPtrFromPgtype(providerMessageID)
	f.Error = pgconv.StringPtrFromPgtype(lastError)
	f.SentAt = pgconv.TimePtrFromPgtype(sentAt)
	f.DeliveredAt = pgconv.TimePtrFromPgtype(deliveredAt)
	f.OpenedAt = pgconv.TimePtrFromPgtype(openedAt)
	f.ClickedAt = pgconv.TimePtrFromPgtype(clickedAt)
	f.BouncedAt = pgconv.TimePtrFromPgtype(bouncedAt)
	f.CreatedAt = createdAt.Time
	f.UpdatedAt = updatedAt.Time
	return sendrecord.Reconstruct(f), nil
}
