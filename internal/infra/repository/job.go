package repository

import (
	"context"
	"encoding/json"
	"time"

	"sales-recovery/internal/infra"
	"sales-recovery/internal/infra/db"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/pgconv"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const enqueueJobSQL = `
INSERT INTO campaign_jobs (id, event_id, payload, due_at, status, tries, max_tries, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'queued', 0, $5, now(), now())
ON CONFLICT (id) DO NOTHING`

// Queued rows become claimable at due_at; running rows again once their lease
// expires, which recovers jobs held by a crashed worker.
const claimDueJobsSQL = `
WITH due AS (
    SELECT id
    FROM campaign_jobs
    WHERE (status = 'queued' AND due_at <= $1)
       OR (status = 'running' AND locked_until <= $1)
    ORDER BY due_at
    FOR UPDATE SKIP LOCKED
    LIMIT $3
)
UPDATE campaign_jobs j
SET status = 'running',
    tries = j.tries + 1,
    locked_until = $2,
    updated_at = $1
FROM due
WHERE j.id = due.id
RETURNING j.id, j.payload, j.status, j.due_at, j.tries, j.max_tries, j.last_error`

const completeJobSQL = `
UPDATE campaign_jobs
SET status = 'done', locked_until = NULL, updated_at = $2
WHERE id = $1`

const retryJobSQL = `
UPDATE campaign_jobs
SET status = 'queued', due_at = $2, last_error = $3, locked_until = NULL, updated_at = now()
WHERE id = $1`

const failJobSQL = `
UPDATE campaign_jobs
SET status = 'failed', last_error = $2, locked_until = NULL, updated_at = now()
WHERE id = $1`

const selectJobsByEventSQL = `
SELECT id, payload, status, due_at, tries, max_tries, last_error
FROM campaign_jobs
WHERE event_id = $1
ORDER BY due_at, id`

// JobRepository is the campaign job queue backed by the campaign_jobs table.
type JobRepository struct{}

func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

func (r *JobRepository) Enqueue(ctx context.Context, tx db.DBTX, job shared.NewJob) (bool, error) {
	payload, err := job.Payload.Marshal()
	if err != nil {
		return false, errs.Wrap(err, "marshal job payload")
	}
	tag, err := tx.Exec(ctx, enqueueJobSQL,
		job.ID,
		job.Payload.EventID,
		payload,
		pgconv.TimeToPgtype(job.DueAt),
		job.MaxTries,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to enqueue job", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *JobRepository) ClaimDue(ctx context.Context, tx db.DBTX, now, leaseUntil time.Time, limit int) ([]shared.Job, error) {
	rows, err := tx.Query(ctx, claimDueJobsSQL, pgconv.TimeToPgtype(now), pgconv.TimeToPgtype(leaseUntil), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim due jobs", err)
	}
	return collectJobs(rows)
}

func (r *JobRepository) Complete(ctx context.Context, tx db.DBTX, id string, at time.Time) error {
	if _, err := tx.Exec(ctx, completeJobSQL, id, pgconv.TimeToPgtype(at)); err != nil {
		return infra.WrapRepoErr("failed to complete job", err)
	}
	return nil
}

func (r *JobRepository) Retry(ctx context.Context, tx db.DBTX, id string, dueAt time.Time, lastErr string) error {
	if _, err := tx.Exec(ctx, retryJobSQL, id, pgconv.TimeToPgtype(dueAt), lastErr); err != nil {
		return infra.WrapRepoErr("failed to reschedule job", err)
	}
	return nil
}

func (r *JobRepository) Fail(ctx context.Context, tx db.DBTX, id string, lastErr string) error {
	if _, err := tx.Exec(ctx, failJobSQL, id, lastErr); err != nil {
		return infra.WrapRepoErr("failed to mark job failed", err)
	}
	return nil
}

func (r *JobRepository) ListByEvent(ctx context.Context, tx db.DBTX, eventID uuid.UUID) ([]shared.Job, error) {
	rows, err := tx.Query(ctx, selectJobsByEventSQL, eventID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list jobs", err)
	}
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]shared.Job, error) {
	defer rows.Close()

	var out []shared.Job
	for rows.Next() {
		var (
			job       shared.Job
			payload   []byte
			status    string
			dueAt     pgtype.Timestamptz
			lastError pgtype.Text
		)
		if err := rows.Scan(&job.ID, &payload, &status, &dueAt, &job.Tries, &job.MaxTries, &lastError); err != nil {
			return nil, infra.WrapRepoErr("failed to scan job", err)
		}
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, errs.Wrapf(err, "decode payload of job %s", job.ID)
		}
		job.Status = shared.JobStatus(status)
		job.DueAt = dueAt.Time
		job.LastError = pgconv.StringPtrFromPgtype(lastError)
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate jobs", err)
	}
	return out, nil
}
