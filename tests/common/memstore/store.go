//go:build unit || e2e

// Package memstore is an in-memory UnitOfWork with the same semantics as the
// Postgres repositories, for use case tests.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/domain/tenant"
	"sales-recovery/internal/infra"
	"sales-recovery/internal/infra/db"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
)

type eventRow struct {
	id             uuid.UUID
	organizationID uuid.UUID
	eventType      event.Type
	externalID     string
	payload        []byte
	status         event.Status
	createdAt      time.Time
	processedAt    *time.Time
}

type jobRow struct {
	job         shared.Job
	lockedUntil *time.Time
}

type tenantRow struct {
	tenant tenant.Tenant
	sealed []byte
}

type state struct {
	events  map[uuid.UUID]eventRow
	records map[uuid.UUID]sendrecord.Fields
	jobs    map[string]jobRow
	tenants map[uuid.UUID]tenantRow
}

func (s state) clone() state {
	out := state{
		events:  make(map[uuid.UUID]eventRow, len(s.events)),
		records: make(map[uuid.UUID]sendrecord.Fields, len(s.records)),
		jobs:    make(map[string]jobRow, len(s.jobs)),
		tenants: make(map[uuid.UUID]tenantRow, len(s.tenants)),
	}
	for k, v := range s.events {
		out.events[k] = v
	}
	for k, v := range s.records {
		out.records[k] = v
	}
	for k, v := range s.jobs {
		out.jobs[k] = v
	}
	for k, v := range s.tenants {
		out.tenants[k] = v
	}
	return out
}

// Store serializes every unit of work; Within rolls back on error.
type Store struct {
	mu    sync.Mutex
	state state

	// FailNext makes the next repository call fail with this error.
	FailNext error
}

func New() *Store {
	return &Store{state: state{
		events:  map[uuid.UUID]eventRow{},
		records: map[uuid.UUID]sendrecord.Fields{},
		jobs:    map[string]jobRow{},
		tenants: map[uuid.UUID]tenantRow{},
	}}
}

var _ shared.UnitOfWork = (*Store)(nil)

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) WithDB(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &memTx{s: s})
}

func (s *Store) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

type memTx struct{ s *Store }

func (t *memTx) Events() shared.EventRepository           { return eventRepo{t.s} }
func (t *memTx) SendRecords() shared.SendRecordRepository { return recordRepo{t.s} }
func (t *memTx) Jobs() shared.JobRepository               { return jobRepo{t.s} }
func (t *memTx) Tenants() shared.TenantRepository         { return tenantRepo{t.s} }
func (t *memTx) DB() db.DBTX                              { return nil }

// --- seeding and inspection, safe to call outside a unit of work ---

func (s *Store) AddTenant(t tenant.Tenant, sealed []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tenants[t.ID] = tenantRow{tenant: t, sealed: slices.Clone(sealed)}
}

func (s *Store) AddEvent(ev *event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.events[ev.ID()] = toEventRow(ev)
}

func (s *Store) AddSendRecord(rec *sendrecord.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.records[rec.ID()] = rec.Fields()
}

func (s *Store) Event(id uuid.UUID) *event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.events[id]
	if !ok {
		return nil
	}
	return row.toDomain()
}

func (s *Store) Events() []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*event.Event, 0, len(s.state.events))
	for _, row := range s.state.events {
		out = append(out, row.toDomain())
	}
	return out
}

func (s *Store) SendRecords(eventID uuid.UUID) []*sendrecord.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsOf(eventID)
}

func (s *Store) Jobs() []shared.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.Job, 0, len(s.state.jobs))
	for _, row := range s.state.jobs {
		out = append(out, row.job)
	}
	sortJobs(out)
	return out
}

func (s *Store) Job(id string) (shared.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.jobs[id]
	return row.job, ok
}

// ExpireLease makes a running job claimable again.
func (s *Store) ExpireLease(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.state.jobs[id]
	row.lockedUntil = &at
	s.state.jobs[id] = row
}

func (s *Store) recordsOf(eventID uuid.UUID) []*sendrecord.Record {
	var out []*sendrecord.Record
	for _, f := range s.state.records {
		if f.EventID == eventID {
			out = append(out, sendrecord.Reconstruct(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber() < out[j].AttemptNumber() })
	return out
}

func toEventRow(ev *event.Event) eventRow {
	return eventRow{
		id:             ev.ID(),
		organizationID: ev.OrganizationID(),
		eventType:      ev.Type(),
		externalID:     ev.ExternalID(),
		payload:        slices.Clone([]byte(ev.Payload())),
		status:         ev.Status(),
		createdAt:      ev.CreatedAt(),
		processedAt:    ev.ProcessedAt(),
	}
}

func (r eventRow) toDomain() *event.Event {
	return event.Reconstruct(r.id, r.organizationID, r.eventType, r.externalID, r.payload, r.status, r.createdAt, r.processedAt)
}

func sortJobs(jobs []shared.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].DueAt.Equal(jobs[j].DueAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].DueAt.Before(jobs[j].DueAt)
	})
}

// --- events ---

type eventRepo struct{ s *Store }

func (r eventRepo) InsertIfAbsent(_ context.Context, _ db.DBTX, ev *event.Event) (*event.Event, bool, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, false, err
	}
	for _, row := range r.s.state.events {
		if row.organizationID == ev.OrganizationID() && row.eventType == ev.Type() && row.externalID == ev.ExternalID() {
			return row.toDomain(), false, nil
		}
	}
	r.s.state.events[ev.ID()] = toEventRow(ev)
	return r.s.state.events[ev.ID()].toDomain(), true, nil
}

func (r eventRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*event.Event, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	row, ok := r.s.state.events[id]
	if !ok {
		return nil, infra.NotFound("event not found", errs.ErrEventNotFound)
	}
	return row.toDomain(), nil
}

func (r eventRepo) LockByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*event.Event, error) {
	return r.FindByID(ctx, tx, id)
}

func (r eventRepo) MarkProcessed(_ context.Context, _ db.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	return r.mark(id, event.StatusProcessed, at)
}

func (r eventRepo) MarkFailed(_ context.Context, _ db.DBTX, id uuid.UUID, at time.Time) (bool, error) {
	return r.mark(id, event.StatusFailed, at)
}

func (r eventRepo) mark(id uuid.UUID, status event.Status, at time.Time) (bool, error) {
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	row, ok := r.s.state.events[id]
	if !ok || row.status != event.StatusPending {
		return false, nil
	}
	row.status = status
	row.processedAt = &at
	r.s.state.events[id] = row
	return true, nil
}

func (r eventRepo) ResolvePending(_ context.Context, _ db.DBTX, organizationID uuid.UUID, externalID string, types []event.Type, at time.Time) (int64, error) {
	if err := r.s.takeFailure(); err != nil {
		return 0, err
	}
	var n int64
	for id, row := range r.s.state.events {
		if row.organizationID != organizationID || row.externalID != externalID ||
			row.status != event.StatusPending || !slices.Contains(types, row.eventType) {
			continue
		}
		row.status = event.StatusProcessed
		row.processedAt = &at
		r.s.state.events[id] = row
		n++
	}
	return n, nil
}

func (r eventRepo) ListByOrganization(_ context.Context, _ db.DBTX, f shared.EventFilter) ([]*event.Event, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	var rows []eventRow
	for _, row := range r.s.state.events {
		if row.organizationID != f.OrganizationID {
			continue
		}
		if f.Status != nil && row.status != *f.Status {
			continue
		}
		if f.Type != nil && row.eventType != *f.Type {
			continue
		}
		if f.After != nil && !olderThan(row, *f.After) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return olderThan(rows[j], shared.EventKey{CreatedAt: rows[i].createdAt, ID: rows[i].id})
	})
	if len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]*event.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func olderThan(row eventRow, key shared.EventKey) bool {
	if row.createdAt.Equal(key.CreatedAt) {
		return bytes.Compare(row.id[:], key.ID[:]) < 0
	}
	return row.createdAt.Before(key.CreatedAt)
}

// --- send records ---

type recordRepo struct{ s *Store }

func (r recordRepo) Create(_ context.Context, _ db.DBTX, rec *sendrecord.Record) (bool, error) {
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	for _, f := range r.s.state.records {
		if f.EventID == rec.EventID() && f.AttemptNumber == rec.AttemptNumber() {
			return false, nil
		}
	}
	r.s.state.records[rec.ID()] = rec.Fields()
	return true, nil
}

func (r recordRepo) FindByAttempt(_ context.Context, _ db.DBTX, eventID uuid.UUID, attemptNumber int) (*sendrecord.Record, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	for _, f := range r.s.state.records {
		if f.EventID == eventID && f.AttemptNumber == attemptNumber {
			return sendrecord.Reconstruct(f), nil
		}
	}
	return nil, infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
}

func (r recordRepo) FindByProviderMessageIDForUpdate(_ context.Context, _ db.DBTX, providerMessageID string) (*sendrecord.Record, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	for _, f := range r.s.state.records {
		if f.ProviderMessageID != nil && *f.ProviderMessageID == providerMessageID {
			return sendrecord.Reconstruct(f), nil
		}
	}
	return nil, infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
}

func (r recordRepo) ListByEvent(_ context.Context, _ db.DBTX, eventID uuid.UUID) ([]*sendrecord.Record, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	return r.s.recordsOf(eventID), nil
}

func (r recordRepo) UpdateStatus(_ context.Context, _ db.DBTX, rec *sendrecord.Record) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.state.records[rec.ID()]; !ok {
		return infra.NotFound("send record not found", errs.ErrSendRecordNotFound)
	}
	r.s.state.records[rec.ID()] = rec.Fields()
	return nil
}

// --- jobs ---

type jobRepo struct{ s *Store }

func (r jobRepo) Enqueue(_ context.Context, _ db.DBTX, nj shared.NewJob) (bool, error) {
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	if _, exists := r.s.state.jobs[nj.ID]; exists {
		return false, nil
	}
	// round-trip the payload like the jsonb column does
	raw, err := nj.Payload.Marshal()
	if err != nil {
		return false, err
	}
	var payload shared.JobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, err
	}
	r.s.state.jobs[nj.ID] = jobRow{job: shared.Job{
		ID:       nj.ID,
		Payload:  payload,
		Status:   shared.JobStatusQueued,
		DueAt:    nj.DueAt,
		MaxTries: nj.MaxTries,
	}}
	return true, nil
}

func (r jobRepo) ClaimDue(_ context.Context, _ db.DBTX, now, leaseUntil time.Time, limit int) ([]shared.Job, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	var due []shared.Job
	for _, row := range r.s.state.jobs {
		queued := row.job.Status == shared.JobStatusQueued && !row.job.DueAt.After(now)
		expired := row.job.Status == shared.JobStatusRunning && row.lockedUntil != nil && !row.lockedUntil.After(now)
		if queued || expired {
			due = append(due, row.job)
		}
	}
	sortJobs(due)
	if len(due) > limit {
		due = due[:limit]
	}
	lease := leaseUntil
	for i := range due {
		due[i].Status = shared.JobStatusRunning
		due[i].Tries++
		r.s.state.jobs[due[i].ID] = jobRow{job: due[i], lockedUntil: &lease}
	}
	return due, nil
}

func (r jobRepo) Complete(_ context.Context, _ db.DBTX, id string, _ time.Time) error {
	return r.update(id, func(row *jobRow) {
		row.job.Status = shared.JobStatusDone
	})
}

func (r jobRepo) Retry(_ context.Context, _ db.DBTX, id string, dueAt time.Time, lastErr string) error {
	return r.update(id, func(row *jobRow) {
		row.job.Status = shared.JobStatusQueued
		row.job.DueAt = dueAt
		row.job.LastError = &lastErr
	})
}

func (r jobRepo) Fail(_ context.Context, _ db.DBTX, id string, lastErr string) error {
	return r.update(id, func(row *jobRow) {
		row.job.Status = shared.JobStatusFailed
		row.job.LastError = &lastErr
	})
}

func (r jobRepo) update(id string, fn func(row *jobRow)) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	row, ok := r.s.state.jobs[id]
	if !ok {
		return nil
	}
	fn(&row)
	row.lockedUntil = nil
	r.s.state.jobs[id] = row
	return nil
}

func (r jobRepo) ListByEvent(_ context.Context, _ db.DBTX, eventID uuid.UUID) ([]shared.Job, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	var out []shared.Job
	for _, row := range r.s.state.jobs {
		if row.job.Payload.EventID == eventID {
			out = append(out, row.job)
		}
	}
	sortJobs(out)
	return out, nil
}

// --- tenants ---

type tenantRepo struct{ s *Store }

func (r tenantRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*tenant.Tenant, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	row, ok := r.s.state.tenants[id]
	if !ok {
		return nil, infra.NotFound("tenant not found", errs.ErrUnknownTenant)
	}
	t := row.tenant
	return &t, nil
}

func (r tenantRepo) SealedSecret(_ context.Context, _ db.DBTX, id uuid.UUID) ([]byte, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	row, ok := r.s.state.tenants[id]
	if !ok {
		return nil, infra.NotFound("tenant not found", errs.ErrUnknownTenant)
	}
	return slices.Clone(row.sealed), nil
}

func (r tenantRepo) Create(_ context.Context, _ db.DBTX, t *tenant.Tenant, sealedSecret []byte) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	r.s.state.tenants[t.ID] = tenantRow{tenant: *t, sealed: slices.Clone(sealedSecret)}
	return nil
}
