package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
)

// Policy controls how attempt delays are applied.
type Policy struct {
	// Immediate collapses every delay to zero.
	Immediate bool
}

// Attempt is one planned notification of an event's campaign.
type Attempt struct {
	EventID       uuid.UUID
	AttemptNumber int
	DueAt         time.Time
	JobID         string
}

// JobID is stable for a given (event, attempt) pair.
func JobID(eventID uuid.UUID, attemptNumber int) string {
	return eventID.String() + "-" + strconv.Itoa(attemptNumber)
}

// Plan computes the attempts for ev relative to its ingestion time. Skipped
// steps are still planned so the executor can close the campaign when the
// last step is a skip.
func Plan(ev *event.Event, policy Policy, registry *campaign.Registry) []Attempt {
	defs := registry.Attempts(ev.Type())
	if len(defs) == 0 {
		return nil
	}
	immediate := policy.Immediate || registry.IsUrgent(ev.Type())
	base := ev.CreatedAt()

	out := make([]Attempt, 0, len(defs))
	for _, d := range defs {
		due := base.Add(d.Delay)
		if immediate {
			due = base
		}
		out = append(out, Attempt{
			EventID:       ev.ID(),
			AttemptNumber: d.Number,
			DueAt:         due,
			JobID:         JobID(ev.ID(), d.Number),
		})
	}
	return out
}

type Scheduler struct {
	registry *campaign.Registry
	maxTries int
	logger   *slog.Logger
}

func NewScheduler(registry *campaign.Registry, maxTries int, logger *slog.Logger) *Scheduler {
	if maxTries <= 0 {
		maxTries = 3
	}
	return &Scheduler{registry: registry, maxTries: maxTries, logger: logger}
}

// Schedule enqueues every planned attempt inside tx and returns the plan.
// Re-enqueuing an existing job id is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, tx shared.Tx, ev *event.Event, policy Policy) ([]Attempt, error) {
	plan := Plan(ev, policy, s.registry)
	for _, a := range plan {
		created, err := tx.Jobs().Enqueue(ctx, tx.DB(), shared.NewJob{
			ID: a.JobID,
			Payload: shared.JobPayload{
				EventID:        ev.ID(),
				OrganizationID: ev.OrganizationID(),
				EventType:      ev.Type(),
				AttemptNumber:  a.AttemptNumber,
			},
			DueAt:    a.DueAt,
			MaxTries: s.maxTries,
		})
		if err != nil {
			return nil, errs.Wrapf(err, "enqueue %s", a.JobID)
		}
		if !created {
			s.logger.Debug("job already enqueued",
				"event_id", ev.ID().String(),
				"attempt_number", a.AttemptNumber,
				"job_id", a.JobID)
		}
	}
	return plan, nil
}

func (s *Scheduler) Registry() *campaign.Registry { return s.registry }
