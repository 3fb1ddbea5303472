package executor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/domain/tenant"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSendTimeout = 10 * time.Second
	tracerName         = "sales-recovery/executor"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes what one execution did. A retryable failure yields an
// error instead.
type Result struct {
	Outcome           Outcome
	Reason            string
	ProviderMessageID string
}

type Executor struct {
	uow         shared.UnitOfWork
	registry    *campaign.Registry
	templates   shared.TemplateCache
	dispatcher  shared.Dispatcher
	clock       clock.Clock
	sendTimeout time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewExecutor(
	uow shared.UnitOfWork,
	registry *campaign.Registry,
	templates shared.TemplateCache,
	dispatcher shared.Dispatcher,
	clk clock.Clock,
	sendTimeout time.Duration,
	logger *slog.Logger,
) *Executor {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Executor{
		uow:         uow,
		registry:    registry,
		templates:   templates,
		dispatcher:  dispatcher,
		clock:       clk,
		sendTimeout: sendTimeout,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// Execute runs one claimed attempt. It returns an error marked
// errs.ErrRetryable when a transient dispatch failure should be retried; once
// the job's tries are exhausted the failure is recorded instead and Execute
// returns a failed Result. An error marked errs.ErrSentUnrecorded means the
// provider accepted the message and only its record is missing; pass it to
// RecordSent. Any other error means nothing was recorded.
func (e *Executor) Execute(ctx context.Context, job shared.Job) (Result, error) {
	p := job.Payload
	log := e.logger.With(
		"event_id", p.EventID.String(),
		"attempt_number", p.AttemptNumber,
		"job_id", job.ID,
	)

	ctx, span := e.tracer.Start(ctx, "campaign.execute", trace.WithAttributes(
		attribute.String("event.id", p.EventID.String()),
		attribute.String("event.type", string(p.EventType)),
		attribute.Int("attempt.number", p.AttemptNumber),
		attribute.Int("job.tries", job.Tries),
	))
	defer span.End()

	res, err := e.execute(ctx, job, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	return res, nil
}

func (e *Executor) execute(ctx context.Context, job shared.Job, log *slog.Logger) (Result, error) {
	p := job.Payload

	var (
		ev       *event.Event
		existing *sendrecord.Record
		tn       *tenant.Tenant
	)
	err := e.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var ferr error
		ev, ferr = tx.Events().FindByID(ctx, tx.DB(), p.EventID)
		if ferr != nil {
			return ferr
		}
		if ev.IsResolved() {
			return nil
		}
		existing, ferr = tx.SendRecords().FindByAttempt(ctx, tx.DB(), p.EventID, p.AttemptNumber)
		if ferr != nil && !errs.Is(ferr, errs.ErrSendRecordNotFound) {
			return ferr
		}
		tn, ferr = tx.Tenants().FindByID(ctx, tx.DB(), ev.OrganizationID())
		if ferr != nil && !errs.Is(ferr, errs.ErrUnknownTenant) {
			return ferr
		}
		return nil
	})
	if err != nil {
		if errs.Is(err, errs.ErrEventNotFound) {
			log.Warn("event not found, dropping job")
			return e.skip(ctx, job, "event not found", log)
		}
		return Result{}, errs.Wrap(err, "load attempt state")
	}

	if ev.IsResolved() {
		log.Info("event already resolved, skipping attempt", "event_status", ev.Status().String())
		return e.skip(ctx, job, "event "+ev.Status().String(), log)
	}
	if existing != nil {
		log.Info("attempt already has a send record, skipping", "send_status", existing.Status().String())
		return e.skip(ctx, job, "already executed", log)
	}

	templateID, ok := e.registry.Lookup(ev.Type(), p.AttemptNumber)
	if !ok {
		log.Info("no template for attempt, skipping")
		return e.skip(ctx, job, "no template for attempt", log)
	}

	if tn == nil {
		return e.fail(ctx, job, "", templateID.String(), errs.Mark(errs.New("tenant profile missing"), errs.ErrPermanentDispatch), log)
	}

	customer, err := ev.Recipient()
	if err != nil {
		return e.fail(ctx, job, "", templateID.String(), err, log)
	}

	rendered, err := e.templates.Render(templateID.String(), shared.RenderContext{
		EventType:     ev.Type(),
		AttemptNumber: p.AttemptNumber,
		Customer:      customer,
		Data:          ev.Data(),
		Tenant:        tn.Profile,
		TenantName:    tn.Name,
	})
	if err != nil {
		return e.fail(ctx, job, customer.Email, templateID.String(), err, log)
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	messageID, err := e.dispatcher.Send(sendCtx, shared.Message{
		From:           tn.Profile.From(),
		To:             customer.Email,
		ToName:         customer.Name,
		ReplyTo:        tn.Profile.ReplyTo,
		Subject:        rendered.Subject,
		HTML:           rendered.HTML,
		IdempotencyKey: job.ID,
		Tags: map[string]string{
			"event_type":     string(ev.Type()),
			"attempt_number": strconv.Itoa(p.AttemptNumber),
		},
	})
	if err != nil {
		if errs.Is(err, errs.ErrTransientDispatch) && !job.Exhausted() {
			log.Warn("transient dispatch failure, will retry",
				"tries", job.Tries, "max_tries", job.MaxTries, "error", err.Error())
			return Result{}, errs.Mark(err, errs.ErrRetryable)
		}
		return e.fail(ctx, job, customer.Email, templateID.String(), err, log)
	}

	rec := sendrecord.NewSent(p.EventID, p.AttemptNumber, customer.Email, templateID.String(), messageID, e.clock.Now())
	if err := e.settle(ctx, job, rec, shared.JobStatusDone, ""); err != nil {
		log.Error("failed to record sent message", "provider_message_id", messageID, "error", err.Error())
		return Result{}, errs.Mark(&UnrecordedSendError{Record: rec, Err: err}, errs.ErrSentUnrecorded)
	}
	log.Info("attempt sent", "template_id", templateID.String(), "provider_message_id", messageID)
	return Result{Outcome: OutcomeSent, ProviderMessageID: messageID}, nil
}

// UnrecordedSendError carries the SENT record of a message the provider
// accepted but that could not be stored. It is marked errs.ErrSentUnrecorded.
type UnrecordedSendError struct {
	Record *sendrecord.Record
	Err    error
}

func (u *UnrecordedSendError) Error() string {
	return "record sent message " + derefString(u.Record.ProviderMessageID()) + ": " + u.Err.Error()
}

func (u *UnrecordedSendError) Unwrap() error { return u.Err }

// RecordSent retries storing the outcome of a send that Execute reported as
// errs.ErrSentUnrecorded. It never dispatches again.
func (e *Executor) RecordSent(ctx context.Context, job shared.Job, cause error) (Result, error) {
	var unrecorded *UnrecordedSendError
	if !errs.As(cause, &unrecorded) {
		return Result{}, errs.Newf("job %s: no unrecorded send in %v", job.ID, cause)
	}
	if err := e.settle(ctx, job, unrecorded.Record, shared.JobStatusDone, ""); err != nil {
		return Result{}, errs.Wrap(err, "record sent message")
	}
	messageID := derefString(unrecorded.Record.ProviderMessageID())
	e.logger.Info("sent message recorded",
		"event_id", job.Payload.EventID.String(),
		"attempt_number", job.Payload.AttemptNumber,
		"job_id", job.ID,
		"provider_message_id", messageID)
	return Result{Outcome: OutcomeSent, ProviderMessageID: messageID}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Abandon records a terminal failure for a job that can no longer be retried,
// e.g. after its lease expired on the final try.
func (e *Executor) Abandon(ctx context.Context, job shared.Job, cause error) (Result, error) {
	log := e.logger.With(
		"event_id", job.Payload.EventID.String(),
		"attempt_number", job.Payload.AttemptNumber,
		"job_id", job.ID,
	)
	templateID, _ := e.registry.Lookup(job.Payload.EventType, job.Payload.AttemptNumber)
	if cause == nil {
		cause = errs.New("retries exhausted")
	}
	return e.fail(ctx, job, "", templateID.String(), cause, log)
}

func (e *Executor) skip(ctx context.Context, job shared.Job, reason string, log *slog.Logger) (Result, error) {
	if err := e.settle(ctx, job, nil, shared.JobStatusDone, ""); err != nil {
		log.Error("failed to settle skipped attempt", "error", err.Error())
		return Result{}, err
	}
	return Result{Outcome: OutcomeSkipped, Reason: reason}, nil
}

func (e *Executor) fail(ctx context.Context, job shared.Job, recipient, templateID string, cause error, log *slog.Logger) (Result, error) {
	reason := cause.Error()
	log.Error("attempt failed", "template_id", templateID, "tries", job.Tries, "error", reason)

	rec := sendrecord.NewFailed(job.Payload.EventID, job.Payload.AttemptNumber, recipient, templateID, reason, e.clock.Now())
	if err := e.settle(ctx, job, rec, shared.JobStatusFailed, reason); err != nil {
		log.Error("failed to record failed attempt", "error", err.Error())
		return Result{}, err
	}
	return Result{Outcome: OutcomeFailed, Reason: reason}, nil
}

// settle writes the attempt outcome, closes the job and, when no other attempt
// of the event is outstanding, moves the event to its terminal status. The
// event row lock serializes concurrent attempts of the same event.
func (e *Executor) settle(ctx context.Context, job shared.Job, rec *sendrecord.Record, jobStatus shared.JobStatus, reason string) error {
	now := e.clock.Now()
	return e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ev, err := tx.Events().LockByID(ctx, tx.DB(), job.Payload.EventID)
		if err != nil && !errs.Is(err, errs.ErrEventNotFound) {
			return err
		}

		// a resolved event keeps no failure records; a message that really
		// went out is still recorded
		if rec != nil && ev != nil && (!ev.IsResolved() || rec.Status() == sendrecord.StatusSent) {
			created, cerr := tx.SendRecords().Create(ctx, tx.DB(), rec)
			if cerr != nil {
				return cerr
			}
			if !created {
				e.logger.Warn("send record already existed",
					"event_id", job.Payload.EventID.String(),
					"attempt_number", job.Payload.AttemptNumber)
			}
		}

		if jobStatus == shared.JobStatusFailed {
			err = tx.Jobs().Fail(ctx, tx.DB(), job.ID, reason)
		} else {
			err = tx.Jobs().Complete(ctx, tx.DB(), job.ID, now)
		}
		if err != nil {
			return err
		}

		if ev == nil || ev.IsResolved() {
			return nil
		}
		return e.finalizeIfComplete(ctx, tx, ev, job.ID, now)
	})
}

func (e *Executor) finalizeIfComplete(ctx context.Context, tx shared.Tx, ev *event.Event, currentJobID string, now time.Time) error {
	jobs, err := tx.Jobs().ListByEvent(ctx, tx.DB(), ev.ID())
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.ID == currentJobID {
			continue
		}
		if j.Status == shared.JobStatusQueued || j.Status == shared.JobStatusRunning {
			return nil
		}
	}

	final := e.registry.MaxAttempts(ev.Type())
	failed := false
	rec, err := tx.SendRecords().FindByAttempt(ctx, tx.DB(), ev.ID(), final)
	switch {
	case err == nil:
		failed = rec.Status() == sendrecord.StatusFailed
	case errs.Is(err, errs.ErrSendRecordNotFound):
		// final step skipped
	default:
		return err
	}

	if failed {
		_, err = tx.Events().MarkFailed(ctx, tx.DB(), ev.ID(), now)
	} else {
		_, err = tx.Events().MarkProcessed(ctx, tx.DB(), ev.ID(), now)
	}
	if err != nil {
		return err
	}
	e.logger.Info("campaign finished",
		"event_id", ev.ID().String(),
		"attempt_number", final,
		"failed", failed)
	return nil
}
