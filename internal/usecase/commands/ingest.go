package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/signature"
	"sales-recovery/internal/usecase/scheduler"
	"sales-recovery/internal/usecase/shared"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

//go:generate mockgen -source=ingest.go -destination=../../../tests/mock/commands/ingest_mock.go -package=commandsmock

type IngestCommands interface {
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)
}

type IngestInput struct {
	TenantID  uuid.UUID
	Body      []byte
	Signature string
	// ForceImmediate must only be set for authenticated operators.
	ForceImmediate bool
}

type IngestResult struct {
	EventID   uuid.UUID
	Duplicate bool
	Scheduled int
	Resolved  int64
}

type webhookEnvelope struct {
	EventType  string          `json:"event_type" validate:"required"`
	ExternalID string          `json:"external_id" validate:"required,max=255"`
	OccurredAt *time.Time      `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type campaignData struct {
	Customer struct {
		Name  string `json:"name" validate:"max=200"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone" validate:"omitempty,max=40"`
	} `json:"customer"`
}

type ingestUseCaseImpl struct {
	uow       shared.UnitOfWork
	tenants   TenantCommands
	scheduler *scheduler.Scheduler
	registry  *campaign.Registry
	validate  *validator.Validate
	clock     clock.Clock
	logger    *slog.Logger
}

func NewIngestCommands(
	uow shared.UnitOfWork,
	tenants TenantCommands,
	sched *scheduler.Scheduler,
	registry *campaign.Registry,
	validate *validator.Validate,
	clk clock.Clock,
	logger *slog.Logger,
) IngestCommands {
	return &ingestUseCaseImpl{
		uow:       uow,
		tenants:   tenants,
		scheduler: sched,
		registry:  registry,
		validate:  validate,
		clock:     clk,
		logger:    logger,
	}
}

func (uc *ingestUseCaseImpl) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	secret, err := uc.tenants.SecretFor(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	// Verification runs on the raw bytes before anything is decoded.
	if err := signature.Verify(in.Body, in.Signature, secret); err != nil {
		uc.logger.Warn("webhook signature rejected", "tenant_id", in.TenantID.String())
		return nil, err
	}

	ev, err := uc.parse(in.TenantID, in.Body)
	if err != nil {
		return nil, err
	}

	policy := scheduler.Policy{Immediate: in.ForceImmediate}
	res := &IngestResult{}
	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		stored, wasNew, ierr := tx.Events().InsertIfAbsent(ctx, tx.DB(), ev)
		if ierr != nil {
			return ierr
		}
		res.EventID = stored.ID()
		res.Duplicate = !wasNew
		if !wasNew {
			return nil
		}

		if resolves := uc.registry.Resolves(stored.Type()); len(resolves) > 0 {
			n, rerr := tx.Events().ResolvePending(ctx, tx.DB(), stored.OrganizationID(), stored.ExternalID(), resolves, uc.clock.Now())
			if rerr != nil {
				return rerr
			}
			res.Resolved = n
			// nothing will ever fire for a resolution event
			_, rerr = tx.Events().MarkProcessed(ctx, tx.DB(), stored.ID(), uc.clock.Now())
			return rerr
		}

		plan, serr := uc.scheduler.Schedule(ctx, tx, stored, policy)
		if serr != nil {
			return serr
		}
		res.Scheduled = len(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("webhook ingested",
		"tenant_id", in.TenantID.String(),
		"event_id", res.EventID.String(),
		"event_type", ev.Type().String(),
		"duplicate", res.Duplicate,
		"scheduled", res.Scheduled,
		"resolved", res.Resolved,
		"immediate", policy.Immediate)
	return res, nil
}

func (uc *ingestUseCaseImpl) parse(tenantID uuid.UUID, body []byte) (*event.Event, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "decode webhook body"), errs.ErrValidation)
	}
	if err := uc.validate.Struct(env); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "invalid webhook body"), errs.ErrValidation)
	}
	eventType, err := event.ParseType(env.EventType)
	if err != nil {
		return nil, err
	}

	if uc.registry.MaxAttempts(eventType) > 0 {
		var data campaignData
		if len(env.Data) == 0 {
			return nil, errs.Mark(errs.New("data is required"), errs.ErrValidation)
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errs.Mark(errs.Wrap(err, "decode webhook data"), errs.ErrValidation)
		}
		if err := uc.validate.Struct(data); err != nil {
			return nil, errs.Mark(errs.Wrap(err, "invalid webhook data"), errs.ErrValidation)
		}
	}

	// created_at is the ingestion time; delays are relative to it
	return event.New(tenantID, eventType, env.ExternalID, env.Data, uc.clock.Now())
}
