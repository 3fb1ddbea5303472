package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/signature"
	"sales-recovery/internal/usecase/shared"
)

//go:generate mockgen -source=delivery.go -destination=../../../tests/mock/commands/delivery_mock.go -package=commandsmock

type DeliveryCommands interface {
	// HandleCallback verifies and applies a provider callback. Only a bad
	// signature is reported as an error; everything else is absorbed.
	HandleCallback(ctx context.Context, in ProviderCallbackInput) (*CallbackResult, error)
	// RetryParked applies a previously parked callback again.
	RetryParked(ctx context.Context, cb shared.Callback) (*CallbackResult, error)
}

type ProviderCallbackInput struct {
	WebhookID string
	Timestamp string
	Signature string
	Body      []byte
}

type CallbackOutcome string

const (
	CallbackApplied CallbackOutcome = "applied"
	CallbackIgnored CallbackOutcome = "ignored"
	CallbackParked  CallbackOutcome = "parked"
	CallbackDropped CallbackOutcome = "dropped"
)

type CallbackResult struct {
	Outcome CallbackOutcome
	Status  sendrecord.Status
}

type providerCallbackBody struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		MessageID string `json:"message_id"`
		EmailID   string `json:"email_id"`
	} `json:"data"`
}

type deliveryUseCaseImpl struct {
	uow    shared.UnitOfWork
	parker shared.CallbackParker
	cfg    config.ProviderWebhookConfig
	clock  clock.Clock
	logger *slog.Logger
}

func NewDeliveryCommands(
	uow shared.UnitOfWork,
	parker shared.CallbackParker,
	cfg config.ProviderWebhookConfig,
	clk clock.Clock,
	logger *slog.Logger,
) DeliveryCommands {
	return &deliveryUseCaseImpl{uow: uow, parker: parker, cfg: cfg, clock: clk, logger: logger}
}

func (uc *deliveryUseCaseImpl) HandleCallback(ctx context.Context, in ProviderCallbackInput) (*CallbackResult, error) {
	err := signature.VerifyProvider(signature.ProviderInput{
		Secret:          uc.cfg.Secret,
		ID:              in.WebhookID,
		TimestampHeader: in.Timestamp,
		SignatureHeader: in.Signature,
		Body:            in.Body,
		Now:             uc.clock.Now(),
		Tolerance:       uc.cfg.Tolerance,
	})
	if err != nil {
		uc.logger.Warn("provider callback signature rejected", "webhook_id", in.WebhookID)
		return nil, err
	}

	var body providerCallbackBody
	if err := json.Unmarshal(in.Body, &body); err != nil {
		uc.logger.Warn("provider callback body undecodable", "webhook_id", in.WebhookID, "error", err)
		return &CallbackResult{Outcome: CallbackIgnored}, nil
	}

	messageID := strings.TrimSpace(body.Data.MessageID)
	if messageID == "" {
		messageID = strings.TrimSpace(body.Data.EmailID)
	}
	occurredAt := body.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = uc.clock.Now()
	}

	cb := shared.Callback{
		ID:         in.WebhookID,
		Type:       body.Type,
		MessageID:  messageID,
		OccurredAt: occurredAt.UTC(),
	}
	return uc.process(ctx, cb), nil
}

func (uc *deliveryUseCaseImpl) RetryParked(ctx context.Context, cb shared.Callback) (*CallbackResult, error) {
	return uc.process(ctx, cb), nil
}

func (uc *deliveryUseCaseImpl) process(ctx context.Context, cb shared.Callback) *CallbackResult {
	log := uc.logger.With("webhook_id", cb.ID, "message_id", cb.MessageID, "callback_type", cb.Type)

	target, ok := sendrecord.StatusForCallback(cb.Type)
	if !ok {
		log.Info("provider callback type ignored")
		return &CallbackResult{Outcome: CallbackIgnored}
	}
	if cb.MessageID == "" {
		log.Warn("provider callback without message id")
		return &CallbackResult{Outcome: CallbackIgnored, Status: target}
	}

	applied, err := uc.apply(ctx, cb.MessageID, target, cb.OccurredAt)
	switch {
	case err == nil && applied:
		log.Info("send record advanced", "status", target.String())
		return &CallbackResult{Outcome: CallbackApplied, Status: target}
	case err == nil:
		log.Debug("provider callback would not advance send record", "status", target.String())
		return &CallbackResult{Outcome: CallbackIgnored, Status: target}
	}

	if !errs.Is(err, errs.ErrSendRecordNotFound) {
		log.Error("failed to apply provider callback", "error", err)
	}
	return uc.park(ctx, cb, target, log)
}

// apply advances the record inside a row-locked transaction. It reports false
// when the callback is stale or a duplicate.
func (uc *deliveryUseCaseImpl) apply(ctx context.Context, messageID string, to sendrecord.Status, at time.Time) (bool, error) {
	var applied bool
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		applied = false
		rec, err := tx.SendRecords().FindByProviderMessageIDForUpdate(ctx, tx.DB(), messageID)
		if err != nil {
			return err
		}
		if !rec.Advance(to, at) {
			return nil
		}
		if err := tx.SendRecords().UpdateStatus(ctx, tx.DB(), rec); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (uc *deliveryUseCaseImpl) park(ctx context.Context, cb shared.Callback, target sendrecord.Status, log *slog.Logger) *CallbackResult {
	cb.Tries++
	if cb.Tries > uc.cfg.ParkMaxTries {
		log.Warn("dropping provider callback after repeated misses", "tries", cb.Tries-1)
		return &CallbackResult{Outcome: CallbackDropped, Status: target}
	}

	retryAt := uc.clock.Now().Add(uc.cfg.ParkDelay)
	if err := uc.parker.Park(ctx, cb, retryAt); err != nil {
		log.Error("failed to park provider callback", "error", err)
		return &CallbackResult{Outcome: CallbackDropped, Status: target}
	}
	log.Info("provider callback parked", "tries", cb.Tries, "retry_at", retryAt)
	return &CallbackResult{Outcome: CallbackParked, Status: target}
}
