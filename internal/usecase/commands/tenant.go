package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"

	"sales-recovery/internal/domain/tenant"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const generatedSecretBytes = 32

//go:generate mockgen -source=tenant.go -destination=../../../tests/mock/commands/tenant_mock.go -package=commandsmock

type TenantCommands interface {
	Register(ctx context.Context, in RegisterTenantInput) (*RegisterTenantResult, error)
	// SecretFor returns the plaintext webhook secret of a tenant.
	SecretFor(ctx context.Context, tenantID uuid.UUID) ([]byte, error)
}

type RegisterTenantInput struct {
	Name          string `validate:"required,max=200"`
	WebhookSecret string `validate:"omitempty,min=16"`
	SenderEmail   string `validate:"required,email"`
	SenderName    string `validate:"max=200"`
	ReplyTo       string `validate:"omitempty,email"`
	SupportURL    string `validate:"omitempty,url"`
}

type RegisterTenantResult struct {
	TenantID      uuid.UUID
	WebhookSecret string
}

type tenantUseCaseImpl struct {
	uow      shared.UnitOfWork
	sealer   shared.SecretSealer
	validate *validator.Validate
	logger   *slog.Logger
}

func NewTenantCommands(uow shared.UnitOfWork, sealer shared.SecretSealer, validate *validator.Validate, logger *slog.Logger) TenantCommands {
	return &tenantUseCaseImpl{uow: uow, sealer: sealer, validate: validate, logger: logger}
}

func (uc *tenantUseCaseImpl) Register(ctx context.Context, in RegisterTenantInput) (*RegisterTenantResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := uc.validate.Struct(in); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "invalid tenant"), errs.ErrValidation)
	}

	secret := in.WebhookSecret
	if secret == "" {
		buf := make([]byte, generatedSecretBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, errs.Wrap(err, "generate webhook secret")
		}
		secret = hex.EncodeToString(buf)
	}
	sealed, err := uc.sealer.Seal([]byte(secret))
	if err != nil {
		return nil, errs.Wrap(err, "seal webhook secret")
	}

	t := &tenant.Tenant{
		ID:   uuid.New(),
		Name: in.Name,
		Profile: tenant.Profile{
			SenderEmail: in.SenderEmail,
			SenderName:  in.SenderName,
			ReplyTo:     in.ReplyTo,
			SupportURL:  in.SupportURL,
		},
	}
	err = uc.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Tenants().Create(ctx, tx.DB(), t, sealed)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("tenant registered", "tenant_id", t.ID.String())
	return &RegisterTenantResult{TenantID: t.ID, WebhookSecret: secret}, nil
}

func (uc *tenantUseCaseImpl) SecretFor(ctx context.Context, tenantID uuid.UUID) ([]byte, error) {
	var sealed []byte
	err := uc.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		var ferr error
		sealed, ferr = tx.Tenants().SealedSecret(ctx, tx.DB(), tenantID)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	secret, err := uc.sealer.Open(sealed)
	if err != nil {
		// A secret we cannot open is as good as no secret.
		return nil, errs.Mark(errs.Wrap(err, "open tenant secret"), errs.ErrUnknownTenant)
	}
	if len(secret) == 0 {
		return nil, errs.Mark(errs.New("tenant has empty secret"), errs.ErrUnknownTenant)
	}
	return secret, nil
}
