package repository

import (
	"context"

	"sales-recovery/internal/domain/tenant"
	"sales-recovery/internal/infra"
	"sales-recovery/internal/infra/db"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const selectTenantSQL = `
SELECT id, name, sender_email, sender_name, reply_to, support_url
FROM tenants
WHERE id = $1`

const selectTenantSecretSQL = `SELECT webhook_secret_sealed FROM tenants WHERE id = $1`

const insertTenantSQL = `
INSERT INTO tenants (id, name, webhook_secret_sealed, sender_email, sender_name, reply_to, support_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type TenantRepository struct{}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{}
}

func (r *TenantRepository) FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := tx.QueryRow(ctx, selectTenantSQL, id).Scan(
		&t.ID, &t.Name, &t.Profile.SenderEmail, &t.Profile.SenderName, &t.Profile.ReplyTo, &t.Profile.SupportURL,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("tenant not found", errs.ErrUnknownTenant)
		}
		return nil, infra.WrapRepoErr("failed to find tenant", err)
	}
	return &t, nil
}

func (r *TenantRepository) SealedSecret(ctx context.Context, tx db.DBTX, id uuid.UUID) ([]byte, error) {
	var sealed []byte
	if err := tx.QueryRow(ctx, selectTenantSecretSQL, id).Scan(&sealed); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.NotFound("tenant not found", errs.ErrUnknownTenant)
		}
		return nil, infra.WrapRepoErr("failed to load tenant secret", err)
	}
	return sealed, nil
}

func (r *TenantRepository) Create(ctx context.Context, tx db.DBTX, t *tenant.Tenant, sealedSecret []byte) error {
	_, err := tx.Exec(ctx, insertTenantSQL,
		t.ID, t.Name, sealedSecret,
		t.Profile.SenderEmail, t.Profile.SenderName, t.Profile.ReplyTo, t.Profile.SupportURL,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create tenant", err)
	}
	return nil
}
