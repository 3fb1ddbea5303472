//go:build unit || e2e

package builder

import (
	"sales-recovery/internal/domain/tenant"

	"github.com/google/uuid"
)

const TestWebhookSecret = "tenant-webhook-secret-0123456789"

type TenantBuilder struct {
	ID      uuid.UUID
	Name    string
	Secret  string
	Profile tenant.Profile
}

func NewTenantBuilder() *TenantBuilder {
	return &TenantBuilder{
		ID:     uuid.New(),
		Name:   "Loja Exemplo",
		Secret: TestWebhookSecret,
		Profile: tenant.Profile{
			SenderEmail: "vendas@loja.example.com",
			SenderName:  "Loja Exemplo",
			ReplyTo:     "suporte@loja.example.com",
			SupportURL:  "https://loja.example.com/ajuda",
		},
	}
}

func (b *TenantBuilder) With(mutate func(*TenantBuilder)) *TenantBuilder {
	mutate(b)
	return b
}

func (b *TenantBuilder) BuildDomain() tenant.Tenant {
	return tenant.Tenant{ID: b.ID, Name: b.Name, Profile: b.Profile}
}
