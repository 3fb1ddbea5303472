//go:build unit || e2e

package builder

import (
	"encoding/json"
	"time"

	"sales-recovery/internal/domain/event"

	"github.com/google/uuid"
)

type EventBuilder struct {
	OrganizationID uuid.UUID
	Type           event.Type
	ExternalID     string
	CustomerName   string
	CustomerEmail  string
	Extra          map[string]any
	CreatedAt      time.Time
	Status         event.Status
}

func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		OrganizationID: uuid.New(),
		Type:           event.TypeAbandonedCart,
		ExternalID:     "cart-" + uuid.NewString()[:8],
		CustomerName:   "Maria Silva",
		CustomerEmail:  "maria@example.com",
		Extra:          map[string]any{"checkout_url": "https://shop.example.com/checkout/1"},
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:         event.StatusPending,
	}
}

func (b *EventBuilder) With(mutate func(*EventBuilder)) *EventBuilder {
	mutate(b)
	return b
}

// Data is the "data" object of the webhook body.
func (b *EventBuilder) Data() map[string]any {
	data := map[string]any{}
	for k, v := range b.Extra {
		data[k] = v
	}
	customer := map[string]any{"name": b.CustomerName}
	if b.CustomerEmail != "" {
		customer["email"] = b.CustomerEmail
	}
	data["customer"] = customer
	return data
}

func (b *EventBuilder) BuildPayload() []byte {
	raw, _ := json.Marshal(b.Data())
	return raw
}

// BuildWebhookBody returns the raw JSON a platform would post.
func (b *EventBuilder) BuildWebhookBody() []byte {
	raw, _ := json.Marshal(map[string]any{
		"event_type":  string(b.Type),
		"external_id": b.ExternalID,
		"data":        b.Data(),
	})
	return raw
}

func (b *EventBuilder) BuildDomain() *event.Event {
	var processedAt *time.Time
	if b.Status.IsTerminal() {
		at := b.CreatedAt.Add(time.Minute)
		processedAt = &at
	}
	return event.Reconstruct(uuid.New(), b.OrganizationID, b.Type, b.ExternalID, b.BuildPayload(), b.Status, b.CreatedAt, processedAt)
}
