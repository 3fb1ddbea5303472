package shared

import (
	"context"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/domain/tenant"
)

//go:generate mockgen -source=ports.go -destination=../../../tests/mock/shared/ports_mock.go -package=sharedmock

// Message is one outbound email.
type Message struct {
	From           string
	To             string
	ToName         string
	ReplyTo        string
	Subject        string
	HTML           string
	IdempotencyKey string
	Tags           map[string]string
}

// Dispatcher sends a message and returns the provider's message id. Errors are
// marked ErrTransientDispatch or ErrPermanentDispatch.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type RenderContext struct {
	EventType     event.Type
	AttemptNumber int
	Customer      event.Customer
	Data          map[string]any
	Tenant        tenant.Profile
	TenantName    string
}

type Rendered struct {
	Subject string
	HTML    string
}

// TemplateCache renders templates by id and keeps parsed templates until
// invalidated.
type TemplateCache interface {
	Render(templateID string, rc RenderContext) (Rendered, error)
	Invalidate(templateID string)
	InvalidateAll()
}

// Callback is a provider delivery notification.
type Callback struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Tries      int       `json:"tries"`
}

// CallbackParker defers callbacks whose send record is not yet visible.
type CallbackParker interface {
	Park(ctx context.Context, cb Callback, retryAt time.Time) error
	// Due removes and returns parked callbacks whose retry time has passed.
	Due(ctx context.Context, now time.Time, limit int64) ([]Callback, error)
}

// SecretSealer protects tenant webhook secrets at rest.
type SecretSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}
