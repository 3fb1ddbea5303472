package tenant

import (
	"github.com/google/uuid"
)

// Tenant is an organization sending webhooks. Its id doubles as the
// organizationId stored on events.
type Tenant struct {
	ID      uuid.UUID
	Name    string
	Profile Profile
}

// Profile is the sender identity and branding used when rendering emails.
type Profile struct {
	SenderEmail string
	SenderName  string
	ReplyTo     string
	SupportURL  string
}

func (p Profile) From() string {
	if p.SenderName == "" {
		return p.SenderEmail
	}
	return p.SenderName + " <" + p.SenderEmail + ">"
}
