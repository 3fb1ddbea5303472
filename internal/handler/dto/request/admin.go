package request

type RegisterTenantRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	WebhookSecret string `json:"webhookSecret,omitempty" binding:"omitempty,min=16"`
	SenderEmail   string `json:"senderEmail" binding:"required,email"`
	SenderName    string `json:"senderName,omitempty"`
	ReplyTo       string `json:"replyTo,omitempty" binding:"omitempty,email"`
	SupportURL    string `json:"supportUrl,omitempty" binding:"omitempty,url"`
}

// InvalidateTemplatesRequest clears one template, or all when TemplateID is
// empty.
type InvalidateTemplatesRequest struct {
	TemplateID string `json:"templateId,omitempty"`
}

type ListEventsQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=PENDING PROCESSED FAILED"`
	EventType string `form:"type"`
	After     string `form:"after"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
}
