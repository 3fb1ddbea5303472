package errs

import "errors"

// Sentinel errors shared across the ingestion, execution and tracking layers.
// Concrete failures are attached to these with Mark so errors.Is keeps working
// through wrapping.
var (
	// Ingestion errors
	ErrValidation       = errors.New("validation error")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnknownTenant    = errors.New("unknown tenant")

	// Operator errors
	ErrOperatorTokenRequired = errors.New("operator token required")

	// Execution errors
	ErrEventNotFound       = errors.New("event not found")
	ErrSendRecordNotFound  = errors.New("send record not found")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrTransientDispatch   = errors.New("transient dispatch error")
	ErrPermanentDispatch   = errors.New("permanent dispatch error")
	ErrRetryable           = errors.New("retryable job error")
	ErrSentUnrecorded      = errors.New("sent message not recorded")
	ErrInvalidTransition   = errors.New("invalid send record transition")
	ErrUnknownCallbackType = errors.New("unknown provider callback type")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
