package api

import (
	"net/http"
	"strings"

	resdto "sales-recovery/internal/handler/dto/response"
	"sales-recovery/internal/handler/httperr"
	"sales-recovery/internal/handler/middleware"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderSignature      = "X-Webhook-Signature"
	HeaderForceImmediate = "X-Force-Immediate"

	HeaderProviderID        = "webhook-id"
	HeaderProviderTimestamp = "webhook-timestamp"
	HeaderProviderSignature = "webhook-signature"
)

type WebhookHandler struct {
	ingest   commands.IngestCommands
	delivery commands.DeliveryCommands
}

func NewWebhookHandler(ingest commands.IngestCommands, delivery commands.DeliveryCommands) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, delivery: delivery}
}

// @Summary Ingest platform event
// @Description Receive a signed sales event and schedule its recovery campaign
// @Tags webhooks
// @Accept json
// @Produce json
// @Param tenantId path string true "Tenant ID"
// @Param X-Webhook-Signature header string true "sha256=<hex hmac of body>"
// @Param X-Force-Immediate header bool false "Schedule every attempt now (operator token required)"
// @Success 200 {object} resdto.IngestResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /webhook/{tenantId} [post]
func (h *WebhookHandler) Ingest(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusNotFound, errs.Mark(err, errs.ErrUnknownTenant), "Unknown tenant", nil)
		return
	}

	forceImmediate := strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderForceImmediate)), "true")
	if forceImmediate {
		if _, ok := middleware.GetOperator(c); !ok {
			httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrOperatorTokenRequired, "Operator token required for immediate scheduling", nil)
			return
		}
	}

	// the signature covers the exact bytes received
	body, err := c.GetRawData()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, errs.Mark(err, errs.ErrValidation), "Unreadable body", nil)
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), commands.IngestInput{
		TenantID:       tenantID,
		Body:           body,
		Signature:      c.GetHeader(HeaderSignature),
		ForceImmediate: forceImmediate,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromIngestResult(result))
}

// @Summary Provider delivery callback
// @Description Receive delivery and engagement notifications from the email provider
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} resdto.CallbackResponse
// @Failure 401 {object} httperr.Response
// @Router /provider-webhook [post]
func (h *WebhookHandler) ProviderCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, errs.Mark(err, errs.ErrValidation), "Unreadable body", nil)
		return
	}

	result, err := h.delivery.HandleCallback(c.Request.Context(), commands.ProviderCallbackInput{
		WebhookID: c.GetHeader(HeaderProviderID),
		Timestamp: c.GetHeader(HeaderProviderTimestamp),
		Signature: c.GetHeader(HeaderProviderSignature),
		Body:      body,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromCallbackResult(result))
}
