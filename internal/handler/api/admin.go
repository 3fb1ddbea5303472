package api

import (
	"net/http"

	"sales-recovery/internal/domain/campaign"
	reqdto "sales-recovery/internal/handler/dto/request"
	resdto "sales-recovery/internal/handler/dto/response"
	"sales-recovery/internal/handler/httperr"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/queries"
	"sales-recovery/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	tenants   commands.TenantCommands
	events    queries.EventQueries
	templates shared.TemplateCache
	registry  *campaign.Registry
}

func NewAdminHandler(tenants commands.TenantCommands, events queries.EventQueries, templates shared.TemplateCache, registry *campaign.Registry) *AdminHandler {
	return &AdminHandler{tenants: tenants, events: events, templates: templates, registry: registry}
}

// @Summary Register tenant
// @Description Create a tenant and return its webhook secret (shown once)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.RegisterTenantRequest true "Tenant"
// @Success 201 {object} resdto.TenantResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /admin/tenants [post]
func (h *AdminHandler) RegisterTenant(c *gin.Context) {
	var req reqdto.RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	result, err := h.tenants.Register(c.Request.Context(), commands.RegisterTenantInput{
		Name:          req.Name,
		WebhookSecret: req.WebhookSecret,
		SenderEmail:   req.SenderEmail,
		SenderName:    req.SenderName,
		ReplyTo:       req.ReplyTo,
		SupportURL:    req.SupportURL,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromRegisterTenantResult(result))
}

// @Summary Get event
// @Description Event with its send records and queued jobs
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} resdto.EventResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /admin/events/{id} [get]
func (h *AdminHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid id", nil)
		return
	}
	view, err := h.events.GetEvent(c.Request.Context(), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromEventView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List events
// @Description A tenant's events, newest first, with keyset pagination
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param tenantId path string true "Tenant ID"
// @Param status query string false "PENDING, PROCESSED or FAILED"
// @Param type query string false "Event type"
// @Param after query string false "Cursor from a previous page"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} resdto.EventListResponse
// @Failure 400 {object} httperr.Response
// @Router /admin/tenants/{tenantId}/events [get]
func (h *AdminHandler) ListEvents(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid tenant id", nil)
		return
	}
	var q reqdto.ListEventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}

	page, err := h.events.ListEvents(c.Request.Context(), queries.ListEventsInput{
		OrganizationID: tenantID,
		Status:         q.Status,
		EventType:      q.EventType,
		After:          q.After,
		Limit:          q.Limit,
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromEventPage(page)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to build response", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Invalidate templates
// @Description Drop one cached template, or all of them when no id is given
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.InvalidateTemplatesRequest false "Template"
// @Success 200 {object} resdto.InvalidateTemplatesResponse
// @Failure 400 {object} httperr.Response
// @Router /admin/templates/invalidate [post]
func (h *AdminHandler) InvalidateTemplates(c *gin.Context) {
	var req reqdto.InvalidateTemplatesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
			return
		}
	}

	if req.TemplateID == "" {
		h.templates.InvalidateAll()
		ids := make([]string, 0)
		for _, t := range h.registry.Templates() {
			ids = append(ids, t.String())
		}
		c.JSON(http.StatusOK, resdto.InvalidateTemplatesResponse{Invalidated: ids})
		return
	}

	known := false
	for _, t := range h.registry.Templates() {
		if t.String() == req.TemplateID {
			known = true
			break
		}
	}
	if !known {
		httperr.AbortWithError(c, http.StatusBadRequest, errs.ErrTemplateNotFound, "Unknown template", nil)
		return
	}
	h.templates.Invalidate(req.TemplateID)
	c.JSON(http.StatusOK, resdto.InvalidateTemplatesResponse{Invalidated: []string{req.TemplateID}})
}
