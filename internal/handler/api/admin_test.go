//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/handler/api"
	reqdto "sales-recovery/internal/handler/dto/request"
	resdto "sales-recovery/internal/handler/dto/response"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/queries"
	"sales-recovery/tests/common/httptest"
	"sales-recovery/tests/common/testutil"
	commandsmock "sales-recovery/tests/mock/commands"
	queriesmock "sales-recovery/tests/mock/queries"
	sharedmock "sales-recovery/tests/mock/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AdminHandlerTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockCtrl      *gomock.Controller
	mockTenants   *commandsmock.MockTenantCommands
	mockEvents    *queriesmock.MockEventQueries
	mockTemplates *sharedmock.MockTemplateCache
	registry      *campaign.Registry
}

func (s *AdminHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockTenants = commandsmock.NewMockTenantCommands(s.mockCtrl)
	s.mockEvents = queriesmock.NewMockEventQueries(s.mockCtrl)
	s.mockTemplates = sharedmock.NewMockTemplateCache(s.mockCtrl)
	s.registry = campaign.Default()

	h := api.NewAdminHandler(s.mockTenants, s.mockEvents, s.mockTemplates, s.registry)
	s.router.POST("/admin/tenants", h.RegisterTenant)
	s.router.GET("/admin/events/:id", h.GetEvent)
	s.router.GET("/admin/tenants/:tenantId/events", h.ListEvents)
	s.router.POST("/admin/templates/invalidate", h.InvalidateTemplates)
}

func (s *AdminHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerTestSuite))
}

type testCaseAdmin struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

// ================================================================================
// TestRegisterTenant
// ================================================================================

func (s *AdminHandlerTestSuite) TestRegisterTenant() {
	url := "/admin/tenants"
	reqBody := reqdto.RegisterTenantRequest{
		Name:        "Loja Exemplo",
		SenderEmail: "vendas@loja.example.com",
		SenderName:  "Loja Exemplo",
		ReplyTo:     "suporte@loja.example.com",
		SupportURL:  "https://loja.example.com/ajuda",
	}
	tenantID := uuid.New()
	result := &commands.RegisterTenantResult{TenantID: tenantID, WebhookSecret: strings.Repeat("ab", 32)}

	cases := []testCaseAdmin{
		{name: "name max length OK", mutate: testutil.Field("name", strings.Repeat("a", 200)), expectCode: http.StatusCreated},
		{name: "name too long", mutate: testutil.Field("name", strings.Repeat("a", 201)), expectCode: http.StatusBadRequest},
		{name: "missing field: name", mutate: testutil.Field("name", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: senderEmail", mutate: testutil.Field("senderEmail", nil), expectCode: http.StatusBadRequest},
		{name: "invalid senderEmail", mutate: testutil.Field("senderEmail", "nope"), expectCode: http.StatusBadRequest},
		{name: "invalid replyTo", mutate: testutil.Field("replyTo", "nope"), expectCode: http.StatusBadRequest},
		{name: "invalid supportUrl", mutate: testutil.Field("supportUrl", "nope"), expectCode: http.StatusBadRequest},
		{name: "short webhookSecret", mutate: testutil.Field("webhookSecret", "short"), expectCode: http.StatusBadRequest},
		{name: "provided webhookSecret", mutate: testutil.Field("webhookSecret", "a-long-enough-secret"), expectCode: http.StatusCreated},
	}

	s.Run("success: returns 201 with the secret", func() {
		s.mockTenants.EXPECT().
			Register(gomock.Any(), commands.RegisterTenantInput{
				Name:        "Loja Exemplo",
				SenderEmail: "vendas@loja.example.com",
				SenderName:  "Loja Exemplo",
				ReplyTo:     "suporte@loja.example.com",
				SupportURL:  "https://loja.example.com/ajuda",
			}).
			Return(result, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")

		var body resdto.TenantResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(tenantID, body.ID)
		s.Equal(result.WebhookSecret, body.WebhookSecret)
	})

	for _, tc := range cases {
		s.Run(tc.name, func() {
			if tc.expectCode == http.StatusCreated {
				s.mockTenants.EXPECT().Register(gomock.Any(), gomock.Any()).Return(result, nil)
			}
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, testutil.DtoMap(s.T(), reqBody, tc.mutate), "")
			s.Equal(tc.expectCode, rec.Code, rec.Body.String())
		})
	}

	s.Run("error: use case validation maps to 400", func() {
		s.mockTenants.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, errs.ErrValidation)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request")
	})
}

// ================================================================================
// TestGetEvent
// ================================================================================

func (s *AdminHandlerTestSuite) TestGetEvent() {
	eventID := uuid.New()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sentAt := created.Add(2 * time.Hour)
	msgID := "re_1"
	view := &queries.EventView{
		ID:              eventID,
		OrganizationID:  uuid.New(),
		EventType:       "ABANDONED_CART",
		ExternalID:      "cart-1",
		Status:          "PENDING",
		Payload:         json.RawMessage(`{"customer":{"email":"maria@example.com"}}`),
		CreatedAt:       created,
		RegistryVersion: campaign.DefaultVersion,
		SendRecords: []queries.SendRecordView{{
			AttemptNumber: 1, Recipient: "maria@example.com", TemplateID: "abandoned_cart.reminder",
			ProviderMessageID: &msgID, Status: "SENT", SentAt: &sentAt,
		}},
		Jobs: []queries.JobView{{ID: eventID.String() + "-2", AttemptNumber: 2, Status: "queued", DueAt: created.Add(24 * time.Hour), MaxTries: 3}},
	}

	s.Run("success: returns event with history", func() {
		s.mockEvents.EXPECT().GetEvent(gomock.Any(), eventID).Return(view, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin/events/"+eventID.String(), nil, "")

		var body resdto.EventResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(eventID, body.ID)
		s.Equal("PENDING", body.Status)
		s.JSONEq(string(view.Payload), string(body.Payload))
		s.Require().Len(body.SendRecords, 1)
		s.Equal("re_1", *body.SendRecords[0].ProviderMessageID)
		s.Equal(sentAt, *body.SendRecords[0].SentAt)
		s.Require().Len(body.Jobs, 1)
		s.Equal(2, body.Jobs[0].AttemptNumber)
	})

	s.Run("error: invalid id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin/events/nope", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid id")
	})

	s.Run("error: not found", func() {
		s.mockEvents.EXPECT().GetEvent(gomock.Any(), gomock.Any()).Return(nil, errs.ErrEventNotFound)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin/events/"+uuid.NewString(), nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Event not found")
	})
}

// ================================================================================
// TestListEvents
// ================================================================================

func (s *AdminHandlerTestSuite) TestListEvents() {
	tenantID := uuid.New()
	url := "/admin/tenants/" + tenantID.String() + "/events"

	s.Run("success: forwards the query and returns the page", func() {
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		page := &queries.EventPage{
			Events: []queries.EventSummary{{
				ID:         uuid.New(),
				EventType:  "PIX_EXPIRED",
				ExternalID: "pix-1",
				Status:     "PENDING",
				CreatedAt:  created,
			}},
			NextCursor: "next",
		}
		s.mockEvents.EXPECT().
			ListEvents(gomock.Any(), queries.ListEventsInput{
				OrganizationID: tenantID,
				Status:         "PENDING",
				EventType:      "PIX_EXPIRED",
				After:          "abc",
				Limit:          10,
			}).
			Return(page, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url+"?status=PENDING&type=PIX_EXPIRED&after=abc&limit=10", nil, "")

		var body resdto.EventListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		want := resdto.EventListResponse{
			Events: []resdto.EventSummaryResponse{{
				ID:         page.Events[0].ID,
				EventType:  "PIX_EXPIRED",
				ExternalID: "pix-1",
				Status:     "PENDING",
				CreatedAt:  created,
			}},
			NextCursor: "next",
		}
		if diff := cmp.Diff(want, body); diff != "" {
			s.T().Errorf("response mismatch (-want +got):\n%s", diff)
		}
	})

	s.Run("empty page is an empty array", func() {
		s.mockEvents.EXPECT().ListEvents(gomock.Any(), gomock.Any()).Return(&queries.EventPage{}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")

		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"events":[]}`, rec.Body.String())
	})

	cases := []struct {
		name  string
		path  string
		setup func()
		code  int
	}{
		{name: "invalid tenant id", path: "/admin/tenants/nope/events", code: http.StatusBadRequest},
		{name: "unknown status", path: url + "?status=DONE", code: http.StatusBadRequest},
		{name: "limit too large", path: url + "?limit=201", code: http.StatusBadRequest},
		{name: "limit not a number", path: url + "?limit=x", code: http.StatusBadRequest},
		{
			name: "bad cursor from the query layer",
			path: url + "?after=garbage",
			setup: func() {
				s.mockEvents.EXPECT().ListEvents(gomock.Any(), gomock.Any()).
					Return(nil, errs.Mark(queries.ErrInvalidCursor, errs.ErrValidation))
			},
			code: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			if tc.setup != nil {
				tc.setup()
			}
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, tc.path, nil, "")
			s.Equal(tc.code, rec.Code, rec.Body.String())
		})
	}
}

// ================================================================================
// TestInvalidateTemplates
// ================================================================================

func (s *AdminHandlerTestSuite) TestInvalidateTemplates() {
	url := "/admin/templates/invalidate"

	s.Run("success: no body clears everything", func() {
		s.mockTemplates.EXPECT().InvalidateAll()

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "")

		var body resdto.InvalidateTemplatesResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body.Invalidated, len(s.registry.Templates()))
	})

	s.Run("success: single template", func() {
		s.mockTemplates.EXPECT().Invalidate("pix_expired.new_code")

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			reqdto.InvalidateTemplatesRequest{TemplateID: "pix_expired.new_code"}, "")

		var body resdto.InvalidateTemplatesResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal([]string{"pix_expired.new_code"}, body.Invalidated)
	})

	s.Run("error: unknown template", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url,
			reqdto.InvalidateTemplatesRequest{TemplateID: "nope"}, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Unknown template")
	})
}
