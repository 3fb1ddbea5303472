//go:build e2e

package campaign_test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/handler/api"
	"sales-recovery/internal/handler/dto/request"
	"sales-recovery/internal/handler/dto/response"
	"sales-recovery/internal/infra/callbackqueue"
	"sales-recovery/internal/pkg/signature"
	"sales-recovery/tests/common/builder"
	"sales-recovery/tests/common/dbtest"
	"sales-recovery/tests/common/httptest"
	"sales-recovery/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	tenantsURL          = "/admin/tenants"
	eventURL            = "/admin/events/%s"
	invalidateURL       = "/admin/templates/invalidate"
	webhookURL          = "/webhook/%s"
	providerCallbackURL = "/provider-webhook"
)

type CampaignSuite struct {
	e2e.SharedSuite
}

func TestCampaignSuite(t *testing.T) {
	suite.Run(t, new(CampaignSuite))
}

type registeredTenant struct {
	ID     uuid.UUID
	Secret string
}

func (s *CampaignSuite) registerTenant() registeredTenant {
	t := s.T()
	body := request.RegisterTenantRequest{
		Name:        "Loja Exemplo",
		SenderEmail: "vendas@loja.example.com",
		SenderName:  "Loja Exemplo",
		SupportURL:  "https://loja.example.com/ajuda",
	}
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, tenantsURL, body, s.OperatorToken())
	var out response.TenantResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &out)
	require.NotEqual(t, uuid.Nil, out.ID)
	return registeredTenant{ID: out.ID, Secret: out.WebhookSecret}
}

func (s *CampaignSuite) postEvent(tn registeredTenant, b *builder.EventBuilder, headers map[string]string) (int, response.IngestResponse) {
	body := b.BuildWebhookBody()
	h := map[string]string{api.HeaderSignature: signature.Sign(body, []byte(tn.Secret))}
	for k, v := range headers {
		h[k] = v
	}
	w := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(webhookURL, tn.ID), body, h)
	var out response.IngestResponse
	if w.Code == http.StatusOK {
		require.NoError(s.T(), httptest.DecodeResponseBody(s.T(), w.Body, &out))
	}
	return w.Code, out
}

func (s *CampaignSuite) postCallback(kind, messageID string) (int, response.CallbackResponse) {
	body := []byte(fmt.Sprintf(`{"type":%q,"created_at":%q,"data":{"email_id":%q}}`,
		kind, time.Now().UTC().Format(time.RFC3339Nano), messageID))
	id := "evt_" + uuid.NewString()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := signature.SignProvider(s.Config.ProviderWebhook.Secret, id, ts, body)
	require.NoError(s.T(), err)

	w := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, providerCallbackURL, body, map[string]string{
		api.HeaderProviderID:        id,
		api.HeaderProviderTimestamp: ts,
		api.HeaderProviderSignature: sig,
	})
	var out response.CallbackResponse
	if w.Code == http.StatusOK {
		require.NoError(s.T(), httptest.DecodeResponseBody(s.T(), w.Body, &out))
	}
	return w.Code, out
}

func (s *CampaignSuite) getEvent(id uuid.UUID) response.EventResponse {
	w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(eventURL, id), nil, s.OperatorToken())
	var out response.EventResponse
	httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &out)
	return out
}

func (s *CampaignSuite) waitForEvent(id uuid.UUID, status string) response.EventResponse {
	var last response.EventResponse
	s.WaitFor(func() bool {
		last = s.getEvent(id)
		return last.Status == status
	}, "event "+id.String()+" never reached "+status)
	return last
}

func eventOfType(t event.Type) *builder.EventBuilder {
	return builder.NewEventBuilder().With(func(b *builder.EventBuilder) {
		b.Type = t
		b.ExternalID = "order-" + uuid.NewString()[:8]
	})
}

// =============================================================================
// Ingestion
// =============================================================================

func (s *CampaignSuite) TestIngest() {
	s.Run("signed event is stored and scheduled", func() {
		tn := s.registerTenant()

		code, out := s.postEvent(tn, eventOfType(event.TypeAbandonedCart), nil)
		s.Require().Equal(http.StatusOK, code)
		s.Equal(response.IngestStatusAccepted, out.Status)
		s.Equal(3, out.Scheduled)

		view := s.getEvent(out.EventID)
		s.Equal(string(event.StatusPending), view.Status)
		s.Len(view.Jobs, 3)
		s.Empty(view.SendRecords)
		for _, j := range view.Jobs {
			s.True(j.DueAt.After(time.Now()), "job %s should wait for its delay", j.ID)
		}
	})

	s.Run("redelivery of the same event is idempotent", func() {
		tn := s.registerTenant()
		b := eventOfType(event.TypeAbandonedCart)

		_, first := s.postEvent(tn, b, nil)
		code, second := s.postEvent(tn, b, nil)

		s.Require().Equal(http.StatusOK, code)
		s.Equal(response.IngestStatusAlreadyProcessed, second.Status)
		s.Equal(first.EventID, second.EventID)
		s.Equal(1, dbtest.CountRows(s.T(), s.DB, "events", "organization_id = $1", tn.ID))
		s.Equal(3, dbtest.CountRows(s.T(), s.DB, "campaign_jobs", "event_id = $1", first.EventID))
	})

	s.Run("tampered body is rejected", func() {
		tn := s.registerTenant()
		body := eventOfType(event.TypePixExpired).BuildWebhookBody()
		sig := signature.Sign(body, []byte(tn.Secret))
		body[len(body)-2] = ' '

		w := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, fmt.Sprintf(webhookURL, tn.ID), body,
			map[string]string{api.HeaderSignature: sig})

		httptest.AssertErrorResponse(s.T(), w, http.StatusUnauthorized, "")
		s.Equal(0, dbtest.CountRows(s.T(), s.DB, "events", ""))
	})

	s.Run("unknown tenant is rejected", func() {
		code, _ := s.postEvent(registeredTenant{ID: uuid.New(), Secret: builder.TestWebhookSecret}, eventOfType(event.TypePixExpired), nil)
		s.Equal(http.StatusNotFound, code)
	})

	s.Run("force immediate needs an operator token", func() {
		tn := s.registerTenant()
		code, _ := s.postEvent(tn, eventOfType(event.TypePixExpired), map[string]string{api.HeaderForceImmediate: "true"})
		s.Equal(http.StatusUnauthorized, code)
		s.Equal(0, dbtest.CountRows(s.T(), s.DB, "events", ""))
	})
}

// =============================================================================
// Execution
// =============================================================================

func (s *CampaignSuite) TestCampaignExecution() {
	s.Run("urgent event is sent right away and closes the campaign", func() {
		tn := s.registerTenant()
		b := eventOfType(event.TypeChargeback)

		_, out := s.postEvent(tn, b, nil)
		view := s.waitForEvent(out.EventID, string(event.StatusProcessed))

		s.Require().Len(view.SendRecords, 1)
		rec := view.SendRecords[0]
		s.Equal("SENT", rec.Status)
		s.Equal("chargeback.contact", rec.TemplateID)
		s.Equal(b.CustomerEmail, rec.Recipient)
		s.Require().NotNil(rec.ProviderMessageID)
		s.NotNil(view.ProcessedAt)

		sent := s.EmailAPI.Sent()
		s.Require().Len(sent, 1)
		s.Equal(*rec.ProviderMessageID, sent[0].ID)
		s.Equal(out.EventID.String()+"-1", sent[0].IdempotencyKey)
		s.Equal([]string{b.CustomerName + " <" + b.CustomerEmail + ">"}, sent[0].To)
		s.NotEmpty(sent[0].Subject)
		s.Contains(sent[0].From, "vendas@loja.example.com")
	})

	s.Run("operator can force every attempt to run now", func() {
		tn := s.registerTenant()
		_, out := s.postEvent(tn, eventOfType(event.TypePixExpired), map[string]string{
			api.HeaderForceImmediate: "true",
			"Authorization":          "Bearer " + s.OperatorToken(),
		})
		s.Equal(2, out.Scheduled)

		view := s.waitForEvent(out.EventID, string(event.StatusProcessed))

		got := make([]string, 0, len(view.SendRecords))
		for _, r := range view.SendRecords {
			got = append(got, fmt.Sprintf("%d:%s:%s", r.AttemptNumber, r.TemplateID, r.Status))
		}
		want := []string{"1:pix_expired.new_code:SENT", "2:pix_expired.reminder:SENT"}
		if diff := cmp.Diff(want, got); diff != "" {
			s.T().Errorf("send records mismatch (-want +got):\n%s", diff)
		}
		s.Len(s.EmailAPI.Sent(), 2)
	})

	s.Run("transient provider failure is retried", func() {
		s.EmailAPI.FailNext(http.StatusServiceUnavailable)
		tn := s.registerTenant()

		_, out := s.postEvent(tn, eventOfType(event.TypeChargeback), nil)
		view := s.waitForEvent(out.EventID, string(event.StatusProcessed))

		s.Require().Len(view.SendRecords, 1)
		s.Equal("SENT", view.SendRecords[0].Status)
		s.Require().Len(view.Jobs, 1)
		s.Equal(2, view.Jobs[0].Tries)
		s.Equal("done", view.Jobs[0].Status)
	})

	s.Run("permanent provider failure fails the campaign", func() {
		s.EmailAPI.FailNext(http.StatusUnprocessableEntity)
		tn := s.registerTenant()

		_, out := s.postEvent(tn, eventOfType(event.TypeChargeback), nil)
		view := s.waitForEvent(out.EventID, string(event.StatusFailed))

		s.Require().Len(view.SendRecords, 1)
		s.Equal("FAILED", view.SendRecords[0].Status)
		s.NotNil(view.SendRecords[0].Error)
		s.Empty(s.EmailAPI.Sent())
	})

	s.Run("campaign event without a customer email is rejected", func() {
		tn := s.registerTenant()
		b := eventOfType(event.TypeChargeback).With(func(b *builder.EventBuilder) { b.CustomerEmail = "" })

		code, _ := s.postEvent(tn, b, nil)
		s.Equal(http.StatusBadRequest, code)
		s.Equal(0, dbtest.CountRows(s.T(), s.DB, "events", ""))
		s.Empty(s.EmailAPI.Sent())
	})
}

// =============================================================================
// Resolution
// =============================================================================

func (s *CampaignSuite) TestApprovedSaleResolvesPendingCampaigns() {
	tn := s.registerTenant()
	externalID := "order-" + uuid.NewString()[:8]
	withExternal := func(t event.Type) *builder.EventBuilder {
		return eventOfType(t).With(func(b *builder.EventBuilder) { b.ExternalID = externalID })
	}

	_, cart := s.postEvent(tn, withExternal(event.TypeAbandonedCart), nil)
	_, chargeback := s.postEvent(tn, withExternal(event.TypeChargeback), nil)
	s.waitForEvent(chargeback.EventID, string(event.StatusProcessed))

	code, approved := s.postEvent(tn, withExternal(event.TypeSaleApproved), nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(int64(1), approved.Resolved)
	s.Zero(approved.Scheduled)

	s.Equal(string(event.StatusProcessed), s.getEvent(cart.EventID).Status)
	s.Equal(string(event.StatusProcessed), s.getEvent(approved.EventID).Status)

	// the cart reminders are now skipped by the worker
	s.Equal(1, len(s.EmailAPI.Sent()), "only the chargeback contact is sent")
	s.Equal(0, dbtest.CountRows(s.T(), s.DB, "send_records", "event_id = $1", cart.EventID))
}

// =============================================================================
// Delivery tracking
// =============================================================================

func (s *CampaignSuite) TestDeliveryTracking() {
	s.Run("callbacks advance the record and never regress it", func() {
		tn := s.registerTenant()
		_, out := s.postEvent(tn, eventOfType(event.TypeChargeback), nil)
		view := s.waitForEvent(out.EventID, string(event.StatusProcessed))
		msgID := *view.SendRecords[0].ProviderMessageID

		steps := []struct {
			kind    string
			outcome string
			status  string
		}{
			{"email.delivered", "applied", "DELIVERED"},
			{"email.opened", "applied", "OPENED"},
			{"email.delivered", "ignored", "OPENED"},
			{"email.clicked", "applied", "CLICKED"},
			{"email.opened", "ignored", "CLICKED"},
		}
		for _, st := range steps {
			code, res := s.postCallback(st.kind, msgID)
			s.Require().Equal(http.StatusOK, code)
			s.Equal(st.outcome, res.Outcome, st.kind)

			rec := s.getEvent(out.EventID).SendRecords[0]
			s.Equal(st.status, rec.Status, "after %s", st.kind)
		}

		rec := s.getEvent(out.EventID).SendRecords[0]
		s.NotNil(rec.DeliveredAt)
		s.NotNil(rec.OpenedAt)
		s.NotNil(rec.ClickedAt)
	})

	s.Run("unsigned callback is rejected", func() {
		w := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, providerCallbackURL,
			[]byte(`{"type":"email.delivered","data":{"email_id":"msg_1"}}`), nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("callback for an unknown message is parked and eventually dropped", func() {
		code, res := s.postCallback("email.delivered", "msg_unknown")
		s.Require().Equal(http.StatusOK, code)
		s.Equal("parked", res.Outcome)

		n, err := s.Redis.ZCard(context.Background(), callbackqueue.DefaultKey).Result()
		s.Require().NoError(err)
		s.Equal(int64(1), n)

		// the sweeper retries until the park ceiling, then gives up
		s.WaitFor(func() bool {
			n, err := s.Redis.ZCard(context.Background(), callbackqueue.DefaultKey).Result()
			return err == nil && n == 0
		}, "parked callback was never dropped")
	})
}

// =============================================================================
// Admin
// =============================================================================

func (s *CampaignSuite) TestAdmin() {
	s.Run("admin routes need an operator token", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(eventURL, uuid.New()), nil, "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("unknown event is 404", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet, fmt.Sprintf(eventURL, uuid.New()), nil, s.OperatorToken())
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("tenant events are listed newest first with a cursor", func() {
		tn := s.registerTenant()
		var ids []uuid.UUID
		for _, typ := range []event.Type{event.TypeAbandonedCart, event.TypePixExpired, event.TypeBoletoExpired} {
			_, out := s.postEvent(tn, eventOfType(typ), nil)
			ids = append(ids, out.EventID)
		}
		other := s.registerTenant()
		s.postEvent(other, eventOfType(event.TypeAbandonedCart), nil)

		list := func(query string) response.EventListResponse {
			w := httptest.PerformRequest(s.T(), s.Router, http.MethodGet,
				fmt.Sprintf("/admin/tenants/%s/events%s", tn.ID, query), nil, s.OperatorToken())
			var out response.EventListResponse
			httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &out)
			return out
		}

		first := list("?limit=2")
		s.Require().Len(first.Events, 2)
		s.Equal(ids[2], first.Events[0].ID)
		s.Equal(ids[1], first.Events[1].ID)
		s.Require().NotEmpty(first.NextCursor)

		second := list("?limit=2&after=" + first.NextCursor)
		s.Require().Len(second.Events, 1)
		s.Equal(ids[0], second.Events[0].ID)
		s.Empty(second.NextCursor)

		pix := list("?type=PIX_EXPIRED&status=PENDING")
		s.Require().Len(pix.Events, 1)
		s.Equal(ids[1], pix.Events[0].ID)
	})

	s.Run("template cache can be invalidated", func() {
		w := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, invalidateURL,
			request.InvalidateTemplatesRequest{TemplateID: "chargeback.contact"}, s.OperatorToken())
		var out response.InvalidateTemplatesResponse
		httptest.AssertSuccessResponse(s.T(), w, http.StatusOK, &out)
		assert.Equal(s.T(), []string{"chargeback.contact"}, out.Invalidated)

		// templates reload lazily on the next send
		tn := s.registerTenant()
		_, ev := s.postEvent(tn, eventOfType(event.TypeChargeback), nil)
		s.waitForEvent(ev.EventID, string(event.StatusProcessed))
		s.Len(s.EmailAPI.Sent(), 1)
	})
}
