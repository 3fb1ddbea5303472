//go:build unit

package commands_test

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"sales-recovery/internal/domain/sendrecord"
	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/pkg/signature"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/shared"
	"sales-recovery/tests/common/memstore"
	sharedmock "sales-recovery/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type DeliveryTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *memstore.Store
	parker   *sharedmock.MockCallbackParker
	clock    *clock.MockClock
	cfg      config.ProviderWebhookConfig
	delivery commands.DeliveryCommands
	record   *sendrecord.Record
	ctx      context.Context
}

func TestDeliverySuite(t *testing.T) {
	suite.Run(t, new(DeliveryTestSuite))
}

func (s *DeliveryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = memstore.New()
	s.parker = sharedmock.NewMockCallbackParker(s.ctrl)
	s.clock = clock.NewMockClock(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC))
	s.cfg = config.NewTestConfig().ProviderWebhook
	s.ctx = context.Background()
	s.delivery = commands.NewDeliveryCommands(s.store, s.parker, s.cfg, s.clock, slog.New(slog.DiscardHandler))

	s.record = sendrecord.NewSent(uuid.New(), 1, "maria@example.com", "abandoned_cart.reminder", "re_msg_1", s.clock.Now().Add(-time.Hour))
	s.store.AddSendRecord(s.record)
}

func (s *DeliveryTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DeliveryTestSuite) signed(body string) commands.ProviderCallbackInput {
	ts := strconv.FormatInt(s.clock.Now().Unix(), 10)
	sig, err := signature.SignProvider(s.cfg.Secret, "msg_"+uuid.NewString(), ts, []byte(body))
	s.Require().NoError(err)
	return commands.ProviderCallbackInput{Timestamp: ts, Signature: sig, Body: []byte(body)}
}

func (s *DeliveryTestSuite) input(body string) commands.ProviderCallbackInput {
	id := "msg_" + uuid.NewString()
	ts := strconv.FormatInt(s.clock.Now().Unix(), 10)
	sig, err := signature.SignProvider(s.cfg.Secret, id, ts, []byte(body))
	s.Require().NoError(err)
	return commands.ProviderCallbackInput{WebhookID: id, Timestamp: ts, Signature: sig, Body: []byte(body)}
}

func (s *DeliveryTestSuite) current() *sendrecord.Record {
	recs := s.store.SendRecords(s.record.EventID())
	s.Require().Len(recs, 1)
	return recs[0]
}

func (s *DeliveryTestSuite) TestAdvancesRecord() {
	res, err := s.delivery.HandleCallback(s.ctx, s.input(
		`{"type":"email.delivered","created_at":"2024-03-01T14:30:00Z","data":{"email_id":"re_msg_1"}}`))
	s.Require().NoError(err)
	s.Equal(commands.CallbackApplied, res.Outcome)
	s.Equal(sendrecord.StatusDelivered, res.Status)

	rec := s.current()
	s.Equal(sendrecord.StatusDelivered, rec.Status())
	s.Require().NotNil(rec.DeliveredAt())
	s.Equal(time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), *rec.DeliveredAt())
}

func (s *DeliveryTestSuite) TestOutOfOrderCallbacksNeverRegress() {
	clicked := `{"type":"email.clicked","data":{"message_id":"re_msg_1"}}`
	delivered := `{"type":"email.delivered","data":{"message_id":"re_msg_1"}}`

	res, err := s.delivery.HandleCallback(s.ctx, s.input(clicked))
	s.Require().NoError(err)
	s.Equal(commands.CallbackApplied, res.Outcome)

	res, err = s.delivery.HandleCallback(s.ctx, s.input(delivered))
	s.Require().NoError(err)
	s.Equal(commands.CallbackIgnored, res.Outcome)
	s.Equal(sendrecord.StatusClicked, s.current().Status())
	s.Nil(s.current().DeliveredAt())
}

func (s *DeliveryTestSuite) TestDuplicateCallbackIgnored() {
	body := `{"type":"email.opened","data":{"message_id":"re_msg_1"}}`

	_, err := s.delivery.HandleCallback(s.ctx, s.input(body))
	s.Require().NoError(err)
	res, err := s.delivery.HandleCallback(s.ctx, s.input(body))
	s.Require().NoError(err)
	s.Equal(commands.CallbackIgnored, res.Outcome)
}

func (s *DeliveryTestSuite) TestComplaintIsBounce() {
	res, err := s.delivery.HandleCallback(s.ctx, s.input(`{"type":"email.complained","data":{"message_id":"re_msg_1"}}`))
	s.Require().NoError(err)
	s.Equal(commands.CallbackApplied, res.Outcome)
	s.Equal(sendrecord.StatusBounced, s.current().Status())
}

func (s *DeliveryTestSuite) TestIgnoredBodies() {
	for name, body := range map[string]string{
		"undecodable":     `{{`,
		"unknown type":    `{"type":"email.delivery_delayed","data":{"message_id":"re_msg_1"}}`,
		"no message id":   `{"type":"email.delivered","data":{}}`,
		"sent is implied": `{"type":"email.sent","data":{"message_id":"re_msg_1"}}`,
	} {
		s.Run(name, func() {
			res, err := s.delivery.HandleCallback(s.ctx, s.input(body))
			s.Require().NoError(err)
			s.Equal(commands.CallbackIgnored, res.Outcome)
		})
	}
	s.Equal(sendrecord.StatusSent, s.current().Status())
}

func (s *DeliveryTestSuite) TestBadSignature() {
	in := s.input(`{"type":"email.delivered","data":{"message_id":"re_msg_1"}}`)
	in.Body = []byte(`{"type":"email.bounced","data":{"message_id":"re_msg_1"}}`)

	_, err := s.delivery.HandleCallback(s.ctx, in)
	s.Require().Error(err)
	s.True(errs.Is(err, errs.ErrInvalidSignature))
	s.Equal(sendrecord.StatusSent, s.current().Status())
}

func (s *DeliveryTestSuite) TestMissingSignedID() {
	in := s.signed(`{"type":"email.delivered","data":{"message_id":"re_msg_1"}}`)

	_, err := s.delivery.HandleCallback(s.ctx, in)
	s.True(errs.Is(err, errs.ErrInvalidSignature))
}

func (s *DeliveryTestSuite) TestUnknownMessageIsParked() {
	in := s.input(`{"type":"email.delivered","data":{"message_id":"re_msg_unknown"}}`)

	s.parker.EXPECT().
		Park(gomock.Any(), gomock.Any(), s.clock.Now().Add(s.cfg.ParkDelay)).
		DoAndReturn(func(_ context.Context, cb shared.Callback, _ time.Time) error {
			s.Equal(in.WebhookID, cb.ID)
			s.Equal("re_msg_unknown", cb.MessageID)
			s.Equal("email.delivered", cb.Type)
			s.Equal(1, cb.Tries)
			s.Equal(s.clock.Now(), cb.OccurredAt)
			return nil
		})

	res, err := s.delivery.HandleCallback(s.ctx, in)
	s.Require().NoError(err)
	s.Equal(commands.CallbackParked, res.Outcome)
}

func (s *DeliveryTestSuite) TestStoreErrorIsParked() {
	s.parker.EXPECT().Park(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.store.FailNext = errors.New("connection reset")

	res, err := s.delivery.HandleCallback(s.ctx, s.input(`{"type":"email.opened","data":{"message_id":"re_msg_1"}}`))
	s.Require().NoError(err)
	s.Equal(commands.CallbackParked, res.Outcome)
	s.Equal(sendrecord.StatusSent, s.current().Status())
}

func (s *DeliveryTestSuite) TestParkFailureDrops() {
	s.parker.EXPECT().Park(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	res, err := s.delivery.HandleCallback(s.ctx, s.input(`{"type":"email.opened","data":{"message_id":"nope"}}`))
	s.Require().NoError(err)
	s.Equal(commands.CallbackDropped, res.Outcome)
}

func (s *DeliveryTestSuite) TestRetryParked() {
	s.Run("applies once the record exists", func() {
		res, err := s.delivery.RetryParked(s.ctx, shared.Callback{
			ID: "msg_1", Type: "email.opened", MessageID: "re_msg_1", OccurredAt: s.clock.Now(), Tries: 1,
		})
		s.Require().NoError(err)
		s.Equal(commands.CallbackApplied, res.Outcome)
	})

	s.Run("parks again with incremented tries", func() {
		s.parker.EXPECT().
			Park(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cb shared.Callback, _ time.Time) error {
				s.Equal(2, cb.Tries)
				return nil
			})
		res, err := s.delivery.RetryParked(s.ctx, shared.Callback{
			ID: "msg_2", Type: "email.opened", MessageID: "missing", OccurredAt: s.clock.Now(), Tries: 1,
		})
		s.Require().NoError(err)
		s.Equal(commands.CallbackParked, res.Outcome)
	})

	s.Run("drops after the park ceiling", func() {
		res, err := s.delivery.RetryParked(s.ctx, shared.Callback{
			ID: "msg_3", Type: "email.opened", MessageID: "missing", OccurredAt: s.clock.Now(), Tries: s.cfg.ParkMaxTries,
		})
		s.Require().NoError(err)
		s.Equal(commands.CallbackDropped, res.Outcome)
	})
}
