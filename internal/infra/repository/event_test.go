//go:build unit

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/infra"
	"sales-recovery/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBTX struct {
	mock.Mock
}

func (m *MockDBTX) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *MockDBTX) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, query, args)
	if rows := mockArgs.Get(0); rows != nil {
		return rows.(pgx.Rows), mockArgs.Error(1)
	}
	return nil, mockArgs.Error(1)
}

func (m *MockDBTX) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Row)
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func errRow(err error) fakeRow {
	return fakeRow{scan: func(...any) error { return err }}
}

// eventRow scans ev the way the events table returns it.
func eventRow(ev *event.Event) fakeRow {
	return fakeRow{scan: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = ev.ID()
		*dest[1].(*uuid.UUID) = ev.OrganizationID()
		*dest[2].(*string) = string(ev.Type())
		*dest[3].(*string) = ev.ExternalID()
		*dest[4].(*[]byte) = []byte(ev.Payload())
		*dest[5].(*string) = string(ev.Status())
		*dest[6].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: ev.CreatedAt(), Valid: true}
		if at := ev.ProcessedAt(); at != nil {
			*dest[7].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: *at, Valid: true}
		}
		return nil
	}}
}

func newEvent(t *testing.T) *event.Event {
	t.Helper()
	ev, err := event.New(uuid.New(), event.TypePixExpired, "pix-1",
		[]byte(`{"customer":{"email":"maria@example.com"}}`),
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return ev
}

func TestEventRepository_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("new event", func(t *testing.T) {
		ev := newEvent(t)
		m := new(MockDBTX)
		m.On("QueryRow", ctx, insertEventIfAbsentSQL, mock.Anything).Return(eventRow(ev)).Once()

		stored, wasNew, err := NewEventRepository().InsertIfAbsent(ctx, m, ev)

		require.NoError(t, err)
		assert.True(t, wasNew)
		assert.Equal(t, ev.ID(), stored.ID())
		assert.Equal(t, event.StatusPending, stored.Status())
		m.AssertExpectations(t)
	})

	t.Run("natural key conflict returns the stored event", func(t *testing.T) {
		ev := newEvent(t)
		existing := event.Reconstruct(uuid.New(), ev.OrganizationID(), ev.Type(), ev.ExternalID(), ev.Payload(),
			event.StatusPending, ev.CreatedAt().Add(-time.Hour), nil)

		m := new(MockDBTX)
		m.On("QueryRow", ctx, insertEventIfAbsentSQL, mock.Anything).Return(errRow(pgx.ErrNoRows)).Once()
		m.On("QueryRow", ctx, selectEventByNaturalKeySQL,
			[]any{ev.OrganizationID(), string(ev.Type()), ev.ExternalID()}).Return(eventRow(existing)).Once()

		stored, wasNew, err := NewEventRepository().InsertIfAbsent(ctx, m, ev)

		require.NoError(t, err)
		assert.False(t, wasNew)
		assert.Equal(t, existing.ID(), stored.ID())
		m.AssertExpectations(t)
	})

	t.Run("driver failure", func(t *testing.T) {
		m := new(MockDBTX)
		m.On("QueryRow", ctx, insertEventIfAbsentSQL, mock.Anything).Return(errRow(errors.New("connection reset"))).Once()

		_, _, err := NewEventRepository().InsertIfAbsent(ctx, m, newEvent(t))

		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrDatabaseOperationFailed))
		assert.True(t, infra.IsKind(err, infra.KindDBFailure))
	})
}

func TestEventRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	m := new(MockDBTX)
	m.On("QueryRow", ctx, selectEventByIDSQL, []any{id}).Return(errRow(pgx.ErrNoRows)).Once()

	_, err := NewEventRepository().FindByID(ctx, m, id)

	assert.True(t, errs.Is(err, errs.ErrEventNotFound))
	assert.True(t, infra.IsKind(err, infra.KindNotFound))
	m.AssertExpectations(t)
}

func TestEventRepository_Mark(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	at := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tag  string
		want bool
	}{
		{name: "pending event moves", tag: "UPDATE 1", want: true},
		{name: "terminal event stays", tag: "UPDATE 0", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockDBTX)
			m.On("Exec", ctx, markEventSQL, mock.MatchedBy(func(args []any) bool {
				return len(args) == 3 && args[0] == id && args[1] == "PROCESSED"
			})).Return(pgconn.NewCommandTag(tt.tag), nil).Once()

			moved, err := NewEventRepository().MarkProcessed(ctx, m, id, at)

			require.NoError(t, err)
			assert.Equal(t, tt.want, moved)
			m.AssertExpectations(t)
		})
	}
}

func TestEventRepository_ResolvePending(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	at := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)

	t.Run("no resolvable types skips the query", func(t *testing.T) {
		m := new(MockDBTX)

		n, err := NewEventRepository().ResolvePending(ctx, m, orgID, "order-1", nil, at)

		require.NoError(t, err)
		assert.Zero(t, n)
		m.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("passes type names", func(t *testing.T) {
		m := new(MockDBTX)
		m.On("Exec", ctx, resolvePendingSQL, mock.MatchedBy(func(args []any) bool {
			names, ok := args[2].([]string)
			return ok && len(names) == 2 && names[0] == "ABANDONED_CART" && names[1] == "PIX_EXPIRED"
		})).Return(pgconn.NewCommandTag("UPDATE 2"), nil).Once()

		n, err := NewEventRepository().ResolvePending(ctx, m, orgID, "order-1",
			[]event.Type{event.TypeAbandonedCart, event.TypePixExpired}, at)

		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		m.AssertExpectations(t)
	})
}
