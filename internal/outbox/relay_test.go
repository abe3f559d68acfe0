package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"visitly/internal/gateways"
	"visitly/internal/gateways/gatewaytest"
	"visitly/internal/shared/database/dbtest"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	repo          Repository
	clock         *clock.Fake
	payments      *gatewaytest.Payments
	notifications *gatewaytest.Notifications
	abuse         *gatewaytest.Abuse
	relay         *Relay
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	db := dbtest.Open(t, &Message{})
	f := &relayFixture{
		repo:          NewRepository(db),
		clock:         clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		payments:      &gatewaytest.Payments{},
		notifications: &gatewaytest.Notifications{},
		abuse:         &gatewaytest.Abuse{},
	}
	f.relay = NewRelay(f.repo, Gateways{
		Payments:      f.payments,
		Notifications: f.notifications,
		Abuse:         f.abuse,
	}, &RelayConfig{Interval: time.Second, BatchSize: 10, MaxAttempts: 2, RetryBackoff: time.Minute}, f.clock, logger.Discard())
	return f
}

func (f *relayFixture) status(t *testing.T, aggregate uuid.UUID) []Message {
	t.Helper()
	msgs, err := f.repo.ListByAggregate(context.Background(), aggregate)
	require.NoError(t, err)
	return msgs
}

func TestRelayDispatchesEveryKind(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()
	now := f.clock.Now()

	refund, err := NewRefund(bookingID, "chrg_1", 2000, now)
	require.NoError(t, err)
	note, err := NewNotification(bookingID, gateways.Recipient{UserID: "v1"}, gateways.TemplateRefundProcessed, map[string]string{"amount": "2000"}, now)
	require.NoError(t, err)
	abuse, err := NewAbuseRecord(bookingID, gateways.AbuseEvent{Type: gateways.AbuseRefundAutoApproved, BookingID: bookingID.String(), ActorID: "v1", Amount: 2000}, now)
	require.NoError(t, err)
	require.NoError(t, f.repo.Append(ctx, refund, note, abuse))

	handled, err := f.relay.DrainOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, handled)
	assert.Equal(t, []gatewaytest.RefundCall{{PaymentRef: "chrg_1", Amount: 2000}}, f.payments.Refunds())
	assert.Equal(t, 1, f.notifications.CountTemplate(gateways.TemplateRefundProcessed))
	require.Len(t, f.abuse.Events(), 1)
	assert.Equal(t, int64(2000), f.abuse.Events()[0].Amount)
	for _, m := range f.status(t, bookingID) {
		assert.Equal(t, StatusDispatched, m.Status, string(m.Kind))
	}

	handled, err = f.relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestRelayRetriesThenFails(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()
	f.notifications.Err = errors.New("broker down")

	note, err := NewNotification(bookingID, gateways.Recipient{UserID: "v1"}, gateways.TemplateBookingConfirmed, nil, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Append(ctx, note))

	t.Run("Given a failing gateway When drained Then the message is rescheduled", func(t *testing.T) {
		_, err := f.relay.DrainOnce(ctx)
		require.NoError(t, err)

		msgs := f.status(t, bookingID)
		require.Len(t, msgs, 1)
		assert.Equal(t, StatusPending, msgs[0].Status)
		assert.Equal(t, 1, msgs[0].Attempts)
		require.NotNil(t, msgs[0].LastError)
		assert.Contains(t, *msgs[0].LastError, "broker down")
	})

	t.Run("Given the retry is not due When drained Then nothing happens", func(t *testing.T) {
		handled, err := f.relay.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, handled)
	})

	t.Run("Given max attempts reached When drained Then the message is failed", func(t *testing.T) {
		f.clock.Advance(2 * time.Minute)
		handled, err := f.relay.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, handled)

		msgs := f.status(t, bookingID)
		assert.Equal(t, StatusFailed, msgs[0].Status)
		assert.Equal(t, 2, msgs[0].Attempts)
	})
}

func TestRelayUnknownKindIsRetried(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	bookingID := uuid.New()
	msg := &Message{Kind: "mystery", AggregateID: bookingID, Payload: "{}", NextAttemptAt: f.clock.Now()}
	require.NoError(t, f.repo.Append(ctx, msg))

	_, err := f.relay.DrainOnce(ctx)
	require.NoError(t, err)

	msgs := f.status(t, bookingID)
	assert.Equal(t, 1, msgs[0].Attempts)
	assert.Contains(t, *msgs[0].LastError, "unknown outbox kind")
}
