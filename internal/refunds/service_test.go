package refunds

import (
	"context"
	"sync"
	"testing"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/bookings/bookingstest"
	"visitly/internal/gateways"
	"visitly/internal/gateways/gatewaytest"
	"visitly/internal/outbox"
	"visitly/internal/shared/apperrors"
	"visitly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env           *bookingstest.Env
	svc           Service
	relay         *outbox.Relay
	notifications *gatewaytest.Notifications
	abuse         *gatewaytest.Abuse
	organizer     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	env := bookingstest.New(t)
	f := &fixture{
		env:           env,
		notifications: &gatewaytest.Notifications{},
		abuse:         &gatewaytest.Abuse{},
		organizer:     uuid.New(),
	}
	f.svc = NewService(env.Bookings, env.Slots, env.Outbox, NewKeywordHeuristic(nil), Config{ProcessingDays: 5}, env.Clock, logger.Discard())
	f.relay = outbox.NewRelay(env.Outbox, outbox.Gateways{
		Payments:      env.Payments,
		Notifications: f.notifications,
		Abuse:         f.abuse,
	}, &outbox.RelayConfig{Interval: time.Second, BatchSize: 50, MaxAttempts: 3, RetryBackoff: time.Minute}, env.Clock, logger.Discard())
	return f
}

func (f *fixture) paidBooking(t *testing.T, refundable bool) (*bookings.Booking, uuid.UUID) {
	t.Helper()
	slot := f.env.Slot(t, f.organizer, bookingstest.SlotOptions{Fee: 2000, Refundable: refundable})
	visitor := uuid.New()
	return f.env.PaidBooking(t, slot, visitor), visitor
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	_, err := f.relay.DrainOnce(context.Background())
	require.NoError(t, err)
}

func TestRequestRefundFraudFastPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, visitor := f.paidBooking(t, true)
	f.drain(t)

	result, err := f.svc.RequestRefund(ctx, b.ID, visitor, "the organizer never showed up (organizer_no_show)")
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundRefunded, result.RefundStatus)
	assert.True(t, result.FraudFlag)
	require.NotNil(t, result.EstimatedRefundTime)
	assert.True(t, result.EstimatedRefundTime.Equal(f.env.Clock.Now().AddDate(0, 0, 5)))

	stored := f.env.Reload(t, b.ID)
	assert.Equal(t, bookings.RefundRefunded, stored.RefundStatus)
	assert.Equal(t, bookings.PaymentRefunded, stored.PaymentStatus)
	assert.True(t, stored.FraudFlag)
	assert.Nil(t, stored.RefundDecidedBy)

	f.drain(t)
	require.Equal(t, 1, f.env.Payments.RefundCount())
	assert.Equal(t, int64(2000), f.env.Payments.Refunds()[0].Amount)
	assert.Equal(t, b.PaymentReference(), f.env.Payments.Refunds()[0].PaymentRef)
	assert.Equal(t, 1, f.notifications.CountTemplate(gateways.TemplateFraudAlert))
	assert.Equal(t, 1, f.notifications.CountTemplate(gateways.TemplateRefundProcessed))

	events := f.abuse.Events()
	require.Len(t, events, 1)
	assert.Equal(t, gateways.AbuseRefundAutoApproved, events[0].Type)
	assert.Equal(t, visitor.String(), events[0].ActorID)
	assert.Equal(t, int64(2000), events[0].Amount)
	assert.Contains(t, events[0].Flags, "organizer_no_show")

	f.drain(t)
	assert.Equal(t, 1, f.env.Payments.RefundCount(), "relay must not refund twice")
}

func TestRequestRefundQueuedForReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, visitor := f.paidBooking(t, true)

	result, err := f.svc.RequestRefund(ctx, b.ID, visitor, "I changed my mind")
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundRequested, result.RefundStatus)
	assert.False(t, result.FraudFlag)

	stored := f.env.Reload(t, b.ID)
	assert.Equal(t, bookings.RefundRequested, stored.RefundStatus)
	assert.Equal(t, bookings.PaymentPaid, stored.PaymentStatus)
	assert.False(t, stored.FraudFlag)
	require.NotNil(t, stored.RefundReason)
	assert.Equal(t, "I changed my mind", *stored.RefundReason)

	f.drain(t)
	assert.Zero(t, f.env.Payments.RefundCount())
	events := f.abuse.Events()
	require.Len(t, events, 1)
	assert.Equal(t, gateways.AbuseRefundRequested, events[0].Type)
}

func TestRequestRefundPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Given another visitor When requesting Then forbidden", func(t *testing.T) {
		b, _ := f.paidBooking(t, true)
		_, err := f.svc.RequestRefund(ctx, b.ID, uuid.New(), "scam")
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	})

	t.Run("Given an unpaid booking When requesting Then invalid", func(t *testing.T) {
		slot := f.env.Slot(t, f.organizer, bookingstest.SlotOptions{Fee: 2000, Refundable: true})
		visitor := uuid.New()
		b, err := f.env.Service.CreateBooking(ctx, slot.ID, visitor, bookingstest.Contact(), 1)
		require.NoError(t, err)

		_, err = f.svc.RequestRefund(ctx, b.ID, visitor, "scam")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNoPaymentToRefund))
		assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))
	})

	t.Run("Given a non-refundable fee When requesting Then denied without side effects", func(t *testing.T) {
		b, visitor := f.paidBooking(t, false)
		before := len(f.env.Messages(t, b.ID))

		_, err := f.svc.RequestRefund(ctx, b.ID, visitor, "fraud, the property does not exist")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNonRefundableFee))
		assert.Equal(t, apperrors.KindDenied, apperrors.KindOf(err))

		stored := f.env.Reload(t, b.ID)
		assert.Equal(t, bookings.RefundNone, stored.RefundStatus)
		assert.False(t, stored.FraudFlag)
		assert.Len(t, f.env.Messages(t, b.ID), before)
	})

	t.Run("Given a pending request When requesting again Then conflict", func(t *testing.T) {
		b, visitor := f.paidBooking(t, true)
		_, err := f.svc.RequestRefund(ctx, b.ID, visitor, "plans changed")
		require.NoError(t, err)

		_, err = f.svc.RequestRefund(ctx, b.ID, visitor, "scam")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRefundAlreadyInProgress))
		assert.Equal(t, bookings.RefundRequested, f.env.Reload(t, b.ID).RefundStatus)
	})
}

func TestRequestRefundConcurrentRequestsDecideOnce(t *testing.T) {
	f := newFixture(t)
	b, visitor := f.paidBooking(t, true)

	const callers = 6
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestRefund(context.Background(), b.ID, visitor, "total scam")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// Late callers see the refunded payment; racing callers lose the conditional write.
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRefundAlreadyInProgress) ||
			apperrors.HasCode(err, apperrors.CodeNoPaymentToRefund), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	f.drain(t)
	assert.Equal(t, 1, f.env.Payments.RefundCount())
}

func TestDecideRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := uuid.New()

	t.Run("Given a pending request When approved Then refunded", func(t *testing.T) {
		b, visitor := f.paidBooking(t, true)
		_, err := f.svc.RequestRefund(ctx, b.ID, visitor, "could not attend")
		require.NoError(t, err)

		result, err := f.svc.DecideRefund(ctx, b.ID, admin, true, "goodwill")
		require.NoError(t, err)
		assert.Equal(t, bookings.RefundRefunded, result.RefundStatus)

		stored := f.env.Reload(t, b.ID)
		assert.Equal(t, bookings.PaymentRefunded, stored.PaymentStatus)
		require.NotNil(t, stored.RefundDecidedBy)
		assert.Equal(t, admin, *stored.RefundDecidedBy)

		before := f.env.Payments.RefundCount()
		f.drain(t)
		assert.Equal(t, before+1, f.env.Payments.RefundCount())
	})

	t.Run("Given a pending request When denied Then no money moves", func(t *testing.T) {
		b, visitor := f.paidBooking(t, true)
		_, err := f.svc.RequestRefund(ctx, b.ID, visitor, "could not attend")
		require.NoError(t, err)
		f.drain(t)
		before := f.env.Payments.RefundCount()

		result, err := f.svc.DecideRefund(ctx, b.ID, admin, false, "visit took place")
		require.NoError(t, err)
		assert.Equal(t, bookings.RefundDenied, result.RefundStatus)
		assert.Nil(t, result.EstimatedRefundTime)

		f.drain(t)
		assert.Equal(t, before, f.env.Payments.RefundCount())
		assert.Equal(t, bookings.PaymentPaid, f.env.Reload(t, b.ID).PaymentStatus)
	})

	t.Run("Given no pending request When deciding Then conflict", func(t *testing.T) {
		b, _ := f.paidBooking(t, true)
		_, err := f.svc.DecideRefund(ctx, b.ID, admin, true, "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRefundNotPending))
	})
}

func TestKeywordHeuristic(t *testing.T) {
	h := NewKeywordHeuristic(nil)

	flagged := []string{
		"This was a SCAM",
		"the organizer never showed up (organizer_no_show)",
		"Organizer No-Show at the gate",
		"The property doesn't exist at that address",
		"misleading listing photos",
	}
	for _, reason := range flagged {
		assert.True(t, h.Evaluate(reason).Fraud, reason)
	}

	clean := []string{"I changed my mind", "sick today", "organizer was late"}
	for _, reason := range clean {
		assert.False(t, h.Evaluate(reason).Fraud, reason)
	}

	custom := NewKeywordHeuristic([]string{"  Double Booked "})
	assert.True(t, custom.Evaluate("they double booked the unit").Fraud)
	assert.False(t, custom.Evaluate("scam").Fraud)
}
