package bookings_test

import (
	"context"
	"testing"

	"visitly/internal/bookings"
	"visitly/internal/bookings/bookingstest"
	"visitly/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundTransitions(t *testing.T) {
	env := bookingstest.New(t)
	ctx := context.Background()
	admin := uuid.New()
	slot := env.Slot(t, uuid.New(), bookingstest.SlotOptions{Fee: 1000, Capacity: 5})
	decision := bookings.RefundDecision{DecidedBy: admin, DecidedAt: env.Clock.Now()}

	t.Run("Given a refunded booking When approved again Then no row moves", func(t *testing.T) {
		b := env.PaidBooking(t, slot, uuid.New())

		ok, err := env.Bookings.ApproveRefund(ctx, b.ID, bookings.RefundNone, decision)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = env.Bookings.CompleteRefund(ctx, b.ID)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = env.Bookings.ApproveRefund(ctx, b.ID, bookings.RefundNone, decision)
		require.NoError(t, err)
		assert.False(t, ok)

		got := env.Reload(t, b.ID)
		assert.Equal(t, bookings.RefundRefunded, got.RefundStatus)
		assert.Equal(t, bookings.PaymentRefunded, got.PaymentStatus)
	})

	t.Run("Given a denied refund When approving from denied Then invalid transition", func(t *testing.T) {
		b := env.PaidBooking(t, slot, uuid.New())
		ok, err := env.Bookings.RecordRefundRequest(ctx, b.ID, "changed plans", env.Clock.Now())
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = env.Bookings.DenyRefund(ctx, b.ID, decision)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = env.Bookings.ApproveRefund(ctx, b.ID, bookings.RefundDenied, decision)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("Given no approval When completing Then no row moves", func(t *testing.T) {
		b := env.PaidBooking(t, slot, uuid.New())
		ok, err := env.Bookings.CompleteRefund(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Given an unpaid booking When refund requested Then no row moves", func(t *testing.T) {
		b, err := env.Service.CreateBooking(ctx, slot.ID, uuid.New(), bookingstest.Contact(), 1)
		require.NoError(t, err)
		ok, err := env.Bookings.RecordRefundRequest(ctx, b.ID, "reason", env.Clock.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRefundStatusCanAdvanceTo(t *testing.T) {
	assert.True(t, bookings.RefundNone.CanAdvanceTo(bookings.RefundRequested))
	assert.True(t, bookings.RefundNone.CanAdvanceTo(bookings.RefundApproved))
	assert.True(t, bookings.RefundRequested.CanAdvanceTo(bookings.RefundDenied))
	assert.True(t, bookings.RefundApproved.CanAdvanceTo(bookings.RefundRefunded))
	assert.False(t, bookings.RefundNone.CanAdvanceTo(bookings.RefundRefunded))
	assert.False(t, bookings.RefundDenied.CanAdvanceTo(bookings.RefundApproved))
	assert.False(t, bookings.RefundRefunded.CanAdvanceTo(bookings.RefundRequested))
}
