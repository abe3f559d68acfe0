// Package bookingstest wires a booking ledger against SQLite for tests of the
// packages built on top of it.
package bookingstest

import (
	"context"
	"testing"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/gateways/gatewaytest"
	"visitly/internal/outbox"
	"visitly/internal/shared/database/dbtest"
	"visitly/internal/slots"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// BaseTime is the fake clock's starting point.
var BaseTime = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

const (
	ScanSecret = "test-scan-secret"
	ScanIssuer = "visitly-test"
)

type Env struct {
	DB       *gorm.DB
	Clock    *clock.Fake
	Slots    slots.Repository
	Bookings bookings.Repository
	Outbox   outbox.Repository
	Payments *gatewaytest.Payments
	Signer   *bookings.PayloadSigner
	Service  bookings.Service
}

func New(t testing.TB) *Env {
	t.Helper()
	db := dbtest.Open(t, &slots.Slot{}, &bookings.Booking{}, &outbox.Message{})

	env := &Env{
		DB:       db,
		Clock:    clock.NewFake(BaseTime),
		Slots:    slots.NewRepository(db),
		Bookings: bookings.NewRepository(db),
		Outbox:   outbox.NewRepository(db),
		Payments: &gatewaytest.Payments{},
		Signer:   bookings.NewPayloadSigner(ScanSecret, ScanIssuer),
	}
	env.Service = bookings.NewService(bookings.Dependencies{
		Bookings:    env.Bookings,
		Slots:       env.Slots,
		Outbox:      env.Outbox,
		Payments:    env.Payments,
		Codes:       bookings.NewCodeGenerator(6, 10),
		Signer:      env.Signer,
		Clock:       env.Clock,
		Logger:      logger.Discard(),
		NoShowGrace: 30 * time.Minute,
	})
	return env
}

// SlotOptions shapes a slot created by Slot.
type SlotOptions struct {
	Fee        int64
	Refundable bool
	Capacity   int
	// StartIn is the offset from the fake clock; defaults to one day.
	StartIn  time.Duration
	Duration time.Duration
}

func (e *Env) Slot(t testing.TB, organizerID uuid.UUID, opts SlotOptions) *slots.Slot {
	t.Helper()
	if opts.StartIn == 0 {
		opts.StartIn = 24 * time.Hour
	}
	if opts.Duration == 0 {
		opts.Duration = time.Hour
	}
	if opts.Capacity == 0 {
		opts.Capacity = 1
	}
	start := e.Clock.Now().Add(opts.StartIn)
	slot := &slots.Slot{
		OrganizerID:   organizerID,
		PropertyID:    uuid.New(),
		StartTime:     start,
		EndTime:       start.Add(opts.Duration),
		FeeAmount:     opts.Fee,
		FeeRefundable: opts.Refundable,
		Status:        slots.StatusAvailable,
		MeetingPoint:  "Front gate",
		Capacity:      opts.Capacity,
	}
	require.NoError(t, e.Slots.Create(context.Background(), slot))
	return slot
}

// PaidBooking books the slot for visitorID and captures the fee if any.
func (e *Env) PaidBooking(t testing.TB, slot *slots.Slot, visitorID uuid.UUID) *bookings.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := e.Service.CreateBooking(ctx, slot.ID, visitorID, Contact(), 1)
	require.NoError(t, err)
	if b.PaymentStatus == bookings.PaymentPending {
		b, err = e.Service.PayBooking(ctx, b.ID, visitorID, "tokn_test")
		require.NoError(t, err)
	}
	return b
}

func (e *Env) Reload(t testing.TB, id uuid.UUID) *bookings.Booking {
	t.Helper()
	b, err := e.Bookings.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

// Messages returns the outbox rows written for a booking.
func (e *Env) Messages(t testing.TB, bookingID uuid.UUID) []outbox.Message {
	t.Helper()
	msgs, err := e.Outbox.ListByAggregate(context.Background(), bookingID)
	require.NoError(t, err)
	return msgs
}

func Contact() bookings.Contact {
	return bookings.Contact{Name: "Dara Visitor", Phone: "+66812345678", Email: "dara@example.com"}
}
