package bookings

import (
	"context"
	"testing"
	"time"

	"visitly/internal/gateways/gatewaytest"
	"visitly/internal/outbox"
	"visitly/internal/shared/database/dbtest"
	"visitly/internal/slots"
	"visitly/pkg/clock"
	"visitly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// staleCodes reports every code as free so a duplicate only surfaces when
// the insert hits the unique index.
type staleCodes struct {
	Repository
}

func (r staleCodes) WithTx(tx *gorm.DB) Repository {
	return staleCodes{Repository: r.Repository.WithTx(tx)}
}

func (staleCodes) CodeExists(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func TestCreateBookingRetriesCodeCollisionAtInsert(t *testing.T) {
	db := dbtest.Open(t, &slots.Slot{}, &Booking{}, &outbox.Message{})
	now := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	slotRepo := slots.NewRepository(db)

	gen := NewCodeGenerator(6, 3)
	gen.draw = sequence("111111", "111111", "222222")
	svc := NewService(Dependencies{
		Bookings: staleCodes{Repository: NewRepository(db)},
		Slots:    slotRepo,
		Outbox:   outbox.NewRepository(db),
		Payments: &gatewaytest.Payments{},
		Codes:    gen,
		Signer:   NewPayloadSigner("scan-secret", "visitly-test"),
		Clock:    clock.NewFake(now),
		Logger:   logger.Discard(),
	})

	slot := &slots.Slot{
		OrganizerID:  uuid.New(),
		PropertyID:   uuid.New(),
		StartTime:    now.Add(24 * time.Hour),
		EndTime:      now.Add(25 * time.Hour),
		Status:       slots.StatusAvailable,
		MeetingPoint: "Front gate",
		Capacity:     2,
	}
	require.NoError(t, slotRepo.Create(context.Background(), slot))
	contact := Contact{Name: "Dara Visitor", Phone: "+66812345678", Email: "dara@example.com"}

	first, err := svc.CreateBooking(context.Background(), slot.ID, uuid.New(), contact, 1)
	require.NoError(t, err)
	assert.Equal(t, "111111", first.ConfirmationCode)

	second, err := svc.CreateBooking(context.Background(), slot.ID, uuid.New(), contact, 1)
	require.NoError(t, err)
	assert.Equal(t, "222222", second.ConfirmationCode)

	reloaded, err := slotRepo.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.ActiveBookings)
	assert.Equal(t, slots.StatusBooked, reloaded.Status)
}
