package checkin

import (
	"context"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/shared/apperrors"
	"visitly/internal/slots"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/obs"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Service validates on-site scans and records arrivals.
type Service interface {
	CheckIn(ctx context.Context, scanPayload string, organizerID uuid.UUID) (*Result, error)
}

type service struct {
	bookings bookings.Repository
	slots    slots.Repository
	signer   *bookings.PayloadSigner
	grace    time.Duration
	clock    clock.Clock
	log      *logger.Logger
}

// NewService builds the check-in processor. grace widens the slot window on
// both sides.
func NewService(bookingRepo bookings.Repository, slotRepo slots.Repository, signer *bookings.PayloadSigner, grace time.Duration, clk clock.Clock, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		bookings: bookingRepo,
		slots:    slotRepo,
		signer:   signer,
		grace:    grace,
		clock:    clk,
		log:      log,
	}
}

func (s *service) CheckIn(ctx context.Context, scanPayload string, organizerID uuid.UUID) (*Result, error) {
	ctx, span := obs.Tracer("checkin").Start(ctx, "checkin.CheckIn")
	defer span.End()

	claims, err := s.signer.ParseScanPayload(scanPayload)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", claims.BookingID))

	booking, err := s.bookings.GetByID(ctx, claims.BookingUUID())
	if err != nil {
		return nil, err
	}
	if booking.ConfirmationCode != claims.ConfirmationCode ||
		booking.SlotID.String() != claims.SlotID ||
		booking.VisitorID.String() != claims.VisitorID {
		return nil, apperrors.Validation(apperrors.CodeScanPayloadMismatch, "scan payload does not match the booking")
	}

	slot, err := s.slots.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.OrganizerID != organizerID {
		s.log.LogForbidden(ctx, "check_in", organizerID.String(), booking.ID.String(), "not slot organizer")
		return nil, apperrors.Forbidden(apperrors.CodeNotSlotOrganizer, "only the slot organizer can check visitors in")
	}
	if !booking.IsPaid() {
		return nil, apperrors.PaymentRequired("visit fee has not been paid").
			WithDetail("payment_status", booking.PaymentStatus)
	}

	now := s.clock.Now()
	opens, closes := slot.CheckInWindow(s.grace)
	if now.Before(opens) || now.After(closes) {
		return nil, apperrors.Temporal(apperrors.CodeOutOfWindow, "check-in is only possible around the visit time").
			WithDetail("window_start", opens).
			WithDetail("window_end", closes).
			WithDetail("now", now)
	}

	if booking.VisitStatus.IsCheckedIn() && booking.CheckInTime != nil {
		s.log.LogCheckIn(ctx, booking.ID.String(), organizerID.String(), true)
		return resultFor(booking, true), nil
	}
	if booking.VisitStatus != bookings.VisitScheduled {
		return nil, notCheckable(booking)
	}

	moved, err := s.bookings.CheckIn(ctx, booking.ID, now)
	if err != nil {
		return nil, apperrors.Internal("failed to record check-in", err)
	}

	// Reload either way: a concurrent scan may have won the update.
	current, err := s.bookings.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if !moved {
		if current.VisitStatus.IsCheckedIn() && current.CheckInTime != nil {
			s.log.LogCheckIn(ctx, booking.ID.String(), organizerID.String(), true)
			return resultFor(current, true), nil
		}
		return nil, notCheckable(current)
	}

	s.log.LogCheckIn(ctx, booking.ID.String(), organizerID.String(), false)
	return resultFor(current, false), nil
}

func notCheckable(b *bookings.Booking) error {
	return apperrors.Conflict(apperrors.CodeVisitNotCheckable, "booking cannot be checked in").
		WithDetail("visit_status", b.VisitStatus)
}
