package bookings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"visitly/internal/gateways"
	"visitly/internal/outbox"
	"visitly/internal/shared/apperrors"
	"visitly/internal/shared/constants"
	"visitly/internal/shared/database"
	"visitly/internal/shared/middleware"
	"visitly/internal/slots"
	"visitly/pkg/cache"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/obs"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
)

// Service is the booking ledger.
type Service interface {
	CreateBooking(ctx context.Context, slotID, visitorID uuid.UUID, contact Contact, numberOfVisitors int) (*Booking, error)
	GetBooking(ctx context.Context, bookingID, callerID uuid.UUID, role string) (*Booking, error)
	PayBooking(ctx context.Context, bookingID, visitorID uuid.UUID, sourceToken string) (*Booking, error)
	CancelBooking(ctx context.Context, bookingID, visitorID uuid.UUID) (*Booking, error)
	CancelSlot(ctx context.Context, slotID, organizerID uuid.UUID) (*SlotCancellationResult, error)
	CompleteVisit(ctx context.Context, bookingID, organizerID uuid.UUID) (*Booking, error)
	SweepNoShows(ctx context.Context) (*SweepResult, error)
}

// Dependencies wires the ledger to its stores and collaborators.
type Dependencies struct {
	Bookings Repository
	Slots    slots.Repository
	Outbox   outbox.Repository
	Payments gateways.PaymentGateway
	Codes    *CodeGenerator
	Signer   *PayloadSigner
	// Cache is optional; when set, slot detail entries are evicted after
	// capacity changes.
	Cache  cache.Service
	Clock  clock.Clock
	Logger *logger.Logger
	// NoShowGrace is how long after a slot ends a scheduled booking becomes a no-show.
	NoShowGrace time.Duration
}

var errCodeCollision = errors.New("confirmation code collided at insert")

type service struct {
	repo     Repository
	slots    slots.Repository
	outbox   outbox.Repository
	payments gateways.PaymentGateway
	codes    *CodeGenerator
	signer   *PayloadSigner
	cache    cache.Service
	clock    clock.Clock
	log      *logger.Logger
	validate *validator.Validate
	grace    time.Duration
}

func NewService(deps Dependencies) Service {
	s := &service{
		repo:     deps.Bookings,
		slots:    deps.Slots,
		outbox:   deps.Outbox,
		payments: deps.Payments,
		codes:    deps.Codes,
		signer:   deps.Signer,
		cache:    deps.Cache,
		clock:    deps.Clock,
		log:      deps.Logger,
		validate: validator.New(),
		grace:    deps.NoShowGrace,
	}
	if s.codes == nil {
		s.codes = NewCodeGenerator(6, 10)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.log == nil {
		s.log = logger.GetDefault()
	}
	if s.grace == 0 {
		s.grace = 30 * time.Minute
	}
	return s
}

func (s *service) CreateBooking(ctx context.Context, slotID, visitorID uuid.UUID, contact Contact, numberOfVisitors int) (*Booking, error) {
	ctx, span := obs.Tracer("bookings").Start(ctx, "bookings.CreateBooking")
	defer span.End()
	span.SetAttributes(attribute.String("slot.id", slotID.String()), attribute.String("visitor.id", visitorID.String()))

	if numberOfVisitors == 0 {
		numberOfVisitors = 1
	}
	if numberOfVisitors < 1 {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "number_of_visitors must be at least 1")
	}
	if err := s.validate.Struct(contact); err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidInput, "visitor contact is invalid").
			WithDetail("fields", err.Error())
	}

	for attempt := 0; attempt < s.codes.maxAttempts; attempt++ {
		booking, err := s.createOnce(ctx, slotID, visitorID, contact, numberOfVisitors)
		if errors.Is(err, errCodeCollision) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}

		s.evictSlot(ctx, slotID)
		span.SetAttributes(attribute.String("booking.id", booking.ID.String()))
		s.log.LogBookingCreated(ctx, booking.ID.String(), slotID.String(), visitorID.String())
		return booking, nil
	}
	return nil, codesExhausted()
}

// createOnce reserves capacity and inserts the booking in one transaction.
// A confirmation code that lost an insert race yields errCodeCollision.
func (s *service) createOnce(ctx context.Context, slotID, visitorID uuid.UUID, contact Contact, numberOfVisitors int) (*Booking, error) {
	now := s.clock.Now()
	var created *Booking

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		bookingRepo := s.repo.WithTx(tx)
		slotRepo := s.slots.WithTx(tx)

		reserved, err := slotRepo.Reserve(ctx, slotID, now)
		if err != nil {
			return err
		}
		if !reserved {
			return s.diagnoseReserve(ctx, bookingRepo, slotRepo, slotID, visitorID, now)
		}

		slot, err := slotRepo.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		code, err := s.codes.Generate(ctx, bookingRepo, slotID)
		if err != nil {
			return err
		}

		booking := &Booking{
			ID:               uuid.New(),
			SlotID:           slotID,
			VisitorID:        visitorID,
			VisitorContact:   contact,
			NumberOfVisitors: numberOfVisitors,
			PaymentAmount:    slot.FeeAmount,
			PaymentStatus:    PaymentPending,
			ConfirmationCode: code,
			VisitStatus:      VisitScheduled,
			RefundStatus:     RefundNone,
		}
		if slot.IsFree() {
			booking.PaymentStatus = PaymentPaid
		}
		booking.ScanPayload, err = s.signer.BuildScanPayload(booking, now)
		if err != nil {
			return err
		}

		if err := bookingRepo.Create(ctx, booking); err != nil {
			switch {
			case database.ViolatesIndex(err, database.IndexActiveVisitorBooking, "visitor_id"):
				return duplicateBooking()
			case database.ViolatesIndex(err, database.IndexSlotConfirmationCode, "confirmation_code"):
				return errCodeCollision
			}
			return fmt.Errorf("insert booking: %w", err)
		}

		msg, err := outbox.NewNotification(booking.ID, booking.VisitorRecipient(), gateways.TemplateBookingConfirmed, map[string]string{
			"booking_id":        booking.ID.String(),
			"confirmation_code": booking.ConfirmationCode,
			"start_time":        slot.StartTime.Format(time.RFC3339),
			"meeting_point":     slot.MeetingPoint,
			"payment_required":  strconv.FormatBool(booking.PaymentStatus == PaymentPending),
		}, now)
		if err != nil {
			return err
		}
		if err := s.outbox.WithTx(tx).Append(ctx, msg); err != nil {
			return err
		}

		created = booking
		return nil
	})
	if errors.Is(err, errCodeCollision) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to create booking")
	}
	return created, nil
}

// diagnoseReserve explains why the conditional reserve matched no row.
func (s *service) diagnoseReserve(ctx context.Context, bookingRepo Repository, slotRepo slots.Repository, slotID, visitorID uuid.UUID, now time.Time) error {
	dup, err := bookingRepo.HasActiveBooking(ctx, slotID, visitorID)
	if err != nil {
		return err
	}
	if dup {
		return duplicateBooking()
	}

	slot, err := slotRepo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if !slot.StartTime.After(now) {
		return apperrors.Temporal(apperrors.CodeSlotInPast, "slot has already started").
			WithDetail("start_time", slot.StartTime)
	}
	return apperrors.Conflict(apperrors.CodeSlotUnavailable, "slot is not available for booking").
		WithDetail("status", slot.Status)
}

func (s *service) GetBooking(ctx context.Context, bookingID, callerID uuid.UUID, role string) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if role == middleware.RoleAdmin || booking.VisitorID == callerID {
		return booking, nil
	}

	slot, err := s.slots.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.OrganizerID != callerID {
		s.log.LogForbidden(ctx, "get_booking", callerID.String(), bookingID.String(), "not visitor or slot organizer")
		return nil, apperrors.Forbidden(apperrors.CodeNotBookingOwner, "you do not have access to this booking")
	}
	return booking, nil
}

func (s *service) PayBooking(ctx context.Context, bookingID, visitorID uuid.UUID, sourceToken string) (*Booking, error) {
	ctx, span := obs.Tracer("bookings").Start(ctx, "bookings.PayBooking")
	defer span.End()

	booking, err := s.ownedBooking(ctx, "pay_booking", bookingID, visitorID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus == PaymentPaid {
		return booking, nil
	}
	if booking.PaymentStatus != PaymentPending || booking.VisitStatus != VisitScheduled {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "booking cannot be paid").
			WithDetail("payment_status", booking.PaymentStatus).
			WithDetail("visit_status", booking.VisitStatus)
	}
	if s.payments == nil {
		return nil, apperrors.Transient(apperrors.CodePaymentFailed, "payments are not configured", nil)
	}

	ref, err := s.payments.Capture(ctx, booking.PaymentAmount, gateways.Payer{
		VisitorID:   visitorID.String(),
		BookingID:   bookingID.String(),
		Email:       booking.VisitorContact.Email,
		SourceToken: sourceToken,
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Transient(apperrors.CodePaymentFailed, "payment could not be captured", err)
	}

	now := s.clock.Now()
	lost := false
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		box := s.outbox.WithTx(tx)
		ok, err := s.repo.WithTx(tx).MarkPaid(ctx, bookingID, ref)
		if err != nil {
			return err
		}
		if !ok {
			// The booking moved while the charge was in flight; give the money back.
			lost = true
			msg, err := outbox.NewRefund(bookingID, ref, booking.PaymentAmount, now)
			if err != nil {
				return err
			}
			return box.Append(ctx, msg)
		}
		msg, err := outbox.NewNotification(bookingID, booking.VisitorRecipient(), gateways.TemplatePaymentReceived, map[string]string{
			"booking_id":  bookingID.String(),
			"amount":      strconv.FormatInt(booking.PaymentAmount, 10),
			"payment_ref": ref,
		}, now)
		if err != nil {
			return err
		}
		return box.Append(ctx, msg)
	})
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to record payment")
	}
	if lost {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "booking changed during payment; the charge will be refunded")
	}
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) CancelBooking(ctx context.Context, bookingID, visitorID uuid.UUID) (*Booking, error) {
	booking, err := s.ownedBooking(ctx, "cancel_booking", bookingID, visitorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Cancel(ctx, bookingID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict(apperrors.CodeInvalidTransition, "only scheduled bookings can be cancelled")
		}
		if _, err := s.slots.WithTx(tx).Release(ctx, booking.SlotID); err != nil {
			return err
		}
		msg, err := outbox.NewNotification(bookingID, booking.VisitorRecipient(), gateways.TemplateBookingCancelled, map[string]string{
			"booking_id": bookingID.String(),
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.WithTx(tx).Append(ctx, msg)
	})
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to cancel booking")
	}

	s.evictSlot(ctx, booking.SlotID)
	s.log.LogBookingCancelled(ctx, bookingID.String(), booking.SlotID.String(), visitorID.String())
	return s.repo.GetByID(ctx, bookingID)
}

// CancelSlot withdraws a slot and cascades to its scheduled bookings. Paid
// bookings are refunded whether or not the fee was marked refundable.
func (s *service) CancelSlot(ctx context.Context, slotID, organizerID uuid.UUID) (*SlotCancellationResult, error) {
	ctx, span := obs.Tracer("bookings").Start(ctx, "bookings.CancelSlot")
	defer span.End()

	slot, err := s.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.OrganizerID != organizerID {
		s.log.LogForbidden(ctx, "cancel_slot", organizerID.String(), slotID.String(), "not slot organizer")
		return nil, apperrors.Forbidden(apperrors.CodeNotSlotOrganizer, "only the slot organizer can cancel it")
	}

	now := s.clock.Now()
	result := &SlotCancellationResult{SlotID: slotID.String()}
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		bookingRepo := s.repo.WithTx(tx)
		box := s.outbox.WithTx(tx)

		ok, err := s.slots.WithTx(tx).Cancel(ctx, slotID, organizerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict(apperrors.CodeInvalidTransition, "slot can no longer be cancelled").
				WithDetail("status", slot.Status)
		}

		scheduled, err := bookingRepo.ListScheduledBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		for i := range scheduled {
			b := &scheduled[i]
			cancelled, err := bookingRepo.Cancel(ctx, b.ID, now)
			if err != nil {
				return err
			}
			if !cancelled {
				continue
			}
			result.BookingsCancelled++

			msgs := make([]*outbox.Message, 0, 2)
			refunded, err := s.refundForCancelledSlot(ctx, bookingRepo, b, organizerID, now)
			if err != nil {
				return err
			}
			if refunded != nil {
				result.BookingsRefunded++
				msgs = append(msgs, refunded)
			}
			notice, err := outbox.NewNotification(b.ID, b.VisitorRecipient(), gateways.TemplateSlotCancelled, map[string]string{
				"booking_id": b.ID.String(),
				"start_time": slot.StartTime.Format(time.RFC3339),
				"refunded":   strconv.FormatBool(refunded != nil),
			}, now)
			if err != nil {
				return err
			}
			msgs = append(msgs, notice)
			if err := box.Append(ctx, msgs...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.InternalUnlessTyped(err, "failed to cancel slot")
	}

	s.evictSlot(ctx, slotID)
	s.log.LogSlotCancelled(ctx, slotID.String(), organizerID.String(), result.BookingsCancelled, result.BookingsRefunded)
	return result, nil
}

// refundForCancelledSlot moves a paid booking with no refund, or with a
// request still waiting for review, through approved -> refunded and returns
// the payment.refund message. It returns nil when nothing was charged.
func (s *service) refundForCancelledSlot(ctx context.Context, repo Repository, b *Booking, organizerID uuid.UUID, now time.Time) (*outbox.Message, error) {
	if !b.IsPaid() || b.PaymentAmount == 0 {
		return nil, nil
	}
	if b.RefundStatus != RefundNone && b.RefundStatus != RefundRequested {
		return nil, nil
	}
	approved, err := repo.ApproveRefund(ctx, b.ID, b.RefundStatus, RefundDecision{
		DecidedBy: organizerID,
		DecidedAt: now,
		Reason:    "slot cancelled by organizer",
	})
	if err != nil || !approved {
		return nil, err
	}
	if _, err := repo.CompleteRefund(ctx, b.ID); err != nil {
		return nil, err
	}
	s.log.LogRefundDecision(ctx, b.ID.String(), organizerID.String(), RefundRefunded.String(), false, b.PaymentAmount)
	return outbox.NewRefund(b.ID, b.PaymentReference(), b.PaymentAmount, now)
}

func (s *service) CompleteVisit(ctx context.Context, bookingID, organizerID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	slot, err := s.slots.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.OrganizerID != organizerID {
		s.log.LogForbidden(ctx, "complete_visit", organizerID.String(), bookingID.String(), "not slot organizer")
		return nil, apperrors.Forbidden(apperrors.CodeNotSlotOrganizer, "only the slot organizer can complete this visit")
	}

	ok, err := s.repo.Complete(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to complete visit", err)
	}
	if !ok {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "only in-progress visits can be completed").
			WithDetail("visit_status", booking.VisitStatus)
	}
	return s.repo.GetByID(ctx, bookingID)
}

func (s *service) SweepNoShows(ctx context.Context) (*SweepResult, error) {
	ctx, span := obs.Tracer("bookings").Start(ctx, "bookings.SweepNoShows")
	defer span.End()

	cutoff := s.clock.Now().Add(-s.grace)
	result := &SweepResult{}
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).MarkNoShows(ctx, cutoff)
		if err != nil {
			return err
		}
		m, err := s.slots.WithTx(tx).CompleteElapsed(ctx, cutoff)
		if err != nil {
			return err
		}
		result.NoShows, result.SlotsCompleted = n, m
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("failed to sweep no-shows", err)
	}
	span.SetAttributes(attribute.Int64("sweep.no_shows", result.NoShows), attribute.Int64("sweep.slots_completed", result.SlotsCompleted))
	return result, nil
}

func (s *service) ownedBooking(ctx context.Context, op string, bookingID, visitorID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.VisitorID != visitorID {
		s.log.LogForbidden(ctx, op, visitorID.String(), bookingID.String(), "not booking owner")
		return nil, apperrors.Forbidden(apperrors.CodeNotBookingOwner, "booking belongs to another visitor")
	}
	return booking, nil
}

func (s *service) evictSlot(ctx context.Context, slotID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.BuildSlotDetailKey(slotID.String())); err != nil {
		s.log.WithError(err).Warn("failed to evict slot cache", "slot_id", slotID.String())
	}
}

func duplicateBooking() error {
	return apperrors.Conflict(apperrors.CodeDuplicateBooking, "visitor already holds a booking for this slot")
}
