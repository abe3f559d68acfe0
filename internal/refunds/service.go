package refunds

import (
	"context"
	"strconv"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/gateways"
	"visitly/internal/outbox"
	"visitly/internal/shared/apperrors"
	"visitly/internal/slots"
	"visitly/pkg/clock"
	"visitly/pkg/logger"
	"visitly/pkg/obs"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Service adjudicates refund requests.
type Service interface {
	RequestRefund(ctx context.Context, bookingID, visitorID uuid.UUID, reason string) (*Result, error)
	DecideRefund(ctx context.Context, bookingID, adminID uuid.UUID, approve bool, note string) (*Result, error)
}

type Config struct {
	ProcessingDays int
}

type service struct {
	bookings  bookings.Repository
	slots     slots.Repository
	outbox    outbox.Repository
	heuristic FraudHeuristic
	cfg       Config
	clock     clock.Clock
	log       *logger.Logger
}

func NewService(bookingRepo bookings.Repository, slotRepo slots.Repository, outboxRepo outbox.Repository, heuristic FraudHeuristic, cfg Config, clk clock.Clock, log *logger.Logger) Service {
	if heuristic == nil {
		heuristic = NewKeywordHeuristic(nil)
	}
	if cfg.ProcessingDays <= 0 {
		cfg.ProcessingDays = 5
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		bookings:  bookingRepo,
		slots:     slotRepo,
		outbox:    outboxRepo,
		heuristic: heuristic,
		cfg:       cfg,
		clock:     clk,
		log:       log,
	}
}

// RequestRefund checks the preconditions in order and then either refunds
// immediately (reason flagged by the heuristic) or queues the request for an
// administrator. Nothing is written when a precondition fails.
func (s *service) RequestRefund(ctx context.Context, bookingID, visitorID uuid.UUID, reason string) (*Result, error) {
	ctx, span := obs.Tracer("refunds").Start(ctx, "refunds.RequestRefund")
	defer span.End()

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.VisitorID != visitorID {
		s.log.LogForbidden(ctx, "request_refund", visitorID.String(), bookingID.String(), "not booking owner")
		return nil, apperrors.Forbidden(apperrors.CodeNotBookingOwner, "booking belongs to another visitor")
	}
	if !booking.IsPaid() {
		return nil, apperrors.Invalid(apperrors.CodeNoPaymentToRefund, "booking has no payment to refund").
			WithDetail("payment_status", booking.PaymentStatus)
	}
	if booking.RefundStatus != bookings.RefundNone {
		return nil, apperrors.Conflict(apperrors.CodeRefundAlreadyInProgress, "a refund has already been requested for this booking").
			WithDetail("refund_status", booking.RefundStatus)
	}
	slot, err := s.slots.GetSlot(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}
	if !slot.FeeRefundable {
		return nil, apperrors.Denied(apperrors.CodeNonRefundableFee, "the visit fee for this slot is non-refundable")
	}

	verdict := s.heuristic.Evaluate(reason)
	span.SetAttributes(attribute.Bool("refund.fraud", verdict.Fraud))

	now := s.clock.Now()
	var result *Result
	if verdict.Fraud {
		result, err = s.autoRefund(ctx, booking, slot, reason, verdict, now)
	} else {
		result, err = s.queueRequest(ctx, booking, slot, reason, now)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.LogRefundDecision(ctx, bookingID.String(), visitorID.String(), string(result.RefundStatus), result.FraudFlag, booking.PaymentAmount)
	return result, nil
}

func (s *service) autoRefund(ctx context.Context, b *bookings.Booking, slot *slots.Slot, reason string, verdict Verdict, now time.Time) (*Result, error) {
	err := s.bookings.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		approved, err := repo.ApproveRefund(ctx, b.ID, bookings.RefundNone, bookings.RefundDecision{
			DecidedAt: now,
			Reason:    reason,
			FraudFlag: true,
		})
		if err != nil {
			return err
		}
		if !approved {
			return alreadyInProgress()
		}
		if _, err := repo.CompleteRefund(ctx, b.ID); err != nil {
			return err
		}

		var msgs []*outbox.Message
		if b.PaymentAmount > 0 {
			refund, err := outbox.NewRefund(b.ID, b.PaymentReference(), b.PaymentAmount, now)
			if err != nil {
				return err
			}
			msgs = append(msgs, refund)
		}
		alert, err := outbox.NewNotification(b.ID, gateways.Recipient{UserID: slot.OrganizerID.String()}, gateways.TemplateFraudAlert, map[string]string{
			"booking_id": b.ID.String(),
			"slot_id":    slot.ID.String(),
			"reason":     reason,
		}, now)
		if err != nil {
			return err
		}
		processed, err := outbox.NewNotification(b.ID, b.VisitorRecipient(), gateways.TemplateRefundProcessed, map[string]string{
			"booking_id": b.ID.String(),
			"amount":     strconv.FormatInt(b.PaymentAmount, 10),
		}, now)
		if err != nil {
			return err
		}
		abuse, err := outbox.NewAbuseRecord(b.ID, gateways.AbuseEvent{
			Type:      gateways.AbuseRefundAutoApproved,
			BookingID: b.ID.String(),
			ActorID:   b.VisitorID.String(),
			Amount:    b.PaymentAmount,
			Flags:     append([]string{"fraud_flag"}, verdict.Matched...),
		}, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, alert, processed, abuse)
		return s.outbox.WithTx(tx).Append(ctx, msgs...)
	})
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to refund booking")
	}

	eta := s.estimatedRefundTime(now)
	return &Result{
		BookingID:           b.ID.String(),
		RefundStatus:        bookings.RefundRefunded,
		FraudFlag:           true,
		Amount:              b.PaymentAmount,
		Message:             "Your refund has been approved and is being processed",
		EstimatedRefundTime: &eta,
	}, nil
}

func (s *service) queueRequest(ctx context.Context, b *bookings.Booking, slot *slots.Slot, reason string, now time.Time) (*Result, error) {
	err := s.bookings.Transaction(ctx, func(tx *gorm.DB) error {
		recorded, err := s.bookings.WithTx(tx).RecordRefundRequest(ctx, b.ID, reason, now)
		if err != nil {
			return err
		}
		if !recorded {
			return alreadyInProgress()
		}

		notice, err := outbox.NewNotification(b.ID, gateways.Recipient{UserID: slot.OrganizerID.String()}, gateways.TemplateRefundRequested, map[string]string{
			"booking_id": b.ID.String(),
			"reason":     reason,
		}, now)
		if err != nil {
			return err
		}
		abuse, err := outbox.NewAbuseRecord(b.ID, gateways.AbuseEvent{
			Type:      gateways.AbuseRefundRequested,
			BookingID: b.ID.String(),
			ActorID:   b.VisitorID.String(),
			Amount:    b.PaymentAmount,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.WithTx(tx).Append(ctx, notice, abuse)
	})
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to record refund request")
	}

	eta := s.estimatedRefundTime(now)
	return &Result{
		BookingID:           b.ID.String(),
		RefundStatus:        bookings.RefundRequested,
		Amount:              b.PaymentAmount,
		Message:             "Your refund request has been received and will be reviewed",
		EstimatedRefundTime: &eta,
	}, nil
}

// DecideRefund settles a request that is waiting for manual review.
func (s *service) DecideRefund(ctx context.Context, bookingID, adminID uuid.UUID, approve bool, note string) (*Result, error) {
	ctx, span := obs.Tracer("refunds").Start(ctx, "refunds.DecideRefund")
	defer span.End()

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RefundStatus != bookings.RefundRequested {
		return nil, notPending(b.RefundStatus)
	}

	now := s.clock.Now()
	decision := bookings.RefundDecision{DecidedBy: adminID, DecidedAt: now}
	status := bookings.RefundDenied
	if approve {
		status = bookings.RefundRefunded
	}

	err = s.bookings.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.bookings.WithTx(tx)
		var msgs []*outbox.Message

		if approve {
			ok, err := repo.ApproveRefund(ctx, bookingID, bookings.RefundRequested, decision)
			if err != nil {
				return err
			}
			if !ok {
				return notPending(b.RefundStatus)
			}
			if _, err := repo.CompleteRefund(ctx, bookingID); err != nil {
				return err
			}
			if b.PaymentAmount > 0 {
				refund, err := outbox.NewRefund(bookingID, b.PaymentReference(), b.PaymentAmount, now)
				if err != nil {
					return err
				}
				msgs = append(msgs, refund)
			}
		} else {
			ok, err := repo.DenyRefund(ctx, bookingID, decision)
			if err != nil {
				return err
			}
			if !ok {
				return notPending(b.RefundStatus)
			}
		}

		template := gateways.TemplateRefundDenied
		if approve {
			template = gateways.TemplateRefundProcessed
		}
		notice, err := outbox.NewNotification(bookingID, b.VisitorRecipient(), template, map[string]string{
			"booking_id": bookingID.String(),
			"amount":     strconv.FormatInt(b.PaymentAmount, 10),
			"note":       note,
		}, now)
		if err != nil {
			return err
		}
		abuse, err := outbox.NewAbuseRecord(bookingID, gateways.AbuseEvent{
			Type:      gateways.AbuseRefundManual,
			BookingID: bookingID.String(),
			ActorID:   adminID.String(),
			Amount:    b.PaymentAmount,
			Flags:     []string{string(status)},
		}, now)
		if err != nil {
			return err
		}
		msgs = append(msgs, notice, abuse)
		return s.outbox.WithTx(tx).Append(ctx, msgs...)
	})
	if err != nil {
		return nil, apperrors.InternalUnlessTyped(err, "failed to record refund decision")
	}

	s.log.LogRefundDecision(ctx, bookingID.String(), adminID.String(), string(status), b.FraudFlag, b.PaymentAmount)

	result := &Result{
		BookingID:    bookingID.String(),
		RefundStatus: status,
		FraudFlag:    b.FraudFlag,
		Amount:       b.PaymentAmount,
		Message:      "Refund denied",
	}
	if approve {
		eta := s.estimatedRefundTime(now)
		result.Message = "Refund approved"
		result.EstimatedRefundTime = &eta
	}
	return result, nil
}

func (s *service) estimatedRefundTime(now time.Time) time.Time {
	return now.AddDate(0, 0, s.cfg.ProcessingDays)
}

func alreadyInProgress() error {
	return apperrors.Conflict(apperrors.CodeRefundAlreadyInProgress, "a refund has already been requested for this booking")
}

func notPending(status bookings.RefundStatus) error {
	return apperrors.Conflict(apperrors.CodeRefundNotPending, "refund is not awaiting a decision").
		WithDetail("refund_status", status)
}
