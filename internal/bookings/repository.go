package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visitly/internal/shared/apperrors"
	"visitly/internal/slots"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the booking ledger. Transitions are conditional UPDATEs that
// report whether a row matched; callers decide what a miss means.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Transaction runs fn in one database transaction. The handle lets callers
	// bind other repositories to the same transaction.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	HasActiveBooking(ctx context.Context, slotID, visitorID uuid.UUID) (bool, error)
	CodeExists(ctx context.Context, slotID uuid.UUID, code string) (bool, error)
	ListScheduledBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error)

	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CheckIn(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkNoShows flips scheduled bookings whose slot ended before cutoff.
	MarkNoShows(ctx context.Context, cutoff time.Time) (int64, error)

	RecordRefundRequest(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	ApproveRefund(ctx context.Context, id uuid.UUID, from RefundStatus, decision RefundDecision) (bool, error)
	CompleteRefund(ctx context.Context, id uuid.UUID) (bool, error)
	DenyRefund(ctx context.Context, id uuid.UUID, decision RefundDecision) (bool, error)
}

// RefundDecision carries the audit fields written with a refund transition.
type RefundDecision struct {
	DecidedBy uuid.UUID
	DecidedAt time.Time
	Reason    string
	FraudFlag bool
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeBookingNotFound, "booking not found")
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) HasActiveBooking(ctx context.Context, slotID, visitorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Booking{}).
		Where("slot_id = ? AND visitor_id = ? AND visit_status <> ?", slotID, visitorID, VisitCancelled).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count active bookings: %w", err)
	}
	return count > 0, nil
}

func (r *repository) CodeExists(ctx context.Context, slotID uuid.UUID, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Booking{}).
		Where("slot_id = ? AND confirmation_code = ?", slotID, code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check confirmation code: %w", err)
	}
	return count > 0, nil
}

func (r *repository) ListScheduledBySlot(ctx context.Context, slotID uuid.UUID) ([]Booking, error) {
	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND visit_status = ?", slotID, VisitScheduled).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list scheduled bookings: %w", err)
	}
	return bookings, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	return r.transition(ctx, "mark paid", map[string]interface{}{
		"payment_status": PaymentPaid,
		"payment_ref":    paymentRef,
	}, "id = ? AND payment_status = ? AND visit_status = ?", id, PaymentPending, VisitScheduled)
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, "cancel booking", map[string]interface{}{
		"visit_status": VisitCancelled,
		"cancelled_at": now,
	}, "id = ? AND visit_status = ?", id, VisitScheduled)
}

func (r *repository) CheckIn(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, "check in", map[string]interface{}{
		"visit_status":           VisitInProgress,
		"check_in_time":          now,
		"confirmed_by_organizer": true,
	}, "id = ? AND visit_status = ? AND payment_status = ?", id, VisitScheduled, PaymentPaid)
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, "complete visit", map[string]interface{}{
		"visit_status": VisitCompleted,
	}, "id = ? AND visit_status = ?", id, VisitInProgress)
}

func (r *repository) MarkNoShows(ctx context.Context, cutoff time.Time) (int64, error) {
	elapsed := r.db.Model(&slots.Slot{}).Select("id").Where("end_time < ?", cutoff)
	res := r.db.WithContext(ctx).Model(&Booking{}).
		Where("visit_status = ? AND slot_id IN (?)", VisitScheduled, elapsed).
		Update("visit_status", VisitNoShow)
	if res.Error != nil {
		return 0, fmt.Errorf("mark no-shows: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *repository) RecordRefundRequest(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	return r.transition(ctx, "request refund", map[string]interface{}{
		"refund_status": RefundRequested,
		"refund_reason": reason,
		"fraud_flag":    false,
	}, "id = ? AND refund_status = ? AND payment_status = ?", id, RefundNone, PaymentPaid)
}

func (r *repository) ApproveRefund(ctx context.Context, id uuid.UUID, from RefundStatus, d RefundDecision) (bool, error) {
	if !from.CanAdvanceTo(RefundApproved) {
		return false, apperrors.Invalid(apperrors.CodeInvalidTransition, fmt.Sprintf("refund cannot be approved from %s", from))
	}
	updates := map[string]interface{}{
		"refund_status":     RefundApproved,
		"refund_decided_at": d.DecidedAt,
		"fraud_flag":        d.FraudFlag,
	}
	// Automatic approvals have no human decider.
	if d.DecidedBy != uuid.Nil {
		updates["refund_decided_by"] = d.DecidedBy
	}
	if d.Reason != "" {
		updates["refund_reason"] = d.Reason
	}
	return r.transition(ctx, "approve refund", updates,
		"id = ? AND refund_status = ? AND payment_status = ?", id, from, PaymentPaid)
}

func (r *repository) CompleteRefund(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, "complete refund", map[string]interface{}{
		"refund_status":  RefundRefunded,
		"payment_status": PaymentRefunded,
	}, "id = ? AND refund_status = ? AND payment_status = ?", id, RefundApproved, PaymentPaid)
}

func (r *repository) DenyRefund(ctx context.Context, id uuid.UUID, d RefundDecision) (bool, error) {
	updates := map[string]interface{}{
		"refund_status":     RefundDenied,
		"refund_decided_by": d.DecidedBy,
		"refund_decided_at": d.DecidedAt,
	}
	return r.transition(ctx, "deny refund", updates,
		"id = ? AND refund_status = ?", id, RefundRequested)
}

// transition applies updates to the rows matched by query and reports
// whether exactly one booking moved.
func (r *repository) transition(ctx context.Context, op string, updates map[string]interface{}, query string, args ...interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Booking{}).Where(query, args...).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("%s: %w", op, res.Error)
	}
	return res.RowsAffected == 1, nil
}
