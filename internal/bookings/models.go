package bookings

import (
	"time"

	"visitly/internal/gateways"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is how the organizer reaches the visitor.
type Contact struct {
	Name  string `gorm:"type:varchar(120);not null" json:"name" validate:"required,max=120"`
	Phone string `gorm:"type:varchar(32)" json:"phone" validate:"omitempty,e164"`
	Email string `gorm:"type:varchar(254)" json:"email" validate:"required,email"`
}

// Booking is a visitor's reservation against a slot. Rows are never deleted.
type Booking struct {
	ID                   uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SlotID               uuid.UUID     `gorm:"type:uuid;index;not null" json:"slot_id"`
	VisitorID            uuid.UUID     `gorm:"type:uuid;index;not null" json:"visitor_id"`
	VisitorContact       Contact       `gorm:"embedded;embeddedPrefix:visitor_" json:"visitor_contact"`
	NumberOfVisitors     int           `gorm:"not null;default:1" json:"number_of_visitors"`
	PaymentAmount        int64         `gorm:"not null;default:0" json:"payment_amount"`
	PaymentStatus        PaymentStatus `gorm:"type:varchar(16);not null" json:"payment_status"`
	PaymentRef           *string       `gorm:"type:varchar(64)" json:"payment_ref,omitempty"`
	ConfirmationCode     string        `gorm:"type:varchar(12);not null" json:"confirmation_code"`
	ScanPayload          string        `gorm:"type:text;not null" json:"scan_payload"`
	VisitStatus          VisitStatus   `gorm:"type:varchar(16);not null" json:"visit_status"`
	CheckInTime          *time.Time    `json:"check_in_time,omitempty"`
	ConfirmedByOrganizer bool          `gorm:"not null;default:false" json:"confirmed_by_organizer"`
	RefundStatus         RefundStatus  `gorm:"type:varchar(16);not null;default:'none'" json:"refund_status"`
	RefundReason         *string       `gorm:"type:text" json:"refund_reason,omitempty"`
	RefundDecidedBy      *uuid.UUID    `gorm:"type:uuid" json:"refund_decided_by,omitempty"`
	RefundDecidedAt      *time.Time    `json:"refund_decided_at,omitempty"`
	FraudFlag            bool          `gorm:"not null;default:false" json:"fraud_flag"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (Booking) TableName() string {
	return "visit_bookings"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentPaid
}

// PaymentReference returns the captured charge id, or "" for free bookings.
func (b *Booking) PaymentReference() string {
	if b.PaymentRef == nil {
		return ""
	}
	return *b.PaymentRef
}

// CreateBookingRequest is the visitor payload for booking a slot.
type CreateBookingRequest struct {
	VisitorContact   Contact `json:"visitor_contact" binding:"required"`
	NumberOfVisitors int     `json:"number_of_visitors" binding:"omitempty,min=1,max=20"`
}

// PayBookingRequest carries a tokenized card from the payment provider's client SDK.
type PayBookingRequest struct {
	SourceToken string `json:"source_token" binding:"required"`
}

// CreateBookingResponse is returned after a successful booking.
type CreateBookingResponse struct {
	BookingID        string        `json:"booking_id"`
	SlotID           string        `json:"slot_id"`
	ConfirmationCode string        `json:"confirmation_code"`
	ScanPayload      string        `json:"scan_payload"`
	PaymentRequired  bool          `json:"payment_required"`
	PaymentAmount    int64         `json:"payment_amount"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	VisitStatus      VisitStatus   `json:"visit_status"`
	CreatedAt        time.Time     `json:"created_at"`
}

func (b *Booking) ToCreateResponse() CreateBookingResponse {
	return CreateBookingResponse{
		BookingID:        b.ID.String(),
		SlotID:           b.SlotID.String(),
		ConfirmationCode: b.ConfirmationCode,
		ScanPayload:      b.ScanPayload,
		PaymentRequired:  b.PaymentStatus == PaymentPending,
		PaymentAmount:    b.PaymentAmount,
		PaymentStatus:    b.PaymentStatus,
		VisitStatus:      b.VisitStatus,
		CreatedAt:        b.CreatedAt,
	}
}

// SlotCancellationResult summarizes a slot cancel cascade.
type SlotCancellationResult struct {
	SlotID            string `json:"slot_id"`
	BookingsCancelled int    `json:"bookings_cancelled"`
	BookingsRefunded  int    `json:"bookings_refunded"`
}

// SweepResult summarizes one no-show sweep.
type SweepResult struct {
	NoShows        int64 `json:"no_shows"`
	SlotsCompleted int64 `json:"slots_completed"`
}

// VisitorRecipient addresses notifications to the booking's visitor.
func (b *Booking) VisitorRecipient() gateways.Recipient {
	return gateways.Recipient{
		UserID: b.VisitorID.String(),
		Name:   b.VisitorContact.Name,
		Email:  b.VisitorContact.Email,
		Phone:  b.VisitorContact.Phone,
	}
}
