package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"visitly/internal/gateways"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Kind string

const (
	KindPaymentRefund    Kind = "payment.refund"
	KindNotificationSend Kind = "notification.send"
	KindAbuseRecord      Kind = "abuse.record"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusFailed     Status = "failed"
)

// Message is a side effect committed together with the state change that caused it.
type Message struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          Kind       `gorm:"type:varchar(32);not null" json:"kind"`
	AggregateID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"aggregate_id"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	Status        Status     `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     *string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `gorm:"not null" json:"next_attempt_at"`
	DispatchedAt  *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Message) TableName() string {
	return "outbox_messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	return nil
}

// RefundPayload asks the payment gateway to return money.
type RefundPayload struct {
	BookingID  string `json:"booking_id"`
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
}

// NotificationPayload is delivered through the notification gateway.
type NotificationPayload struct {
	Recipient gateways.Recipient `json:"recipient"`
	Template  gateways.Template  `json:"template"`
	Data      map[string]string  `json:"data,omitempty"`
}

func newMessage(kind Kind, aggregateID uuid.UUID, payload interface{}, now time.Time) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return &Message{
		ID:            uuid.New(),
		Kind:          kind,
		AggregateID:   aggregateID,
		Payload:       string(raw),
		Status:        StatusPending,
		NextAttemptAt: now,
	}, nil
}

// NewRefund builds a payment.refund message.
func NewRefund(bookingID uuid.UUID, paymentRef string, amount int64, now time.Time) (*Message, error) {
	return newMessage(KindPaymentRefund, bookingID, RefundPayload{
		BookingID:  bookingID.String(),
		PaymentRef: paymentRef,
		Amount:     amount,
	}, now)
}

// NewNotification builds a notification.send message.
func NewNotification(bookingID uuid.UUID, recipient gateways.Recipient, template gateways.Template, data map[string]string, now time.Time) (*Message, error) {
	return newMessage(KindNotificationSend, bookingID, NotificationPayload{
		Recipient: recipient,
		Template:  template,
		Data:      data,
	}, now)
}

// NewAbuseRecord builds an abuse.record message.
func NewAbuseRecord(bookingID uuid.UUID, event gateways.AbuseEvent, now time.Time) (*Message, error) {
	return newMessage(KindAbuseRecord, bookingID, event, now)
}
