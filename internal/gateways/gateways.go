// Package gateways declares the external collaborators the visit core talks to.
// Implementations live in internal/payments, internal/notifications and
// internal/abuse; every call reaches them through the outbox relay except
// payment capture, which is synchronous.
package gateways

import (
	"context"
	"errors"
)

// ErrFailedRefund is returned when the payment provider rejects a refund.
var ErrFailedRefund = errors.New("refund failed at payment provider")

// Payer identifies who is charged and with what instrument.
type Payer struct {
	VisitorID   string
	BookingID   string
	Email       string
	SourceToken string
}

// PaymentGateway captures and refunds visit fees. Amounts are minor units.
type PaymentGateway interface {
	Capture(ctx context.Context, amount int64, payer Payer) (paymentRef string, err error)
	Refund(ctx context.Context, paymentRef string, amount int64) (refundRef string, err error)
}

// Template names a notification layout.
type Template string

const (
	TemplateBookingConfirmed Template = "booking_confirmed"
	TemplateBookingCancelled Template = "booking_cancelled"
	TemplatePaymentReceived  Template = "payment_received"
	TemplateSlotCancelled    Template = "slot_cancelled"
	TemplateRefundProcessed  Template = "refund_processed"
	TemplateRefundRequested  Template = "refund_requested"
	TemplateRefundDenied     Template = "refund_denied"
	TemplateFraudAlert       Template = "fraud_alert"
)

// Recipient is who a notification is addressed to.
type Recipient struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// NotificationGateway delivers notifications on a best-effort basis.
type NotificationGateway interface {
	Send(ctx context.Context, recipient Recipient, template Template, data map[string]string) error
}

// AbuseEventType classifies what the abuse monitor is told about.
type AbuseEventType string

const (
	AbuseRefundAutoApproved AbuseEventType = "refund_auto_approved"
	AbuseRefundRequested    AbuseEventType = "refund_requested"
	AbuseRefundManual       AbuseEventType = "refund_manual_decision"
)

// AbuseEvent is a fire-and-forget anomaly record.
type AbuseEvent struct {
	Type      AbuseEventType `json:"type"`
	BookingID string         `json:"booking_id"`
	ActorID   string         `json:"actor_id"`
	Amount    int64          `json:"amount"`
	Flags     []string       `json:"flags,omitempty"`
}

// AbuseMonitor records refund activity for later anomaly analysis.
type AbuseMonitor interface {
	Record(ctx context.Context, event AbuseEvent) error
}
