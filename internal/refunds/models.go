package refunds

import (
	"time"

	"visitly/internal/bookings"
)

// RefundRequest is the visitor's refund claim.
type RefundRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=1000"`
}

// DecisionRequest is an administrator's ruling on a pending refund.
type DecisionRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note" binding:"max=1000"`
}

// Result reports the refund state after a request or decision.
type Result struct {
	BookingID           string                `json:"booking_id"`
	RefundStatus        bookings.RefundStatus `json:"refund_status"`
	FraudFlag           bool                  `json:"fraud_flag"`
	Amount              int64                 `json:"amount"`
	Message             string                `json:"message"`
	EstimatedRefundTime *time.Time            `json:"estimated_refund_time,omitempty"`
}
