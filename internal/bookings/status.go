package bookings

type VisitStatus string

const (
	VisitScheduled  VisitStatus = "scheduled"
	VisitInProgress VisitStatus = "in_progress"
	VisitCompleted  VisitStatus = "completed"
	VisitCancelled  VisitStatus = "cancelled"
	VisitNoShow     VisitStatus = "no_show"
)

func (s VisitStatus) String() string {
	return string(s)
}

// IsCheckedIn reports whether a check-in has already been recorded.
func (s VisitStatus) IsCheckedIn() bool {
	return s == VisitInProgress || s == VisitCompleted
}

// IsActive reports whether the booking still holds its slot.
func (s VisitStatus) IsActive() bool {
	return s != VisitCancelled
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundRequested RefundStatus = "requested"
	RefundApproved  RefundStatus = "approved"
	RefundRefunded  RefundStatus = "refunded"
	RefundDenied    RefundStatus = "denied"
)

func (s RefundStatus) String() string {
	return string(s)
}

// CanAdvanceTo enforces none -> requested -> {approved|denied} -> refunded,
// plus the direct none -> approved path used for automatic refunds.
func (s RefundStatus) CanAdvanceTo(next RefundStatus) bool {
	switch s {
	case RefundNone:
		return next == RefundRequested || next == RefundApproved
	case RefundRequested:
		return next == RefundApproved || next == RefundDenied
	case RefundApproved:
		return next == RefundRefunded
	}
	return false
}
