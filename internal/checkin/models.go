package checkin

import (
	"time"

	"visitly/internal/bookings"
)

// CheckInRequest carries the payload scanned from the visitor's QR code.
type CheckInRequest struct {
	ScanPayload string `json:"scan_payload" binding:"required"`
}

// Result is what the organizer sees after a scan.
type Result struct {
	BookingID        string               `json:"booking_id"`
	VisitorName      string               `json:"visitor_name"`
	NumberOfVisitors int                  `json:"number_of_visitors"`
	CheckInTime      time.Time            `json:"check_in_time"`
	VisitStatus      bookings.VisitStatus `json:"visit_status"`
	AlreadyCheckedIn bool                 `json:"already_checked_in"`
}

func resultFor(b *bookings.Booking, already bool) *Result {
	r := &Result{
		BookingID:        b.ID.String(),
		VisitorName:      b.VisitorContact.Name,
		NumberOfVisitors: b.NumberOfVisitors,
		VisitStatus:      b.VisitStatus,
		AlreadyCheckedIn: already,
	}
	if b.CheckInTime != nil {
		r.CheckInTime = *b.CheckInTime
	}
	return r
}
