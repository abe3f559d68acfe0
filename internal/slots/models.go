package slots

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Slot is an organizer-published window in which a property can be visited.
type Slot struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID    uuid.UUID `gorm:"type:uuid;index;not null" json:"organizer_id"`
	PropertyID     uuid.UUID `gorm:"type:uuid;index;not null" json:"property_id"`
	StartTime      time.Time `gorm:"not null" json:"start_time"`
	EndTime        time.Time `gorm:"not null" json:"end_time"`
	FeeAmount      int64     `gorm:"not null;default:0" json:"fee_amount"`
	FeeRefundable  bool      `gorm:"not null;default:false" json:"fee_refundable"`
	Status         Status    `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	MeetingPoint   string    `gorm:"type:varchar(255)" json:"meeting_point"`
	Instructions   string    `gorm:"type:text" json:"instructions"`
	Capacity       int       `gorm:"not null;default:1" json:"capacity"`
	ActiveBookings int       `gorm:"not null;default:0" json:"active_bookings"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Slot) TableName() string {
	return "visit_slots"
}

func (s *Slot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CheckInWindow returns [start-grace, end+grace].
func (s *Slot) CheckInWindow(grace time.Duration) (time.Time, time.Time) {
	return s.StartTime.Add(-grace), s.EndTime.Add(grace)
}

func (s *Slot) IsFree() bool {
	return s.FeeAmount == 0
}

// CreateSlotRequest is the organizer payload for publishing a slot.
type CreateSlotRequest struct {
	PropertyID    string    `json:"property_id" binding:"required,uuid"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	FeeAmount     int64     `json:"fee_amount" binding:"min=0"`
	FeeRefundable bool      `json:"fee_refundable"`
	MeetingPoint  string    `json:"meeting_point" binding:"max=255"`
	Instructions  string    `json:"instructions" binding:"max=2000"`
	Capacity      int       `json:"capacity" binding:"omitempty,min=1,max=100"`
}

// SlotResponse is the public view of a slot.
type SlotResponse struct {
	ID             string    `json:"id"`
	OrganizerID    string    `json:"organizer_id"`
	PropertyID     string    `json:"property_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	FeeAmount      int64     `json:"fee_amount"`
	FeeRefundable  bool      `json:"fee_refundable"`
	Status         Status    `json:"status"`
	MeetingPoint   string    `json:"meeting_point"`
	Instructions   string    `json:"instructions"`
	Capacity       int       `json:"capacity"`
	ActiveBookings int       `json:"active_bookings"`
}

func (s *Slot) ToResponse() SlotResponse {
	return SlotResponse{
		ID:             s.ID.String(),
		OrganizerID:    s.OrganizerID.String(),
		PropertyID:     s.PropertyID.String(),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		FeeAmount:      s.FeeAmount,
		FeeRefundable:  s.FeeRefundable,
		Status:         s.Status,
		MeetingPoint:   s.MeetingPoint,
		Instructions:   s.Instructions,
		Capacity:       s.Capacity,
		ActiveBookings: s.ActiveBookings,
	}
}
